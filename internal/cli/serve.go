package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/guard"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/metrics"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/reload"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/service"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

var (
	serveProfile     string
	serveAddr        string
	serveMetricsAddr string
	serveDB          string
	serveNoReload    bool
	serveSummaryIvl  time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveProfile, "profile", "", "Path to bounds profile YAML (default: active profile in --db)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", envOr("ENVELOPE_ADDR", ":50061"), "gRPC listen address")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", ":9109", "Prometheus /metrics listen address, empty to disable")
	serveCmd.Flags().StringVar(&serveDB, "db", envOr("ENVELOPE_DB", ""), "SQLite database for profile versions and the clip log")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "Disable hot reload of --profile")
	serveCmd.Flags().DurationVar(&serveSummaryIvl, "summary-interval", time.Minute, "How often to log the violation summary, 0 to disable")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the envelope as a gRPC service",
	Long: "Serves EnvelopeService over gRPC with Prometheus metrics. With --db every clip call\n" +
		"is logged and every accepted profile is stored as a version. The --profile file is\n" +
		"watched and reloaded; a reload that fails validation keeps the current bounds.",
	RunE: runServe,
}

// #region build
// openGuard loads the starting profile and builds a Guard around it. When st
// is set the profile is committed as a version unless it is already active,
// and clip calls are recorded.
func openGuard(profilePath string, st *store.Store, opts ...guard.Option) (*guard.Guard, error) {
	var (
		p         *config.Profile
		hash      string
		versionID string
	)
	switch {
	case profilePath != "":
		var err error
		if p, hash, err = config.LoadProfile(profilePath); err != nil {
			return nil, err
		}
		if st != nil {
			if versionID, err = commitIfChanged(st, p, hash); err != nil {
				return nil, err
			}
		}
	case st != nil:
		v, err := st.GetActive()
		if err != nil {
			return nil, err
		}
		p, hash, versionID = &v.Profile, v.Hash, v.VersionID
	default:
		return nil, errors.New("one of --profile or --db is required")
	}

	if st != nil {
		opts = append(opts, guard.WithRecorder(guard.SQLRecorder{DB: st.DB()}))
	}
	opts = append(opts, guard.WithVersionID(versionID))
	return guard.New(p, hash, opts...)
}

// commitIfChanged stores p unless the active version already has hash.
func commitIfChanged(st *store.Store, p *config.Profile, hash string) (string, error) {
	active, err := st.GetActive()
	switch {
	case err == nil && active.Hash == hash:
		return active.VersionID, nil
	case err != nil && !errors.Is(err, store.ErrNoActiveProfile):
		return "", err
	}
	v, err := st.CommitProfile(p, hash)
	if err != nil {
		return "", err
	}
	logging.Info("serve", "profile committed", "version", v.VersionID, "parent", v.ParentID, "hash", hash)
	return v.VersionID, nil
}

// #endregion build

func runServe(cmd *cobra.Command, args []string) error {
	var st *store.Store
	if serveDB != "" {
		var err error
		if st, err = store.NewStore(serveDB); err != nil {
			return err
		}
		defer st.Close()
	}

	m := metrics.NewProm("envelope")
	tracker := telemetry.NewTracker()
	g, err := openGuard(serveProfile, st, guard.WithMetrics(m), guard.WithTracker(tracker))
	if err != nil {
		return fmt.Errorf("init guard: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if serveProfile != "" && !serveNoReload {
		r, err := reload.New(g, serveProfile, m)
		if err != nil {
			logging.Warn("serve", "hot-reload disabled", "err", err)
		} else {
			if st != nil {
				r.SetCommit(func(p *config.Profile, hash string) (string, error) {
					return commitIfChanged(st, p, hash)
				})
			}
			go r.Run(ctx)
		}
	}

	if serveMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		httpSrv := &http.Server{Addr: serveMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("serve", "metrics server failed", "err", err)
			}
		}()
		defer httpSrv.Close()
	}

	if serveSummaryIvl > 0 {
		go logSummaries(ctx, tracker, serveSummaryIvl)
	}

	lis, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", serveAddr, err)
	}
	srv := service.NewServer(g)
	go func() {
		<-ctx.Done()
		logging.Info("serve", "shutting down")
		srv.Stop()
	}()

	a := g.Active()
	logging.Info("serve", "envelope ready", "profile", a.Profile.Name, "hash", a.Hash,
		"version", a.VersionID, "dims", len(a.Profile.Dimensions))
	return srv.Serve(lis)
}

func logSummaries(ctx context.Context, tracker *telemetry.Tracker, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := tracker.Snapshot()
			if s.Ticks == 0 {
				continue
			}
			logging.Info("serve", "clip summary", "ticks", s.Ticks, "unsafe", s.UnsafeTicks,
				"violation_rate", fmt.Sprintf("%.4f", s.ViolationRate()))
		}
	}
}
