package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/replay"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
)

var (
	replayDB      string
	replayProfile string
	replayLast    int
	replayJSON    bool
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayDB, "db", envOr("ENVELOPE_DB", ""), "Diff the clip log in this database instead of running a fixture")
	replayCmd.Flags().StringVar(&replayProfile, "profile", "", "Candidate profile to diff the clip log against (with --db)")
	replayCmd.Flags().IntVar(&replayLast, "last", 1000, "Number of most recent clip log entries to diff (with --db)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Output as JSON")
}

var replayCmd = &cobra.Command{
	Use:   "replay [fixture.json]",
	Short: "Replay a fixture, or diff recorded traffic against a candidate profile",
	Long: "With a fixture file, clips every tick against the fixture's profile and verifies\n" +
		"the expected results; exits non-zero on any mismatch. With --db and --profile,\n" +
		"re-clips logged proposals and lists the records whose outcome would change.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return runFixtureMode(cmd, args[0])
	}
	if replayDB == "" || replayProfile == "" {
		return fmt.Errorf("replay needs a fixture file, or --db with --profile")
	}
	return runDiffMode(cmd)
}

// #region fixture-mode
type tickRow struct {
	TickID  string        `json:"tick_id"`
	IsSafe  bool          `json:"is_safe"`
	Kinds   string        `json:"kinds"`
	Clamped safety.Action `json:"clamped_action"`
}

func runFixtureMode(cmd *cobra.Command, path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	results, mismatches := f.Run()
	summary := replay.Summarize(results)

	rows := make([]tickRow, len(results))
	for i, r := range results {
		rows[i] = tickRow{
			TickID:  r.TickID,
			IsSafe:  r.Result.IsSafe,
			Kinds:   joinKinds(r.Result),
			Clamped: r.Result.ClampedAction,
		}
	}

	w := cmd.OutOrStdout()
	if replayJSON {
		msgs := make([]string, len(mismatches))
		for i, m := range mismatches {
			msgs[i] = m.String()
		}
		if err := printJSON(w, map[string]any{
			"description": f.Description,
			"ticks":       rows,
			"summary":     summary,
			"mismatches":  msgs,
		}); err != nil {
			return err
		}
	} else {
		if f.Description != "" {
			fmt.Fprintln(w, f.Description)
		}
		fmt.Fprintf(w, "%-12s  %-6s  %-36s  %s\n", "Tick", "Safe", "Kinds", "Clamped")
		for _, r := range rows {
			fmt.Fprintf(w, "%-12s  %-6t  %-36s  %s\n", r.TickID, r.IsSafe, r.Kinds, safety.FormatAction(r.Clamped))
		}
		fmt.Fprintf(w, "\nticks=%d unsafe=%d mismatches=%d violation_rate=%.4f\n",
			summary.Ticks, summary.UnsafeTicks, summary.Mismatches, summary.ViolationRate())
		for _, m := range mismatches {
			fmt.Fprintf(w, "MISMATCH %s\n", m)
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d expectations failed", len(mismatches), len(f.ExpectedResults))
	}
	return nil
}

func joinKinds(res safety.ClipResult) string {
	names := make([]string, len(res.Stats))
	for i, s := range res.Stats {
		names[i] = s.Violation.String()
	}
	return strings.Join(names, ",")
}

// #endregion fixture-mode

// #region diff-mode
type divergenceRow struct {
	RecordID      string        `json:"record_id"`
	SafeBefore    bool          `json:"safe_before"`
	SafeAfter     bool          `json:"safe_after"`
	KindsBefore   string        `json:"kinds_before"`
	KindsAfter    string        `json:"kinds_after"`
	ClampedBefore safety.Action `json:"clamped_before"`
	ClampedAfter  safety.Action `json:"clamped_after"`
}

func runDiffMode(cmd *cobra.Command) error {
	p, hash, err := config.LoadProfile(replayProfile)
	if err != nil {
		return err
	}
	st, err := store.NewStore(replayDB)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := logging.ListClips(st.DB(), logging.ClipFilter{Limit: replayLast})
	if err != nil {
		return err
	}
	divs := replay.DiffLog(entries, p.Bounds())

	rows := make([]divergenceRow, len(divs))
	for i, d := range divs {
		rows[i] = divergenceRow{
			RecordID:      d.RecordID,
			SafeBefore:    d.Before.IsSafe,
			SafeAfter:     d.After.IsSafe,
			KindsBefore:   joinKinds(d.Before),
			KindsAfter:    joinKinds(d.After),
			ClampedBefore: d.Before.ClampedAction,
			ClampedAfter:  d.After.ClampedAction,
		}
	}

	w := cmd.OutOrStdout()
	if replayJSON {
		return printJSON(w, map[string]any{
			"profile":     p.Name,
			"hash":        hash,
			"entries":     len(entries),
			"divergences": rows,
		})
	}
	fmt.Fprintf(w, "diffed %d logged clips against %s (%s): %d would change\n", len(entries), p.Name, hash, len(rows))
	for _, r := range rows {
		fmt.Fprintf(w, "%s  safe %t->%t  kinds %s -> %s  clamped %s -> %s\n", r.RecordID,
			r.SafeBefore, r.SafeAfter, r.KindsBefore, r.KindsAfter,
			safety.FormatAction(r.ClampedBefore), safety.FormatAction(r.ClampedAfter))
	}
	return nil
}

// #endregion diff-mode
