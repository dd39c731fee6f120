package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

var (
	inspectDB       string
	inspectLast     int
	inspectUnsafe   bool
	inspectVersions bool
	inspectJSON     bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectDB, "db", envOr("ENVELOPE_DB", ""), "Path to envelope database")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "Show N most recent entries")
	inspectCmd.Flags().BoolVar(&inspectUnsafe, "unsafe", false, "Only show unsafe clip calls")
	inspectCmd.Flags().BoolVar(&inspectVersions, "versions", false, "List profile versions instead of clip calls")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the clip log or profile history",
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectDB == "" {
		return fmt.Errorf("--db is required")
	}
	st, err := store.NewStore(inspectDB)
	if err != nil {
		return err
	}
	defer st.Close()

	if inspectVersions {
		return inspectProfileVersions(cmd, st)
	}
	return inspectClipLog(cmd, st)
}

// #region clip-log
type clipRow struct {
	RecordID  string             `json:"record_id"`
	Version   string             `json:"profile_version_id,omitempty"`
	IsSafe    bool               `json:"is_safe"`
	Proposed  safety.Action      `json:"proposed"`
	Clamped   safety.Action      `json:"clamped_action"`
	Stats     []safety.ClipStats `json:"stats"`
	CreatedAt string             `json:"created_at"`
}

func inspectClipLog(cmd *cobra.Command, st *store.Store) error {
	entries, err := logging.ListClips(st.DB(), logging.ClipFilter{Limit: inspectLast, UnsafeOnly: inspectUnsafe})
	if err != nil {
		return err
	}
	results := make([]safety.ClipResult, len(entries))
	rows := make([]clipRow, len(entries))
	for i, e := range entries {
		results[i] = e.Result
		rows[i] = clipRow{
			RecordID:  e.RecordID,
			Version:   e.ProfileVersionID,
			IsSafe:    e.Result.IsSafe,
			Proposed:  e.Proposed,
			Clamped:   e.Result.ClampedAction,
			Stats:     e.Result.Stats,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	summary := telemetry.Summarize(results)

	w := cmd.OutOrStdout()
	if inspectJSON {
		return printJSON(w, map[string]any{"clips": rows, "summary": summary})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no clip calls logged")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-6s  %-28s  %-28s  %s\n", "Record", "Safe", "Proposed", "Clamped", "Time")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-6t  %-28s  %-28s  %s\n", r.RecordID, r.IsSafe,
			safety.FormatAction(r.Proposed), safety.FormatAction(r.Clamped), r.CreatedAt)
		for _, s := range r.Stats {
			if s.Violation == safety.ViolationNone {
				continue
			}
			fmt.Fprintf(w, "    dim %d: %s (%s)\n", s.Dimension, s.Violation, s.Message)
		}
	}
	fmt.Fprintf(w, "\nticks=%d unsafe=%d violation_rate=%.4f\n", summary.Ticks, summary.UnsafeTicks, summary.ViolationRate())
	return nil
}

// #endregion clip-log

// #region versions
type versionRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Dims      int    `json:"dimensions"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func inspectProfileVersions(cmd *cobra.Command, st *store.Store) error {
	versions, err := st.ListVersions(inspectLast)
	if err != nil {
		return err
	}
	rows := make([]versionRow, len(versions))
	for i, v := range versions {
		rows[i] = versionRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Name:      v.Profile.Name,
			Hash:      v.Hash,
			Dims:      len(v.Profile.Dimensions),
			Active:    v.Active,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	w := cmd.OutOrStdout()
	if inspectJSON {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no profile versions found")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-16s  %4s  %-6s  %s\n", "Version", "Name", "Dims", "Active", "Time")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-16s  %4d  %-6t  %s\n", r.VersionID, r.Name, r.Dims, r.Active, r.CreatedAt)
	}
	return nil
}

// #endregion versions
