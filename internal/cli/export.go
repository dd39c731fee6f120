package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/replay"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
)

var (
	exportDB      string
	exportOut     string
	exportLast    int
	exportVersion string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDB, "db", envOr("ENVELOPE_DB", ""), "Path to envelope database")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output fixture JSON path")
	exportCmd.Flags().IntVar(&exportLast, "last", 50, "Number of most recent clip calls to export")
	exportCmd.Flags().StringVar(&exportVersion, "version", "", "Profile version to export (default: active)")
}

var exportCmd = &cobra.Command{
	Use:   "fixture-export",
	Short: "Export logged clip calls as a replay fixture",
	Long: "Writes the most recent clip calls made under one profile version as a fixture,\n" +
		"with each logged result as the expectation. Replaying it later catches any\n" +
		"change in clipping behavior.",
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportDB == "" || exportOut == "" {
		return fmt.Errorf("--db and --out are required")
	}
	st, err := store.NewStore(exportDB)
	if err != nil {
		return err
	}
	defer st.Close()

	var v store.ProfileVersion
	if exportVersion != "" {
		v, err = st.GetVersion(exportVersion)
	} else {
		v, err = st.GetActive()
	}
	if err != nil {
		return err
	}

	all, err := logging.ListClips(st.DB(), logging.ClipFilter{})
	if err != nil {
		return err
	}
	var entries []logging.ClipLogEntry
	for _, e := range all {
		if e.ProfileVersionID != v.VersionID {
			continue
		}
		entries = append(entries, e)
		if len(entries) == exportLast {
			break
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("no clip calls logged under version %s", v.VersionID)
	}

	desc := fmt.Sprintf("exported from %s version %s", v.Profile.Name, v.VersionID)
	if err := replay.WriteFixture(exportOut, replay.ExportFixture(desc, v.Profile, entries)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d ticks to %s\n", len(entries), exportOut)
	return nil
}
