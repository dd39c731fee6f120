package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/store"
)

var profileDB string

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.PersistentFlags().StringVar(&profileDB, "db", envOr("ENVELOPE_DB", ""), "Path to envelope database")
	profileCmd.AddCommand(profileCommitCmd, profileActivateCmd, profileShowCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored bounds profile versions",
}

var profileCommitCmd = &cobra.Command{
	Use:   "commit <profile.yaml>",
	Short: "Store a profile file as a new version and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, hash, err := config.LoadProfile(args[0])
		if err != nil {
			return err
		}
		return withStore(func(st *store.Store) error {
			v, err := st.CommitProfile(p, hash)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %s (%s) as %s\n", p.Name, hash, v.VersionID)
			return nil
		})
	},
}

var profileActivateCmd = &cobra.Command{
	Use:   "activate <version-id>",
	Short: "Make an existing version active (rollback)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.Activate(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", args[0])
			return nil
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [version-id]",
	Short: "Print a stored profile as JSON (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			var (
				v   store.ProfileVersion
				err error
			)
			if len(args) == 1 {
				v, err = st.GetVersion(args[0])
			} else {
				v, err = st.GetActive()
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"version_id": v.VersionID,
				"parent_id":  v.ParentID,
				"hash":       v.Hash,
				"active":     v.Active,
				"profile":    v.Profile,
			})
		})
	},
}

func withStore(fn func(*store.Store) error) error {
	if profileDB == "" {
		return fmt.Errorf("--db is required")
	}
	st, err := store.NewStore(profileDB)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
