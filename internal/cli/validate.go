package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

var validateJSON bool

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
}

var validateCmd = &cobra.Command{
	Use:   "validate <profile.yaml>",
	Short: "Check a bounds profile and print the resolved limits",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, hash, err := config.LoadProfile(args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if validateJSON {
		return printJSON(w, map[string]any{
			"profile":  p,
			"hash":     hash,
			"warnings": p.Warnings(),
		})
	}

	fmt.Fprintf(w, "profile %s (%s)\n", p.Name, hash)
	fmt.Fprintf(w, "%-16s  %10s  %10s  %10s  %10s\n", "Dimension", "LowerHard", "LowerSoft", "UpperSoft", "UpperHard")
	for _, d := range p.Dimensions {
		fmt.Fprintf(w, "%-16s  %10s  %10s  %10s  %10s\n", d.Name,
			safety.FormatValue(d.Bounds.LowerHard), safety.FormatValue(d.Bounds.LowerSoft),
			safety.FormatValue(d.Bounds.UpperSoft), safety.FormatValue(d.Bounds.UpperHard))
	}
	for _, warn := range p.Warnings() {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}
