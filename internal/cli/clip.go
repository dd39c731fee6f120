package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/service"
)

var (
	clipProfile string
	clipAction  string
	clipContext string
	clipAddr    string
	clipTimeout time.Duration
)

// errUnsafe makes the process exit non-zero when the envelope rejects an action.
var errUnsafe = errors.New("action is unsafe")

func init() {
	rootCmd.AddCommand(clipCmd)
	clipCmd.Flags().StringVar(&clipProfile, "profile", "", "Path to bounds profile YAML")
	clipCmd.Flags().StringVar(&clipAction, "action", "", "Proposed action, comma-separated (e.g. 15,4.5)")
	clipCmd.Flags().StringVar(&clipContext, "context", "", "Context state, comma-separated")
	clipCmd.Flags().StringVar(&clipAddr, "addr", "", "Clip through a running envelope service instead of a local profile")
	clipCmd.Flags().DurationVar(&clipTimeout, "timeout", 5*time.Second, "RPC timeout when --addr is set")
}

var clipCmd = &cobra.Command{
	Use:   "clip [values...]",
	Short: "Clip one proposed action and print the result as JSON",
	Long: "Clips a single proposed action. Values come from --action or positional\n" +
		"arguments (use -- before negative numbers). Exits non-zero when the result is unsafe.",
	RunE: runClip,
}

func runClip(cmd *cobra.Command, args []string) error {
	proposed, err := parseValues(clipAction)
	if err != nil {
		return fmt.Errorf("parse --action: %w", err)
	}
	for _, a := range args {
		v, err := safety.ParseValue(a)
		if err != nil {
			return err
		}
		proposed = append(proposed, v)
	}
	state, err := parseValues(clipContext)
	if err != nil {
		return fmt.Errorf("parse --context: %w", err)
	}

	var res safety.ClipResult
	switch {
	case clipAddr != "":
		client, err := service.NewClient(clipAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), clipTimeout)
		defer cancel()
		remote, err := client.Clip(ctx, proposed, state)
		if err != nil {
			return err
		}
		res = remote.Result
	case clipProfile != "":
		p, _, err := config.LoadProfile(clipProfile)
		if err != nil {
			return err
		}
		res = safety.Clip(proposed, state, p.Bounds())
	default:
		return errors.New("one of --profile or --addr is required")
	}

	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.IsSafe {
		return errUnsafe
	}
	return nil
}
