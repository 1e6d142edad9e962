package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"safesupport/internal/panicbutton"
	"safesupport/internal/platform/config"
	"safesupport/internal/platform/logger"
)

const userAgent = "panicctl/1.0"

type rootOptions struct {
	server   string
	token    string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "panicctl",
		Short:         "Hold-to-activate panic button for the SafeSupport API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("SAFESUPPORT_URL", "http://localhost:4000"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SAFESUPPORT_TOKEN"), "bearer token from login")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newPressCmd(opts), newAlertCmd(opts), newHistoryCmd(opts))
	return root
}

func (o *rootOptions) client() *panicbutton.Client {
	return panicbutton.NewClient(o.server, o.token, userAgent, nil)
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	return logger.NewWithWriter(w, config.LogConfig{Level: o.logLevel, Format: "text"})
}

type locationFlags struct {
	lat, lng, accuracy float64
}

func (l *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&l.lat, "lat", 0, "latitude to report")
	cmd.Flags().Float64Var(&l.lng, "lng", 0, "longitude to report")
	cmd.Flags().Float64Var(&l.accuracy, "accuracy", 0, "position accuracy in metres")
}

// locator is nil unless both coordinates were given.
func (l *locationFlags) locator(cmd *cobra.Command) panicbutton.Locator {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return nil
	}
	return panicbutton.StaticLocator{Lat: l.lat, Lng: l.lng, Accuracy: l.accuracy}
}

func newPressCmd(opts *rootOptions) *cobra.Command {
	var (
		hold         time.Duration
		releaseAfter time.Duration
		smsTo        string
		message      string
		loc          locationFlags
	)
	cmd := &cobra.Command{
		Use:   "press",
		Short: "Hold the button and send one SMS alert",
		Example: `  panicctl press --sms-to "+15550001,+15550002" --lat 51.5 --lng -0.12
  panicctl press --sms-to +15550001 --release-after 500ms   # released early, cancelled`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if releaseAfter <= 0 {
				releaseAfter = hold
			}
			var to any
			if smsTo != "" {
				to = smsTo
			}
			ctrl := panicbutton.NewController(opts.client(), loc.locator(cmd), panicbutton.Config{
				Mode:       panicbutton.ModeSMS,
				Hold:       hold,
				SMSTo:      to,
				SMSMessage: message,
			}, opts.logger(cmd.ErrOrStderr()))

			notice, completed, err := ctrl.Hold(cmd.Context(), releaseAfter)
			if err != nil {
				return err
			}
			if !completed {
				fmt.Fprintln(cmd.OutOrStdout(), "released early, alert cancelled")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice)
			if notice.Level == panicbutton.LevelError {
				return fmt.Errorf("alert not delivered")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", panicbutton.DefaultHold, "how long the button must be held")
	cmd.Flags().DurationVar(&releaseAfter, "release-after", 0, "release the button after this long (default: --hold)")
	cmd.Flags().StringVar(&smsTo, "sms-to", "", "comma separated numbers to alert")
	cmd.Flags().StringVar(&message, "message", panicbutton.DefaultMessage, "SMS text")
	loc.register(cmd)
	return cmd
}

func newAlertCmd(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		duration time.Duration
		loc      locationFlags
	)
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Send the location now and keep resending it until stopped",
		Example: `  panicctl alert --lat 51.5 --lng -0.12              # until Ctrl-C
  panicctl alert --lat 51.5 --lng -0.12 --duration 2m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl := panicbutton.NewController(opts.client(), loc.locator(cmd), panicbutton.Config{
				Mode:           panicbutton.ModeContinuous,
				ResendInterval: interval,
			}, opts.logger(cmd.ErrOrStderr()))

			ctx := cmd.Context()
			if err := ctrl.Press(ctx, false); err != nil {
				return err
			}
			notice, err := ctrl.Complete(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notice)
			if ctrl.State() != panicbutton.StateAlerting {
				return fmt.Errorf("alerting did not start")
			}

			var deadline <-chan time.Time
			if duration > 0 {
				timer := time.NewTimer(duration)
				defer timer.Stop()
				deadline = timer.C
			}
			select {
			case <-ctx.Done():
			case <-deadline:
			}

			stopped, err := ctrl.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stopped)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", panicbutton.DefaultResendInterval, "time between location updates")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (default: until interrupted)")
	loc.register(cmd)
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your recent alerts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := opts.client().History(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no alerts")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-12s", time.UnixMilli(e.ReceivedAt).UTC().Format(time.RFC3339), e.Type)
				if e.Transport != "" {
					line += "  via " + e.Transport
				}
				if len(e.To) > 0 {
					line += "  to " + strings.Join(e.To, ", ")
				}
				fmt.Fprintln(out, strings.TrimRight(line, " "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
