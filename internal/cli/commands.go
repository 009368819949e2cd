package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"niftybot/internal/app"
	brcfg "niftybot/internal/config"
	"niftybot/internal/logger"
	"niftybot/internal/pipeline"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func (o *rootOptions) load() (*brcfg.Config, error) {
	cfg, err := brcfg.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(o.logLevel); lvl != "" {
		cfg.App.LogLevel = lvl
	}
	logger.SetLevel(cfg.App.LogLevel)
	return cfg, nil
}

// NewRootCmd builds the niftybot command tree. Running the root command
// without a subcommand starts the scheduled bot.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "niftybot",
		Short:         "NIFTY options trade-alert bot",
		Long:          "niftybot asks an AI assistant for NIFTY option trade ideas on a schedule, picks the highest-confidence one and posts it to Telegram.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduled(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default $"+brcfg.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newOnceCmd(opts))
	root.AddCommand(newCalendarCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the alert pipeline on its schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduled(cmd, opts)
		},
	}
}

func runScheduled(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	files, err := openLogs(cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("open log files: %w", err)
	}
	defer files.Close()
	logger.Infof("✓ config loaded (env=%s, source=%s)", cfg.App.Env, cfg.Source.Kind)

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := a.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Infof("niftybot stopped")
	return nil
}

func newOnceCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run the alert pipeline a single time and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			files, err := openLogs(cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("open log files: %w", err)
			}
			defer files.Close()

			a, err := app.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			out := a.RunOnce(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				printOutcome(cmd, out)
			}
			return out.Err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run outcome as JSON")
	return cmd
}

func printOutcome(cmd *cobra.Command, out pipeline.Outcome) {
	w := cmd.OutOrStdout()
	switch {
	case out.Skipped:
		fmt.Fprintf(w, "skipped: %s\n", out.Reason)
	case out.Delivered:
		fmt.Fprintf(w, "delivered:\n%s\n", out.Message)
	default:
		fmt.Fprintf(w, "not delivered (%s):\n%s\n", out.DeliveryError, out.Message)
	}
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show whether the market is open on a date and the next trading day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := app.NewApp(cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			cal := a.Calendar()
			ref := time.Now().In(cal.Location())
			if strings.TrimSpace(date) != "" {
				ref, err = time.ParseInLocation("2006-01-02", date, cal.Location())
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
			}

			w := cmd.OutOrStdout()
			day := ref.Format("2006-01-02")
			if reason := cal.Reason(ref); reason != "" {
				fmt.Fprintf(w, "%s (%s): closed, %s\n", day, ref.Weekday(), reason)
			} else {
				fmt.Fprintf(w, "%s (%s): open\n", day, ref.Weekday())
			}
			if next, ok := cal.NextOpen(ref); ok {
				fmt.Fprintf(w, "next trading day: %s (%s)\n", next.Format("2006-01-02"), next.Weekday())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to check in YYYY-MM-DD (today if empty)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "niftybot %s\n", Version)
		},
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
