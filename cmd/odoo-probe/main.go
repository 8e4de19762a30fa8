package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dandantas/odoo-probe/internal/config"
	"github.com/dandantas/odoo-probe/internal/prober"
	"github.com/dandantas/odoo-probe/internal/session"
)

var version = "dev"

// errUnhealthy signals exit status 1 without further diagnostics
var errUnhealthy = errors.New("odoo is unhealthy")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, "odoo-probe:", err)
		}
		os.Exit(1)
	}
}

// probeFlags are the settings that may override the environment
type probeFlags struct {
	url         string
	sessionFile string
	restoreLock string
	timeout     time.Duration
}

func (f *probeFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.url, "url", "", "Odoo base URL (overrides ODOO_URL)")
	fs.StringVar(&f.sessionFile, "session-file", "", "session token file (overrides SESSION_FILE)")
	fs.StringVar(&f.restoreLock, "restore-lock", "", "restore marker path (overrides RESTORE_LOCK_FILE)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout (overrides PROBE_TIMEOUT_SEC)")
}

// apply copies explicitly set flags onto cfg
func (f *probeFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("url") {
		cfg.OdooURL = f.url
	}
	if fs.Changed("session-file") {
		cfg.SessionFile = f.sessionFile
	}
	if fs.Changed("restore-lock") {
		cfg.RestoreLockFile = f.restoreLock
	}
	if fs.Changed("timeout") {
		cfg.ProbeTimeout = f.timeout
	}
}

func newRootCommand() *cobra.Command {
	flags := &probeFlags{}

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		cfg := config.Load()
		flags.apply(cmd.Flags(), cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cmd := &cobra.Command{
		Use:   "odoo-probe",
		Short: "Liveness probe for an Odoo server",
		Long: `Checks that Odoo answers its login page with a valid session.

Without a subcommand it runs one check and exits 0 when Odoo is healthy
and 1 otherwise. The session cookie is kept in SESSION_FILE between runs.
While RESTORE_LOCK_FILE exists the check reports healthy without contacting
Odoo.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags.bind(cmd.PersistentFlags())

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init-session",
			Short: "Request a fresh session from the database selector and store it",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				var hint string
				if len(args) == 1 {
					hint = args[0]
				}
				return runInitSession(cmd.Context(), cfg, hint, cmd.ErrOrStderr())
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Probe on a schedule and serve health, metrics and history over HTTP",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				return runWatch(cmd.Context(), cfg, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)

	return cmd
}

// newProber wires the prober to the file-backed session state
func newProber(cfg *config.Config) (*prober.Prober, error) {
	return prober.New(
		cfg.OdooURL,
		prober.NewHTTPClient(cfg.ProbeTimeout),
		session.NewTokenStore(cfg.SessionFile),
		session.NewRestoreLock(cfg.RestoreLockFile),
	)
}

func logReport(report prober.Report) {
	slog.Debug("Probe finished",
		"result", report.Result,
		"states", report.States,
		"status_code", report.StatusCode,
		"token_saved", report.TokenSaved,
		"restore_locked", report.RestoreLocked,
	)
}
