package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"officedesk"
	"officedesk/internal/app"
	"officedesk/internal/backend"
	"officedesk/internal/config"
	"officedesk/internal/history"
	histsqlite "officedesk/internal/history/sqlite"
	"officedesk/internal/metrics"
	"officedesk/internal/probe"
	"officedesk/internal/server"
	"officedesk/internal/window"
)

// buildRoot creates the root command and all subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	probeFlags := &ProbeFlags{}
	statusFlags := &StatusFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createHeadlessCommand(globalFlags),
		createProbeCommand(globalFlags, probeFlags),
		createStatusCommand(statusFlags),
		createVersionCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "officedesk",
		Short: "Desktop shell for the office attendance suite",
		Long: `Officedesk launches the office attendance/leave/payroll backend as a
child process, waits for it to answer on its loopback address, and opens it
in a native window.

Examples:
  officedesk                          # launch backend and open the window
  officedesk headless                 # launch backend without a window
  officedesk probe --url=http://127.0.0.1:8000/
  officedesk status                   # query a running launcher`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(flags.ConfigPath, true)
		},
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createHeadlessCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "headless",
		Short: "Run the backend supervisor and prober without a window",
		Long: `Run the supervisor, readiness prober, history and diagnostics API, but
never open a window. Useful over SSH or under a session manager. The session
ends on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(flags.ConfigPath, false)
		},
	}
}

func createProbeCommand(global *GlobalFlags, flags *ProbeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Issue a one-shot readiness check",
		Long: `Poll the backend URL until it answers or the limits trip, then exit 0
when ready and 1 otherwise. Defaults come from the config file's probe and
backend sections; flags override.

Examples:
  officedesk probe
  officedesk probe --url=http://127.0.0.1:8010/ --timeout=5s --max-attempts=10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(global.ConfigPath, *flags)
		},
	}
	cmd.Flags().StringVar(&flags.URL, "url", "", "target URL (default: backend address from config)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "overall probe deadline")
	cmd.Flags().IntVar(&flags.MaxAttempts, "max-attempts", 0, "attempt ceiling")
	cmd.Flags().DurationVar(&flags.Interval, "interval", 0, "delay between attempts")
	cmd.Flags().StringVar(&flags.Policy, "policy", "", "success policy: redirect_ok or non_5xx")
	return cmd
}

func createStatusCommand(flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running launcher's diagnostics API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "http://"+config.DefaultAPIListen, "diagnostics API base URL")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 5*time.Second, "request timeout")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the launcher version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("officedesk %s\n", officedesk.Version)
		},
	}
}

// loadConfig reads the --config file, or officedesk.toml next to the
// executable when present.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if exe, err := os.Executable(); err == nil {
			cand := filepath.Join(filepath.Dir(exe), "officedesk.toml")
			if _, err := os.Stat(cand); err == nil {
				path = cand
			}
		}
	}
	return config.Load(path)
}

// runLauncher drives one full launcher session, windowed or headless.
func runLauncher(cfgPath string, windowed bool) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	log := cfg.Log.NewSlogger()
	slog.SetDefault(log)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", "error", err)
	}

	pc, err := cfg.ProberConfig()
	if err != nil {
		return err
	}

	var sinks []history.Sink
	if dsn := cfg.HistoryDSN(); dsn != "" {
		sink, err := histsqlite.New(dsn)
		if err != nil {
			log.Warn("launch history disabled", "dsn", dsn, "error", err)
		} else {
			defer func() { _ = sink.Close() }()
			sinks = append(sinks, sink)
		}
	}

	var presenter window.Presenter
	if windowed {
		presenter = window.NewWebview(cfg.Window, officedesk.Version)
	}

	a := app.New(app.Options{
		Supervisor: backend.NewSupervisor(cfg.BackendSpec()),
		Prober:     probe.New(pc),
		Presenter:  presenter,
		Sinks:      sinks,
		Logger:     log,
		Title:      cfg.Window.Title,
	})

	if addr := cfg.APIListen(); addr != "" {
		srv := server.NewServer(addr, a)
		defer func() { _ = srv.Close() }()
		log.Info("diagnostics api listening", "addr", addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

// runProbe performs a single readiness check and reports via the exit code.
func runProbe(cfgPath string, flags ProbeFlags) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Log.NewSlogger())

	pc, err := cfg.ProberConfig()
	if err != nil {
		return err
	}
	if flags.Timeout > 0 {
		pc.Timeout = flags.Timeout
	}
	if flags.MaxAttempts > 0 {
		pc.MaxAttempts = flags.MaxAttempts
	}
	if flags.Interval > 0 {
		pc.Interval = flags.Interval
	}
	if flags.Policy != "" {
		policy, err := config.ParsePolicy(flags.Policy)
		if err != nil {
			return err
		}
		pc.Policy = policy
	}
	url := flags.URL
	if url == "" {
		url = cfg.BackendSpec().URL()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res := probe.New(pc).WaitForReady(ctx, url)
	fmt.Printf("outcome=%s attempts=%d elapsed=%s last_status=%d\n",
		res.Outcome, res.Attempts, res.Elapsed.Round(time.Millisecond), res.StatusCode)
	if !res.Ready() {
		if res.Err != nil {
			return fmt.Errorf("backend not ready: %s (%v)", res.Outcome, res.Err)
		}
		return fmt.Errorf("backend not ready: %s", res.Outcome)
	}
	return nil
}

// runStatus fetches /status from a running launcher and prints the body.
func runStatus(out io.Writer, flags StatusFlags) error {
	client := &http.Client{Timeout: flags.APITimeout}
	resp, err := client.Get(flags.APIUrl + "/status")
	if err != nil {
		return fmt.Errorf("query diagnostics api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("diagnostics api returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}
