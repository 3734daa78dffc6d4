package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/actionsum/sac/internal/config"
	"github.com/actionsum/sac/internal/daemon"
	"github.com/actionsum/sac/internal/database"
	"github.com/actionsum/sac/internal/logging"
	"github.com/actionsum/sac/internal/reporter"
	"github.com/actionsum/sac/internal/tracker"
	"github.com/actionsum/sac/internal/web"
	"github.com/actionsum/sac/pkg/classify"
	"github.com/actionsum/sac/pkg/detector"
)

const shutdownTimeout = 10 * time.Second

type command struct {
	flags *GlobalFlags
}

func (c command) config() (*config.Config, error) {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Run runs the monitor in the foreground until interrupted.
func (c command) Run(ctx context.Context, withWeb bool, port int) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	return serve(ctx, cfg, withWeb, port)
}

// Daemon detaches a child process on first call; the child runs the monitor.
func (c command) Daemon(cmd *cobra.Command, withWeb bool, port int) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon is already running (PID: %d)", pid)
	}

	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(os.TempDir(), fmt.Sprintf("sac-%d.log", os.Getuid()))
	}

	if !daemon.IsChild() {
		pid, err := daemon.Spawn(os.Args[1:])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
		if withWeb {
			webPort := cfg.Web.Port
			if port > 0 {
				webPort = port
			}
			_, _ = fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, webPort)
		}
		_, _ = fmt.Fprintf(out, "Logs: %s\n", cfg.Log.File)
		return nil
	}

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer func() { _ = dm.RemovePID() }()

	return serve(cmd.Context(), cfg, withWeb, port)
}

// serve runs the tracker, and the web server when withWeb is set, until a
// signal arrives or one of them fails.
func serve(ctx context.Context, cfg *config.Config, withWeb bool, port int) error {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := tracker.NewService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	logger.Debug("configuration", zap.String("config", cfg.String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := svc.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err == nil {
			return nil
		}
		return fmt.Errorf("monitor stopped: %w", err)
	})

	if withWeb {
		if svc.Repository() == nil {
			return errors.New("the web API requires database.enabled")
		}
		rep, err := reporter.New(svc.Repository(), cfg.Report.TimeZone)
		if err != nil {
			return err
		}
		handler := web.NewHandler(svc.Repository(), rep, svc.Monitor(), cfg.Monitor.Interval)
		srv := web.NewServer(cfg, handler, port, logger.Named("web"))

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("sac stopped")
	return err
}

func (c command) Stop(out io.Writer) error {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		_, _ = fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	_, _ = fmt.Fprintln(out, "Daemon stopped successfully")
	return nil
}

func (c command) Status(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		_, _ = fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
		_, _ = fmt.Fprintf(out, "Interval: %v\n", cfg.Monitor.Interval)
	} else {
		_, _ = fmt.Fprintln(out, "Status: Not running")
	}

	if cfg.Database.Enabled {
		if db, err := database.Connect(cfg.Database.Path); err == nil {
			if err := db.Initialize(); err == nil {
				latest, err := database.NewRepository(db).GetLatest()
				if err == nil && latest != nil {
					_, _ = fmt.Fprintf(out, "Last activity: %s (%s)\n",
						latest.Label, latest.Timestamp.Format(time.RFC3339))
				}
			}
			_ = db.Close()
		}
	}

	// Current activity from the focused window, when a display is reachable
	d, err := detector.New(cfg.Classifier.IdleThreshold)
	if err != nil {
		_, _ = fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
		return nil
	}
	defer func() { _ = d.Close() }()

	if info, err := d.GetFocusedWindow(); err == nil && info != nil {
		_, _ = fmt.Fprintf(out, "\nCurrent Window:\n")
		_, _ = fmt.Fprintf(out, "  App: %s\n", info.AppName)
		_, _ = fmt.Fprintf(out, "  Title: %s\n", info.WindowTitle)
		_, _ = fmt.Fprintf(out, "  Display: %s\n", info.DisplayServer)
	}
	if label, err := classify.NewWindow(d, cfg.Classifier.Rules...).Classify(ctx, nil); err == nil {
		_, _ = fmt.Fprintf(out, "  Activity: %s\n", label)
	}

	return nil
}

// Once runs one cycle with every sink attached and prints the label.
func (c command) Once(ctx context.Context, out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, err := tracker.NewService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if _, err := svc.Monitor().Register(func(activity string) {
		_, _ = fmt.Fprintln(out, activity)
	}); err != nil {
		return err
	}

	return svc.RunOnce(ctx)
}

func (c command) Report(out io.Writer, period string, asJSON bool) error {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Initialize(); err != nil {
		return err
	}

	rep, err := reporter.New(database.NewRepository(db), cfg.Report.TimeZone)
	if err != nil {
		return err
	}

	report, err := rep.GenerateReport(period)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if asJSON {
		s, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, s)
		return nil
	}

	_, _ = fmt.Fprint(out, rep.FormatReportText(report))
	return nil
}

func (c command) Clear(in io.Reader, out io.Writer, yes bool) error {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return err
	}

	if !yes {
		_, _ = fmt.Fprint(out, "This will delete all recorded activities. Are you sure? (yes/no): ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			_, _ = fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Initialize(); err != nil {
		return err
	}

	if err := database.NewRepository(db).Clear(); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}

	_, _ = fmt.Fprintln(out, "Database cleared successfully")
	return nil
}
