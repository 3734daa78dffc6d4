package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
}

// ReportFlags holds flags for the report command
type ReportFlags struct {
	JSON bool
}

// ServeFlags holds flags for the serve and run commands
type ServeFlags struct {
	Port int
	Web  bool
}

// buildRoot creates the root command and all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	reportFlags := &ReportFlags{}
	serveFlags := &ServeFlags{}
	var clearYes bool

	sacCommand := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(sacCommand, serveFlags),
		createStartCommand(sacCommand),
		createServeCommand(sacCommand, serveFlags),
		createStopCommand(sacCommand),
		createStatusCommand(sacCommand),
		createOnceCommand(sacCommand),
		createReportCommand(sacCommand, reportFlags),
		createClearCommand(sacCommand, &clearYes),
		createVersionCommand(),
	)

	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "sac",
		Short: "Screen activity classifier",
		Long: `sac periodically captures the screen, classifies what you are doing
and hands the activity label to its sinks: a local SQLite history,
an optional Redis channel and the log.

Examples:
  sac run                        # foreground, Ctrl+C to stop
  sac serve                      # background daemon with web dashboard
  sac report week --json
  SAC_CLASSIFIER_KIND=genai SAC_CLASSIFIER_API_KEY=... sac once`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to config file (toml, yaml or json)")

	return root
}

func createRunCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), flags.Web, flags.Port)
		},
	}
	cmd.Flags().BoolVar(&flags.Web, "web", false, "also serve the web dashboard and API")
	cmd.Flags().IntVar(&flags.Port, "port", 0, "web port (overrides config)")
	return cmd
}

func createStartCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the monitor as a background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Daemon(cmd, false, 0)
		},
	}
}

func createServeCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor and web API as a background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Daemon(cmd, true, flags.Port)
		},
	}
	cmd.Flags().IntVar(&flags.Port, "port", 0, "web port (overrides config)")
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(cmd.OutOrStdout())
		},
	}
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the current activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func createOnceCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single capture and classify cycle and print the label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Once(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func createReportCommand(c command, flags *ReportFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Show time spent per activity",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "day"
			if len(args) == 1 {
				period = args[0]
			}
			return c.Report(cmd.OutOrStdout(), period, flags.JSON)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print the report as JSON")
	return cmd
}

func createClearCommand(c command, yes *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Clear(cmd.InOrStdin(), cmd.OutOrStdout(), *yes)
		},
	}
	cmd.Flags().BoolVarP(yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sac %s\n", version)
		},
	}
}
