package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	arcrcFile  string
	host       string
	token      string
	timeout    string
	verbose    bool
	debug      bool
	logJSON    bool

	// Output flags
	outputFile   string
	outputFormat string
	pretty       bool

	// Call flags
	paramsArg string
	standard  bool

	// Onsub flags
	room      string
	project   string
	stateFile string
	dryRun    bool

	// Watch flags
	schedule    string
	notifyURL   string
	metricsAddr string
	runOnStart  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Phabricator Conduit API client",
		Long: `conduit - A command line client for the Phabricator Conduit API.

Calls any Conduit method, reports action-needed tasks to a Conpherence room,
and watches the server on a schedule or through the notification feed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Call command
	callCmd := &cobra.Command{
		Use:   "call <namespace.operation>",
		Short: "Call a Conduit method",
		Long: `Call a Conduit method with parameters given as a JSON object.

--params accepts inline JSON, @file to read a file, or - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}

	// Whoami command
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the token belongs to",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	// Task onsub command
	onsubCmd := &cobra.Command{
		Use:   "task-onsub",
		Short: "Report subscribed action-needed tasks to a room",
		Long: `Post one line per open, subscribed task that needs an admin's action and
is tagged with the project to the given Conpherence room.`,
		Args: cobra.NoArgs,
		RunE: runTaskOnsub,
	}

	// Watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run task-onsub on a schedule and on feed notifications",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file (yaml, json or toml)")
	flags.StringVar(&arcrcFile, "arcrc", "", "Arcanist rc file for host and token (default ~/.arcrc)")
	flags.StringVar(&host, "host", "", "Server base URL (env CONDUIT_HOST)")
	flags.StringVar(&token, "token", "", "Conduit API token (env CONDUIT_TOKEN)")
	flags.StringVarP(&timeout, "timeout", "t", "", "Request timeout, e.g. 30s")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&debug, "debug", false, "Debug mode")
	flags.BoolVar(&logJSON, "log-json", false, "Log as JSON lines")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.StringVar(&outputFormat, "format", "json", "Output format (json, text)")
	flags.BoolVar(&pretty, "pretty", true, "Indent JSON output")

	// Call flags
	callCmd.Flags().StringVarP(&paramsArg, "params", "p", "", "Parameters as JSON, @file or -")
	callCmd.Flags().BoolVar(&standard, "standard", false, "Use standard form encoding")

	// Onsub flags, shared with watch
	for _, cmd := range []*cobra.Command{onsubCmd, watchCmd} {
		cmd.Flags().StringVar(&room, "room", "", "Conpherence thread id")
		cmd.Flags().StringVar(&project, "project", "", "Project name")
		cmd.Flags().StringVar(&stateFile, "state-file", "", "Ledger of reported tasks")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the report without posting")
	}

	// Watch flags
	watchCmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (5 fields)")
	watchCmd.Flags().StringVar(&notifyURL, "notify-url", "", "Notification feed URL")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for /metrics and /healthz")
	watchCmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "Run once before waiting for triggers")

	// Add commands
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(onsubCmd)
	rootCmd.AddCommand(watchCmd)

	return rootCmd
}
