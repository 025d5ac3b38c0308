// Command patrolaudit audits security-patrol event logs and reports every
// non-conformity against the configured round rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/patrolaudit/internal/logging"

	// Register source implementations.
	_ "github.com/crimson-sun/patrolaudit/internal/connector/file"
	_ "github.com/crimson-sun/patrolaudit/internal/connector/httpsrc"
	_ "github.com/crimson-sun/patrolaudit/internal/connector/stdin"
)

// errNoPatrolData is returned when an input held neither rounds nor
// violations. It maps to exit status 2.
var errNoPatrolData = errors.New("no patrol rounds found")

// loggerInit builds the process logger from the resolved config.
type loggerInit func(json bool, level slog.Level) *slog.Logger

type app struct {
	stdout     io.Writer
	stderr     io.Writer
	initLogger loggerInit
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, logging.Init)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, initLogger loggerInit) int {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr, initLogger: initLogger})
	root.SetArgs(args)
	return exitCode(root.ExecuteContext(ctx), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoPatrolData):
		return 2
	default:
		fmt.Fprintf(stderr, "patrolaudit: %v\n", err)
		return 1
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "patrolaudit",
		Short: "Audit security-patrol logs for round non-conformities",
		Long: `patrolaudit reads the event log exported by a patrol data collector,
reconstructs each guard round, and reports every rule violation:
checkpoints outside a round, skipped or out-of-order checkpoints,
gaps longer than the allowed interval, incomplete rounds, restarted
rounds and rounds that never discharged the collector.

Settings come from a YAML file (--config), then PATROL_* environment
variables, then command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "patrolaudit.yaml", "path to the YAML config file (missing file means defaults)")

	root.AddCommand(newAnalyzeCmd(a), newConfigCmd(a), newRosterCmd(a))
	return root
}
