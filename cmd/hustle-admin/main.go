// Command hustle-admin is the operator CLI: migrations, queue inspection,
// dead job recovery, and state machine audit history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/config"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"queue-stats": {
			name:        "queue-stats",
			description: "Show job counts per queue status",
			run:         runQueueStats,
		},
		"list-dead": {
			name:        "list-dead",
			description: "List dead jobs awaiting operator intervention",
			run:         runListDead,
		},
		"retry-dead": {
			name:        "retry-dead",
			description: "Reset dead jobs back to pending with a fresh retry budget",
			run:         runRetryDead,
		},
		"task-history": {
			name:        "task-history",
			description: "Show the transition audit log for a task",
			run:         runTaskHistory,
		},
		"escrow-history": {
			name:        "escrow-history",
			description: "Show the transition audit log for a task's escrow",
			run:         runEscrowHistory,
		},
		"proof-history": {
			name:        "proof-history",
			description: "Show the transition audit log for a proof submission",
			run:         runProofHistory,
		},
	}
}

func printUsage() {
	fmt.Fprintf(os.Stdout, "Usage: hustle-admin <command> [flags]\n\n")
	fmt.Fprintf(os.Stdout, "Available commands:\n")

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(os.Stdout, "  %-18s %s\n", name, cmds[name].description)
	}
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, db)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}
