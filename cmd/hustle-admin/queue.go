package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

const commandTimeout = 2 * time.Minute

func runQueueStats(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("queue-stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, db)

	stats, err := newJobRepo(cmdCtx, db).Stats(ctx)
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	fmt.Fprintf(w, "pending\t%d\n", stats.Pending)
	fmt.Fprintf(w, "processing\t%d\n", stats.Processing)
	fmt.Fprintf(w, "completed\t%d\n", stats.Completed)
	fmt.Fprintf(w, "failed\t%d\n", stats.Failed)
	fmt.Fprintf(w, "dead\t%d\n", stats.Dead)
	return w.Flush()
}

func runListDead(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-dead", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum number of jobs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, db)

	jobs, err := newJobRepo(cmdCtx, db).ListDead(ctx, *limit)
	if err != nil {
		return fmt.Errorf("list dead jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, "no dead jobs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tATTEMPTS\tUPDATED\tLAST ERROR")
	for _, job := range jobs {
		lastError := ""
		if job.LastError != nil {
			lastError = truncate(*job.LastError, 80)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			job.ID,
			job.Type,
			job.Attempts,
			job.MaxAttempts,
			job.UpdatedAt.Format(time.RFC3339),
			lastError,
		)
	}
	return w.Flush()
}

func runRetryDead(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("retry-dead", flag.ContinueOnError)
	id := fs.String("id", "", "retry a single dead job by id")
	all := fs.Bool("all", false, "retry all dead jobs")
	jobType := fs.String("type", "", "with --all, restrict to one job type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*id == "") == !*all {
		return errors.New("exactly one of --id or --all is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeQuietly(cmdCtx.Logger, db)

	repo := newJobRepo(cmdCtx, db)

	if *id != "" {
		retried, retryErr := repo.RetryDead(ctx, *id)
		if retryErr != nil {
			return fmt.Errorf("retry dead job: %w", retryErr)
		}
		if !retried {
			return fmt.Errorf("job %s is not dead", *id)
		}
		fmt.Fprintf(os.Stdout, "job %s requeued\n", *id)
		return nil
	}

	var jt model.JobType
	if *jobType != "" {
		if parseErr := jt.UnmarshalText([]byte(*jobType)); parseErr != nil {
			return parseErr
		}
	}

	count, err := repo.RetryAllDead(ctx, jt)
	if err != nil {
		return fmt.Errorf("retry all dead jobs: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%d dead jobs requeued\n", count)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
