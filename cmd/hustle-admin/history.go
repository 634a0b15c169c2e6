package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

func runTaskHistory(cmdCtx *commandContext, args []string) error {
	return runHistory(cmdCtx, args, "task-history", func(ctx context.Context, cmdCtx *commandContext, id string) ([]model.TransitionRecord, error) {
		db, err := connectDB(cmdCtx)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(cmdCtx.Logger, db)
		return data.NewTaskRepo(db, data.TaskRepoConfig{Logger: cmdCtx.Logger}).History(ctx, id)
	})
}

func runEscrowHistory(cmdCtx *commandContext, args []string) error {
	return runHistory(cmdCtx, args, "escrow-history", func(ctx context.Context, cmdCtx *commandContext, id string) ([]model.TransitionRecord, error) {
		db, err := connectDB(cmdCtx)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(cmdCtx.Logger, db)
		jobs := newJobRepo(cmdCtx, db)
		return data.NewEscrowRepo(db, jobs, data.EscrowRepoConfig{Logger: cmdCtx.Logger}).History(ctx, id)
	})
}

func runProofHistory(cmdCtx *commandContext, args []string) error {
	return runHistory(cmdCtx, args, "proof-history", func(ctx context.Context, cmdCtx *commandContext, id string) ([]model.TransitionRecord, error) {
		db, err := connectDB(cmdCtx)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(cmdCtx.Logger, db)
		return data.NewProofRepo(db, data.ProofRepoConfig{Logger: cmdCtx.Logger}).History(ctx, id)
	})
}

type historyFetcher func(ctx context.Context, cmdCtx *commandContext, id string) ([]model.TransitionRecord, error)

func runHistory(cmdCtx *commandContext, args []string, name string, fetch historyFetcher) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("id", "", "entity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	records, err := fetch(ctx, cmdCtx, *id)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no transitions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tFROM\tTO\tACTOR\tAT")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.FromState,
			rec.ToState,
			rec.Actor,
			rec.CreatedAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}
