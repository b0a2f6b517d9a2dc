package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/history"
	"github.com/quicpulse/quicpulse/internal/model"
)

// runHistoryCmd implements `quicpulse history [--workflow NAME] [--limit N]`.
func runHistoryCmd(ctx context.Context, cfg *config.Config, args []string) error {
	flags, _, err := splitFlags(args)
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse flags")
	}

	filter := history.Filter{
		WorkflowName: flags["workflow"],
		Limit:        50,
	}
	if v, ok := flags["limit"]; ok {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return model.Errorf(model.KindArgument, perr, "--limit must be an integer")
		}
		filter.Limit = n
	}

	store, err := history.New(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(ctx, filter)
	if err != nil {
		return err
	}

	for _, r := range records {
		status := "ok"
		if !r.Success {
			status = "FAIL"
		}
		fmt.Printf("%s  %-20s %-16s %4d  %-5s  %6dms  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.WorkflowName, r.StepName,
			r.StatusCode, status, r.DurationMs, r.ErrorMessage)
	}
	return nil
}
