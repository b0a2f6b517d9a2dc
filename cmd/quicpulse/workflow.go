package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/worldline-go/hardloop"

	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/history"
	"github.com/quicpulse/quicpulse/internal/httpstep"
	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/notify"
	"github.com/quicpulse/quicpulse/internal/script"
	"github.com/quicpulse/quicpulse/internal/transport"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

// runWorkflowCmd dispatches `quicpulse workflow run FILE` and
// `quicpulse workflow watch FILE --cron SPEC`.
func runWorkflowCmd(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return model.Errorf(model.KindArgument, nil, "usage: quicpulse workflow <run|watch> FILE")
	}

	sub, file := args[0], args[1]
	flags, _, err := splitFlags(args[2:])
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse flags")
	}

	wf, err := workflow.Load(file)
	if err != nil {
		return err
	}

	switch sub {
	case "run":
		return executeWorkflow(ctx, cfg, wf)
	case "watch":
		spec := flags["cron"]
		if spec == "" && wf.Schedule != nil {
			spec = wf.Schedule.Cron
		}
		if spec == "" {
			return model.Errorf(model.KindArgument, nil, "no --cron given and %s has no schedule", file)
		}
		return watchWorkflow(ctx, cfg, wf, spec)
	default:
		return model.Errorf(model.KindArgument, nil, "unknown workflow subcommand %q", sub)
	}
}

func buildEngine(cfg *config.Config) (*workflow.Engine, error) {
	client, err := transport.New(transport.ClientOptions{Timeout: cfg.Defaults.Timeout})
	if err != nil {
		return nil, err
	}

	runner := &httpstep.Runner{
		Client:        client.HTTP,
		BaseURL:       cfg.Defaults.BaseURL,
		GlobalHeaders: cfg.Defaults.Headers,
		MaxRedirects:  cfg.Defaults.MaxRedirects,
	}

	return &workflow.Engine{
		Runner:   runner,
		Script:   &script.Runner{Engine: script.New(nil, nil, os.Stderr)},
		Notifier: notify.New(cfg.Notify),
	}, nil
}

func executeWorkflow(ctx context.Context, cfg *config.Config, wf *workflow.Workflow) error {
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	report, err := engine.Run(ctx, wf)
	if err != nil {
		return err
	}

	store, serr := history.New(ctx, cfg.History)
	if serr == nil {
		defer store.Close()
		recordRun(ctx, store, wf.Name, report)
	}

	return summarizeReport(wf, report)
}

func recordRun(ctx context.Context, store history.Store, workflowName string, report *workflow.RunReport) {
	now := time.Now()
	for _, step := range report.Steps {
		rec := history.Record{
			WorkflowName: workflowName,
			StepName:     step.Name,
			StatusCode:   step.Result.StatusCode,
			Success:      step.Err == nil,
			StartedAt:    now,
			DurationMs:   step.Result.Latency.Milliseconds(),
		}
		if step.Err != nil {
			rec.ErrorMessage = step.Err.Error()
		}
		_ = store.Record(ctx, rec)
	}
}

func summarizeReport(wf *workflow.Workflow, report *workflow.RunReport) error {
	failed := 0
	for _, step := range report.Steps {
		status := "ok"
		if step.Skipped {
			status = "skipped"
		} else if step.Err != nil {
			status = "failed"
			failed++
		}
		fmt.Printf("%-24s %-8s %3d  %s\n", step.Name, status, step.Result.StatusCode, step.Result.Latency)
	}
	if failed > 0 {
		return model.Errorf(model.KindPipeline, report.Err, "%d of %d steps failed in %s", failed, len(report.Steps), wf.Name)
	}
	return nil
}

func watchWorkflow(ctx context.Context, cfg *config.Config, wf *workflow.Workflow, spec string) error {
	cron, err := hardloop.NewCron(hardloop.Cron{
		Name:  wf.Name,
		Specs: []string{spec},
		Func: func(ctx context.Context) error {
			return executeWorkflow(ctx, cfg, wf)
		},
	})
	if err != nil {
		return model.Errorf(model.KindConfig, err, "build cron schedule %q", spec)
	}

	if err := cron.Start(ctx); err != nil {
		return model.Errorf(model.KindPipeline, err, "start scheduler")
	}
	defer cron.Stop()

	<-ctx.Done()
	return nil
}
