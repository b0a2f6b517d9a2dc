package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/quicpulse/quicpulse/internal/config"
	"github.com/quicpulse/quicpulse/internal/model"
)

var (
	name    = "quicpulse"
	version = "v0.0.0"
)

func main() {
	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(ctx, "")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	verb, rest := os.Args[1], os.Args[2:]

	var cmdErr error
	switch verb {
	case "workflow":
		cmdErr = runWorkflowCmd(ctx, cfg, rest)
	case "history":
		cmdErr = runHistoryCmd(ctx, cfg, rest)
	case "generate":
		cmdErr = runGenerateCmd(ctx, rest)
	case "collection":
		cmdErr = runCollectionCmd(ctx, rest)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		// Any other first token is an HTTP method or a bare URL (spec
		// §6.1: "verbs are encoded as the first positional"), the
		// same ad hoc single-request path the original tool is named for.
		cmdErr = runRequestCmd(ctx, cfg, os.Args[1:])
	}

	if cmdErr == nil {
		return nil
	}

	os.Exit(exitCode(cmdErr))
	return cmdErr
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage:
  quicpulse [METHOD] URL [ITEM ...]       send a single request
  quicpulse workflow run FILE             run a workflow collection
  quicpulse workflow watch FILE --cron S  run a workflow on a schedule
  quicpulse history [--workflow NAME] [--limit N]
  quicpulse generate SPEC_FILE -o OUT.yaml
  quicpulse collection sync --repo PATH --message MSG`)
}

// exitCode maps a returned error onto spec §6.1's exit code table: 0
// success, 1 generic error, 2 timeout, 6 too many redirects, nonzero for
// argument errors.
func exitCode(err error) int {
	var merr *model.Error
	if !errors.As(err, &merr) {
		return 1
	}
	switch merr.Kind {
	case model.KindTimeout:
		return 2
	case model.KindTooManyRedirects:
		return 6
	case model.KindArgument:
		return 3
	default:
		return 1
	}
}
