package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quicpulse/quicpulse/internal/model"
	"github.com/quicpulse/quicpulse/internal/specgen"
	"github.com/quicpulse/quicpulse/internal/workflow"
)

// runGenerateCmd implements `quicpulse generate SPEC_FILE -o OUT.yaml`
// (spec §4.7): turns an OpenAPI document into a runnable workflow.
func runGenerateCmd(ctx context.Context, args []string) error {
	flags, positional, err := splitFlags(normalizeShortFlag(args, "-o", "--out"))
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse flags")
	}
	if len(positional) == 0 {
		return model.Errorf(model.KindArgument, nil, "usage: quicpulse generate SPEC_FILE -o OUT.yaml")
	}

	data, err := os.ReadFile(positional[0])
	if err != nil {
		return model.Errorf(model.KindIO, err, "read %s", positional[0])
	}

	opts := specgen.Options{BaseURL: flags["base-url"]}
	if tags := flags["tags"]; tags != "" {
		opts.Tags = strings.Split(tags, ",")
	}
	if methods := flags["methods"]; methods != "" {
		opts.Methods = strings.Split(methods, ",")
	}
	opts.IncludeDeprecated = flags["include-deprecated"] != ""

	wf, err := specgen.Generate(data, opts)
	if err != nil {
		return err
	}

	out := flags["out"]
	if out == "" {
		b, merr := workflow.Marshal(wf)
		if merr != nil {
			return merr
		}
		fmt.Print(string(b))
		return nil
	}
	return workflow.Save(out, wf)
}

// normalizeShortFlag rewrites a short alias like "-o" into its long form
// ("--out") so splitFlags only has to understand "--name" tokens.
func normalizeShortFlag(args []string, short, long string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == short {
			out = append(out, long)
			continue
		}
		out = append(out, a)
	}
	return out
}
