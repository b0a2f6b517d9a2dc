package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/quicpulse/quicpulse/internal/model"
)

// runCollectionCmd implements `quicpulse collection sync --repo PATH
// --message MSG` (SUPPLEMENT, spec.md's data-model entry for a
// version-controlled workflow collection): stages every change in the
// collection's working tree, untracked files included, and commits it, so a team's workflow YAML
// files accumulate ordinary git history instead of needing a separate
// out-of-band changelog.
func runCollectionCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return model.Errorf(model.KindArgument, nil, "usage: quicpulse collection sync --repo PATH --message MSG")
	}

	sub, rest := args[0], args[1:]
	flags, _, err := splitFlags(rest)
	if err != nil {
		return model.Errorf(model.KindArgument, err, "parse flags")
	}

	switch sub {
	case "sync":
		return syncCollection(flags)
	default:
		return model.Errorf(model.KindArgument, nil, "unknown collection subcommand %q", sub)
	}
}

func syncCollection(flags map[string]string) error {
	repoPath := flags["repo"]
	if repoPath == "" {
		repoPath = "."
	}
	message := flags["message"]
	if message == "" {
		message = fmt.Sprintf("sync workflow collection %s", time.Now().Format(time.RFC3339))
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		if err != git.ErrRepositoryNotExists {
			return model.Errorf(model.KindIO, err, "open repository %s", repoPath)
		}
		repo, err = git.PlainInit(repoPath, false)
		if err != nil {
			return model.Errorf(model.KindIO, err, "init repository %s", repoPath)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return model.Errorf(model.KindIO, err, "open worktree for %s", repoPath)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return model.Errorf(model.KindIO, err, "stage changes in %s", repoPath)
	}

	status, err := wt.Status()
	if err != nil {
		return model.Errorf(model.KindIO, err, "read worktree status for %s", repoPath)
	}
	if status.IsClean() {
		fmt.Println("nothing to sync")
		return nil
	}

	sig := &object.Signature{
		Name:  flags["author"],
		Email: flags["email"],
		When:  time.Now(),
	}
	if sig.Name == "" {
		sig.Name = "quicpulse"
	}
	if sig.Email == "" {
		sig.Email = "quicpulse@localhost"
	}

	commit, err := wt.Commit(message, &git.CommitOptions{Author: sig})
	if err != nil {
		return model.Errorf(model.KindIO, err, "commit changes in %s", repoPath)
	}

	fmt.Println(commit.String())
	return nil
}
