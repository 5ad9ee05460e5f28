/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rootspan

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/llmtrace/semconv"
)

// DisableGitEnv opts out of provenance capture entirely when set to a truthy
// value.
const DisableGitEnv = "LLMTRACE_DISABLE_GIT"

var semverTag = regexp.MustCompile(`^v?\d+\.\d+\.\d+`)

var (
	gitOnce  sync.Once
	gitAttrs []attribute.KeyValue
)

// provenance resolves git attributes for the working directory's repository,
// once per process. Each attribute is emitted only when its value resolved;
// a missing repo, detached state, or absent remote just narrows the set.
func provenance(ctx context.Context) []attribute.KeyValue {
	gitOnce.Do(func() {
		if disabled, _ := strconv.ParseBool(os.Getenv(DisableGitEnv)); disabled {
			return
		}
		gitAttrs = capture(ctx)
	})
	return gitAttrs
}

func capture(ctx context.Context) []attribute.KeyValue {
	log := clog.FromContext(ctx)

	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		log.Debugf("no git repository detected: %v", err)
		return nil
	}

	var out []attribute.KeyValue

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			out = append(out, attribute.String(semconv.GitRepository, urls[0]))
		}
	}

	head, err := repo.Head()
	if err != nil {
		log.Debugf("unable to resolve git HEAD: %v", err)
		return out
	}
	if head.Name().IsBranch() {
		out = append(out, attribute.String(semconv.GitBranch, head.Name().Short()))
	}
	out = append(out, attribute.String(semconv.GitCommitHash, head.Hash().String()))

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		out = append(out,
			attribute.String(semconv.GitCommitMessage, strings.TrimSpace(commit.Message)),
			attribute.String(semconv.GitCommitTimestamp, commit.Committer.When.UTC().Format(time.RFC3339)),
		)
	}

	if tag := headSemverTag(repo, head.Hash()); tag != "" {
		out = append(out, attribute.String(semconv.GitSemverTag, tag))
	}
	return out
}

// headSemverTag returns a semver-shaped tag pointing at head, following
// annotated tags to their target. Empty when none matches.
func headSemverTag(repo *git.Repository, head plumbing.Hash) string {
	tags, err := repo.Tags()
	if err != nil {
		return ""
	}
	defer tags.Close()

	var found string
	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !semverTag.MatchString(name) {
			return nil
		}
		target := ref.Hash()
		if tag, err := repo.TagObject(ref.Hash()); err == nil {
			target = tag.Target
		}
		if target == head {
			found = name
		}
		return nil
	})
	return found
}
