// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

type (
	// Cloner materializes a git repository at dest.
	Cloner interface {
		Clone(ctx context.Context, url, ref, dest string) error
	}

	// GitFetcher performs shallow clones with go-git.
	GitFetcher struct {
		auth     transport.AuthMethod
		progress io.Writer
	}
)

// NewGitFetcher creates a GitFetcher. A GITHUB_TOKEN or GIT_TOKEN in the
// environment is used for HTTPS authentication; public repositories need
// neither.
func NewGitFetcher(progress io.Writer) *GitFetcher {
	f := &GitFetcher{progress: progress}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		f.auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	} else if token := os.Getenv("GIT_TOKEN"); token != "" {
		f.auth = &githttp.BasicAuth{Username: "git", Password: token}
	}
	return f
}

// Clone makes a depth-1 single-branch clone of url into dest and removes
// the .git directory so only the working tree remains. An empty ref clones
// the default branch; otherwise ref is tried as a branch, then as a tag.
func (f *GitFetcher) Clone(ctx context.Context, url, ref, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	refs := []plumbing.ReferenceName{""}
	if ref != "" {
		refs = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(ref),
			plumbing.NewTagReferenceName(ref),
		}
	}

	var errs []error
	for _, name := range refs {
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:           url,
			Auth:          f.auth,
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         1,
			Progress:      f.progress,
		})
		if err == nil {
			return os.RemoveAll(filepath.Join(dest, git.GitDirName))
		}
		errs = append(errs, err)
		_ = os.RemoveAll(dest) // clean up the failed attempt
		if ctx.Err() != nil {
			break
		}
	}

	if ref == "" {
		return fmt.Errorf("cloning %s: %w", url, errors.Join(errs...))
	}
	return fmt.Errorf("cloning %s at %s: %w", url, ref, errors.Join(errs...))
}
