// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/kspmod/kspmod/internal/github"
	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/spacedock"
	"github.com/kspmod/kspmod/internal/tui"

	"github.com/charmbracelet/log"
)

type (
	// Registry looks up mods on SpaceDock.
	Registry interface {
		Mod(ctx context.Context, id string) (*spacedock.Mod, error)
		Search(ctx context.Context, query string) ([]spacedock.Mod, error)
		DownloadURL(m *spacedock.Mod) string
	}

	// Releases looks up GitHub release assets and source archives.
	Releases interface {
		LatestAsset(ctx context.Context, owner, repo string) (*github.Release, *github.Asset, error)
		ArchiveURL(owner, repo, ref string) string
		Authorize(req *http.Request)
	}

	// Resolver turns references into materialized mod directories.
	Resolver struct {
		prompter   tui.Prompter
		registry   Registry
		releases   Releases
		downloader *Downloader
		cloner     Cloner
		tempDir    string
		out        io.Writer
		logger     *log.Logger
	}

	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)
)

// WithRegistry sets the SpaceDock client.
func WithRegistry(r Registry) ResolverOption {
	return func(res *Resolver) { res.registry = r }
}

// WithReleases sets the GitHub client.
func WithReleases(r Releases) ResolverOption {
	return func(res *Resolver) { res.releases = r }
}

// WithDownloader sets the Downloader.
func WithDownloader(d *Downloader) ResolverOption {
	return func(res *Resolver) { res.downloader = d }
}

// WithCloner sets the git cloner.
func WithCloner(c Cloner) ResolverOption {
	return func(res *Resolver) { res.cloner = c }
}

// WithTempDir sets the parent of workspaces; "" means os.TempDir().
func WithTempDir(dir string) ResolverOption {
	return func(res *Resolver) { res.tempDir = dir }
}

// WithOutput sets where status lines ("Downloading...") are written.
func WithOutput(w io.Writer) ResolverOption {
	return func(res *Resolver) { res.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ResolverOption {
	return func(res *Resolver) { res.logger = l }
}

// NewResolver creates a Resolver asking questions through p. Unset clients
// default to the public SpaceDock and GitHub endpoints.
func NewResolver(p tui.Prompter, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prompter: p,
		out:      os.Stdout,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = spacedock.NewClient()
	}
	if r.releases == nil {
		r.releases = github.NewClient(github.WithToken(os.Getenv("GITHUB_TOKEN")))
	}
	if r.downloader == nil {
		r.downloader = NewDownloader(WithProgressOutput(r.out), WithDownloadLogger(r.logger))
	}
	if r.cloner == nil {
		r.cloner = NewGitFetcher(nil)
	}
	return r
}

// Acquire resolves raw and, when the outcome is Proceed, calls fn with the
// ModDir and releases it afterwards, whatever fn returns. A callback error
// built by SkipMod turns the outcome into a Skip. The Dir of the outcome
// must not be used after Acquire returns.
func (r *Resolver) Acquire(ctx context.Context, raw string, fn func(*ModDir) error) (Outcome, error) {
	out, err := r.Resolve(ctx, raw)
	if err != nil || out.Action != Proceed {
		return out, err
	}

	dir := out.Dir
	fnErr := fn(dir)
	var skipped *skipError
	if errors.As(fnErr, &skipped) {
		out, fnErr = skip(skipped.reason), nil
	}
	if relErr := dir.Release(); relErr != nil {
		r.logger.Warn("could not remove temporary files", "dir", dir.Workspace(), "err", relErr)
		return out, errors.Join(fnErr, relErr)
	}
	return out, fnErr
}

// Resolve classifies raw and materializes it. Outcomes with Action Abort
// carry one of ErrDeclined, ErrNoResults, ErrInvalidReference, ErrNotFound
// or ErrNoDownload as Reason; I/O and network failures are returned as
// errors. On Proceed the caller owns the ModDir and must Release it.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Outcome, error) {
	ref, err := Classify(raw)
	if err != nil {
		return abort(err), nil
	}
	r.logger.Debug("classified reference", "ref", raw, "kind", fmt.Sprintf("%T", ref))

	switch ref := ref.(type) {
	case LocalDir:
		return proceed(&ModDir{Root: ref.Path, Name: PayloadName(ref), Ref: ref}), nil
	case LocalArchive:
		return r.fromLocalArchive(ref)
	case DirectURL:
		return r.fromDownload(ctx, ref, ref.URL, PayloadName(ref), nil)
	case RegistryID:
		return r.fromRegistryID(ctx, ref)
	case RegistrySearch:
		return r.fromRegistrySearch(ctx, ref)
	case Repository:
		return r.fromRepository(ctx, ref)
	case GitRepo:
		return r.fromGit(ctx, ref)
	case Unrecognized:
		return abort(fmt.Errorf("%s %w!", ref.Raw, ErrNotFound)), nil
	default:
		return abort(fmt.Errorf("%s: %w", raw, ErrInvalidReference)), nil
	}
}

func (r *Resolver) fromLocalArchive(ref LocalArchive) (Outcome, error) {
	if _, err := os.Stat(ref.Path); err != nil {
		return Outcome{}, issue.NewErrorContext().
			WithOperation("open mod archive").
			WithResource(ref.Path).
			WithSuggestion("Check the path; relative paths are resolved from the current directory").
			WithIssue(issue.ReferenceNotFoundId).
			Wrap(err).
			BuildError()
	}

	ws, err := newWorkspace(r.tempDir)
	if err != nil {
		return Outcome{}, err
	}
	name := PayloadName(ref)
	if err := r.extract(ref.Path, ws, name); err != nil {
		ws.remove()
		return Outcome{}, err
	}
	return proceed(ws.modDir(ref, name)), nil
}

func (r *Resolver) fromRegistryID(ctx context.Context, ref RegistryID) (Outcome, error) {
	mod, err := r.registry.Mod(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, spacedock.ErrModNotFound) {
			return abort(fmt.Errorf("%s %w!", ref, ErrNotFound)), nil
		}
		return Outcome{}, issue.NewErrorContext().
			WithOperation("look up mod").
			WithResource(ref.String()).
			Wrap(err).
			BuildError()
	}

	ok, err := r.prompter.Confirm(fmt.Sprintf("Install %s?", mod.Name), true)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return abort(fmt.Errorf("install %s: %w", mod.Name, ErrDeclined)), nil
	}

	return r.fromRegistryMod(ctx, ref, mod)
}

func (r *Resolver) fromRegistrySearch(ctx context.Context, ref RegistrySearch) (Outcome, error) {
	mods, err := r.registry.Search(ctx, ref.Query)
	if err != nil {
		return Outcome{}, issue.NewErrorContext().
			WithOperation("search mods").
			WithResource(ref.Query).
			Wrap(err).
			BuildError()
	}
	if len(mods) == 0 {
		return abort(fmt.Errorf("%q: %w", ref.Query, ErrNoResults)), nil
	}

	menu := make([]string, len(mods))
	for i, m := range mods {
		menu[i] = fmt.Sprintf("[%d] %s - %s (%s)", i, m.Name, m.ShortDescription, m.Author)
	}

	for {
		answer, err := r.prompter.Input("Choose a mod to install, or n to cancel", menu...)
		if err != nil {
			return Outcome{}, err
		}
		switch strings.ToLower(answer) {
		case "", "n", "no":
			return abort(fmt.Errorf("search %q: %w", ref.Query, ErrDeclined)), nil
		}

		idx, convErr := strconv.Atoi(answer)
		if convErr != nil || idx < 0 || idx >= len(mods) {
			fmt.Fprintf(r.out, "Invalid choice %q, enter a number between 0 and %d.\n", answer, len(mods)-1)
			continue
		}

		mod := &mods[idx]
		if len(mod.Versions) == 0 {
			// search results may omit versions
			if mod, err = r.registry.Mod(ctx, strconv.Itoa(mod.ID)); err != nil {
				return Outcome{}, issue.WrapWithContext(err, "look up mod", mods[idx].Name)
			}
		}
		return r.fromRegistryMod(ctx, ref, mod)
	}
}

func (r *Resolver) fromRegistryMod(ctx context.Context, ref Reference, mod *spacedock.Mod) (Outcome, error) {
	dl := r.registry.DownloadURL(mod)
	if dl == "" {
		return abort(fmt.Errorf("%s has no published versions: %w", mod.Name, ErrNoDownload)), nil
	}
	return r.fromDownload(ctx, ref, dl, mod.Name, nil)
}

func (r *Resolver) fromRepository(ctx context.Context, ref Repository) (Outcome, error) {
	if ref.Ref != "" {
		return r.fromDownload(ctx, ref, r.releases.ArchiveURL(ref.Owner, ref.Repo, ref.Ref), ref.Repo, r.releases.Authorize)
	}

	rel, asset, err := r.releases.LatestAsset(ctx, ref.Owner, ref.Repo)
	switch {
	case errors.Is(err, github.ErrRepoNotFound):
		return abort(fmt.Errorf("%s %w!", ref, ErrNotFound)), nil
	case errors.Is(err, github.ErrNoRelease), errors.Is(err, github.ErrNoAsset):
		return abort(fmt.Errorf("%s: %w: %w", ref, ErrNoDownload, err)), nil
	case err != nil:
		ec := issue.NewErrorContext().
			WithOperation("list releases").
			WithResource(ref.String())
		var rlErr *github.RateLimitError
		if errors.As(err, &rlErr) {
			ec = ec.WithIssue(issue.RateLimitedId).WithSuggestion("Set GITHUB_TOKEN to raise the limit")
		}
		return Outcome{}, ec.Wrap(err).BuildError()
	}

	r.logger.Info("using release", "repo", ref.Owner+"/"+ref.Repo, "tag", rel.TagName, "asset", asset.Name)
	return r.fromDownload(ctx, ref, asset.BrowserDownloadURL, ref.Repo, r.releases.Authorize)
}

func (r *Resolver) fromGit(ctx context.Context, ref GitRepo) (Outcome, error) {
	ws, err := newWorkspace(r.tempDir)
	if err != nil {
		return Outcome{}, err
	}

	name := safeName(PayloadName(ref))
	fmt.Fprintf(r.out, "Cloning %s...\n", ref.URL)
	if err := r.cloner.Clone(ctx, ref.URL, ref.Ref, ws.payloadDir(name)); err != nil {
		ws.remove()
		return Outcome{}, issue.NewErrorContext().
			WithOperation("clone repository").
			WithResource(ref.String()).
			WithSuggestion("Check the URL and that the branch or tag exists").
			Wrap(err).
			BuildError()
	}
	return proceed(ws.modDir(ref, name)), nil
}

// fromDownload fetches url into a fresh workspace and extracts it under name.
func (r *Resolver) fromDownload(ctx context.Context, ref Reference, url, name string, edit RequestEditor) (Outcome, error) {
	ws, err := newWorkspace(r.tempDir)
	if err != nil {
		return Outcome{}, err
	}

	name = safeName(name)
	fmt.Fprintf(r.out, "Downloading %s...\n", name)
	if _, err := r.downloader.Fetch(ctx, url, ws.archivePath(), edit); err != nil {
		ws.remove()
		return Outcome{}, err
	}
	if err := r.extract(ws.archivePath(), ws, name); err != nil {
		ws.remove()
		return Outcome{}, err
	}
	if err := os.Remove(ws.archivePath()); err != nil {
		r.logger.Debug("could not remove archive", "path", ws.archivePath(), "err", err)
	}
	return proceed(ws.modDir(ref, name)), nil
}

func (r *Resolver) extract(archive string, ws *workspace, name string) error {
	fmt.Fprintln(r.out, "Unzipping...")
	if err := Extract(archive, ws.payloadDir(name)); err != nil {
		return issue.NewErrorContext().
			WithOperation("extract archive").
			WithResource(archive).
			WithIssue(issue.ExtractFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}
