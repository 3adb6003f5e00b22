// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// PrefixDirectURL introduces a direct download URL, e.g. "http://:https://host/mod.zip".
	PrefixDirectURL = "http://:"
	// PrefixURL is a shorter alias of PrefixDirectURL.
	PrefixURL = "url:"
	// PrefixRegistryID introduces a SpaceDock mod id, e.g. "sd:123".
	PrefixRegistryID = "sd:"
	// PrefixRegistrySearch introduces a SpaceDock search, e.g. "sds:mechjeb".
	PrefixRegistrySearch = "sds:"
	// PrefixRepository introduces a GitHub repository, e.g. "gh:owner/repo[/ref]".
	PrefixRepository = "gh:"
	// PrefixGit introduces a git clone URL, e.g. "git:https://host/repo.git#ref".
	PrefixGit = "git:"
)

var (
	// knownPrefixes are checked after the local directory check. Longer
	// prefixes sharing a start ("sds:" and "sd:") come first.
	knownPrefixes = []string{
		PrefixDirectURL,
		PrefixURL,
		PrefixRegistrySearch,
		PrefixRegistryID,
		PrefixRepository,
		PrefixGit,
	}

	// archiveExts are recognized local archive suffixes, matched case-insensitively.
	archiveExts = []string{".tar.gz", ".tgz", ".zip"}
)

type (
	// Reference is a classified mod location. The set of implementations is
	// closed; switch on the concrete type to dispatch.
	Reference interface {
		fmt.Stringer
		isReference()
	}

	// LocalDir is an existing directory used in place.
	LocalDir struct {
		Path string
	}

	// LocalArchive is a zip or tar.gz file on disk.
	LocalArchive struct {
		Path string
	}

	// DirectURL is an archive downloaded from an arbitrary URL.
	DirectURL struct {
		URL string
	}

	// RegistryID is a SpaceDock mod id.
	RegistryID struct {
		ID string
	}

	// RegistrySearch is a free-text SpaceDock query.
	RegistrySearch struct {
		Query string
	}

	// Repository is a GitHub repository. An empty Ref selects the latest
	// release asset, otherwise the source archive of Ref is used.
	Repository struct {
		Owner string
		Repo  string
		Ref   string
	}

	// GitRepo is any git remote, cloned shallowly at Ref (default branch when empty).
	GitRepo struct {
		URL string
		Ref string
	}

	// Unrecognized is everything else.
	Unrecognized struct {
		Raw string
	}
)

func (LocalDir) isReference()       {}
func (LocalArchive) isReference()   {}
func (DirectURL) isReference()      {}
func (RegistryID) isReference()     {}
func (RegistrySearch) isReference() {}
func (Repository) isReference()     {}
func (GitRepo) isReference()        {}
func (Unrecognized) isReference()   {}

func (r LocalDir) String() string       { return r.Path }
func (r LocalArchive) String() string   { return r.Path }
func (r DirectURL) String() string      { return PrefixURL + r.URL }
func (r RegistryID) String() string     { return PrefixRegistryID + r.ID }
func (r RegistrySearch) String() string { return PrefixRegistrySearch + r.Query }
func (r Unrecognized) String() string   { return r.Raw }

func (r Repository) String() string {
	if r.Ref == "" {
		return PrefixRepository + r.Owner + "/" + r.Repo
	}
	return PrefixRepository + r.Owner + "/" + r.Repo + "/" + r.Ref
}

func (r GitRepo) String() string {
	if r.Ref == "" {
		return PrefixGit + r.URL
	}
	return PrefixGit + r.URL + "#" + r.Ref
}

// PayloadName is the name the mod's extracted contents are stored under:
// the archive stem, "mod" for direct URLs, the repository name for gh: and
// git: references. Registry references learn their name from the registry
// and return "".
func PayloadName(ref Reference) string {
	switch r := ref.(type) {
	case LocalDir:
		return filepath.Base(r.Path)
	case LocalArchive:
		stem, _ := archiveStem(filepath.Base(r.Path))
		return stem
	case DirectURL:
		return "mod"
	case Repository:
		return r.Repo
	case GitRepo:
		return strings.TrimSuffix(path.Base(strings.TrimRight(r.URL, "/")), ".git")
	default:
		return ""
	}
}

// Classify turns a raw location string into a Reference. The first matching
// rule wins:
//
//  1. an existing directory (a failed stat means "not a directory")
//  2. a path without a known prefix ending in .zip, .tar.gz or .tgz
//  3. the http://: or url: prefix
//  4. sd:<id>
//  5. sds:<query>
//  6. gh:<owner>/<repo>[/<ref>]
//  7. git:<url>[#<ref>]
//  8. anything else is Unrecognized
//
// A known prefix with a malformed remainder returns ErrInvalidReference.
func Classify(raw string) (Reference, error) {
	if isDir(raw) {
		return LocalDir{Path: raw}, nil
	}

	prefix, rest, hasPrefix := cutKnownPrefix(raw)
	if !hasPrefix {
		if _, ok := archiveStem(raw); ok {
			return LocalArchive{Path: raw}, nil
		}
		return Unrecognized{Raw: raw}, nil
	}

	if strings.TrimSpace(rest) == "" {
		return nil, fmt.Errorf("%w: %q has nothing after %q", ErrInvalidReference, raw, prefix)
	}

	switch prefix {
	case PrefixDirectURL, PrefixURL:
		return DirectURL{URL: rest}, nil
	case PrefixRegistryID:
		return RegistryID{ID: strings.TrimSpace(rest)}, nil
	case PrefixRegistrySearch:
		return RegistrySearch{Query: strings.TrimSpace(rest)}, nil
	case PrefixRepository:
		return parseRepository(raw, rest)
	case PrefixGit:
		u, ref, _ := strings.Cut(rest, "#")
		if u == "" {
			return nil, fmt.Errorf("%w: %q has no clone URL", ErrInvalidReference, raw)
		}
		return GitRepo{URL: u, Ref: ref}, nil
	}
	return Unrecognized{Raw: raw}, nil
}

func parseRepository(raw, rest string) (Reference, error) {
	segs := strings.Split(rest, "/")
	if len(segs) != 2 && len(segs) != 3 {
		return nil, fmt.Errorf("%w: %q must be gh:owner/repo or gh:owner/repo/ref, got %d segments",
			ErrInvalidReference, raw, len(segs))
	}
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidReference, raw)
		}
	}

	r := Repository{Owner: segs[0], Repo: segs[1]}
	if len(segs) == 3 {
		r.Ref = segs[2]
	}
	return r, nil
}

func cutKnownPrefix(raw string) (prefix, rest string, ok bool) {
	for _, p := range knownPrefixes {
		if rest, ok := strings.CutPrefix(raw, p); ok {
			return p, rest, true
		}
	}
	return "", "", false
}

// archiveStem returns name without its archive extension, and whether name
// had one.
func archiveStem(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range archiveExts {
		if strings.HasSuffix(lower, ext) {
			return filepath.Base(name[:len(name)-len(ext)]), true
		}
	}
	return "", false
}

func isDir(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
