// SPDX-License-Identifier: MPL-2.0

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kspmod/kspmod/internal/github"
	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/spacedock"
	"github.com/kspmod/kspmod/internal/testutil"
)

type registryFixture struct {
	srv       *httptest.Server
	downloads atomic.Int32
}

// newRegistryFixture serves a small SpaceDock API, a GitHub API and the
// archives both point to.
func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	f := &registryFixture{}
	archive := testutil.ZipBytes(t, map[string]string{"GameData/MechJeb2/MechJeb2.dll": "mj"})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/mod/123", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 123, "name": "MechJeb 2", "author": "sarbian",
			"versions": [{"friendly_version": "2.14.3", "download_path": "/dl/123.zip"}]}`))
	})
	mux.HandleFunc("/api/mod/9", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 9, "name": "Abandoned", "versions": []}`))
	})
	mux.HandleFunc("/api/search/mod", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "mechjeb" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"id": 123, "name": "MechJeb 2", "short_description": "Autopilot", "author": "sarbian"},
			{"id": 124, "name": "MechJeb Embedded", "short_description": "No parts", "author": "someone",
			 "versions": [{"download_path": "/dl/124.zip"}]}
		]`))
	})
	mux.HandleFunc("/repos/o/r/releases", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[{"tag_name": "v1.0.0", "assets": [{"name": "r-1.0.0.zip", "browser_download_url": %q}]}]`,
			f.srv.URL+"/dl/asset.zip")
	})
	mux.HandleFunc("/repos/o/empty/releases", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, _ *http.Request) {
		f.downloads.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/archive/o/r/archive/main.zip", func(w http.ResponseWriter, _ *http.Request) {
		f.downloads.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
		_, _ = w.Write(archive)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *registryFixture) resolver(t *testing.T, p *scriptedPrompter, opts ...ResolverOption) (*Resolver, string) {
	t.Helper()

	tmp := t.TempDir()
	out := &bytes.Buffer{}
	base := []ResolverOption{
		WithRegistry(spacedock.NewClient(spacedock.WithBaseURL(f.srv.URL))),
		WithReleases(github.NewClient(github.WithBaseURL(f.srv.URL), github.WithArchiveURL(f.srv.URL+"/archive"))),
		WithDownloader(NewDownloader(WithProgressOutput(out))),
		WithTempDir(tmp),
		WithOutput(out),
	}
	return NewResolver(p, append(base, opts...)...), tmp
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%s still holds %d entries", dir, len(entries))
	}
}

func TestResolve_LocalDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "LocalMod")
	testutil.MustMkdirAll(t, filepath.Join(dir, "GameData", "LocalMod"))

	r, _ := newRegistryFixture(t).resolver(t, &scriptedPrompter{})
	out, err := r.Resolve(context.Background(), dir)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if out.Action != Proceed || out.Dir.Root != dir {
		t.Fatalf("Resolve() = %+v, want Proceed at %s", out, dir)
	}
	if out.Dir.Temporary() {
		t.Error("local directory reported as temporary")
	}
	if err := out.Dir.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if !isDir(dir) {
		t.Error("Release() removed a local directory")
	}
}

func TestResolve_LocalArchive(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "Chatterer-0.9.zip")
	testutil.WriteZip(t, archive, modEntries)

	r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{})
	out, err := r.Resolve(context.Background(), archive)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if out.Action != Proceed {
		t.Fatalf("Resolve() action = %v, reason %v", out.Action, out.Reason)
	}
	if out.Dir.Name != "Chatterer-0.9" {
		t.Errorf("Name = %q, want the archive stem", out.Dir.Name)
	}

	want := []string{
		"Chatterer-0.9/GameData/Chatterer/Chatterer.dll",
		"Chatterer-0.9/GameData/Chatterer/Sounds/beep.ogg",
		"Chatterer-0.9/README.md",
	}
	if got := testutil.ListFiles(t, out.Dir.Root); !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}

	if err := out.Dir.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := out.Dir.Release(); err != nil {
		t.Fatalf("second Release() error: %v", err)
	}
	assertEmptyDir(t, tmp)
}

func TestResolve_MissingArchive(t *testing.T) {
	t.Parallel()

	r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{})
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "gone.zip"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Resolve() error = %v, want ErrNotExist", err)
	}
	if id, _ := issue.IssueOf(err); id != issue.ReferenceNotFoundId {
		t.Errorf("IssueOf() = %v, want ReferenceNotFoundId", id)
	}
	assertEmptyDir(t, tmp)
}

func TestResolve_RegistryID(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	p := &scriptedPrompter{confirms: []bool{true}}
	r, tmp := f.resolver(t, p)

	out, err := r.Resolve(context.Background(), "sd:123")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if out.Action != Proceed {
		t.Fatalf("Resolve() action = %v, reason %v", out.Action, out.Reason)
	}
	if !slices.Equal(p.asked, []string{"Install MechJeb 2?"}) {
		t.Errorf("asked %q", p.asked)
	}
	if got := testutil.ListFiles(t, out.Dir.Root); !slices.Equal(got, []string{"MechJeb 2/GameData/MechJeb2/MechJeb2.dll"}) {
		t.Errorf("files = %v", got)
	}
	if _, err := os.Stat(filepath.Join(out.Dir.Workspace(), downloadFile)); !os.IsNotExist(err) {
		t.Error("downloaded archive was not removed after extraction")
	}

	_ = out.Dir.Release()
	assertEmptyDir(t, tmp)
}

func TestResolve_DeclineDownloadsNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		p    *scriptedPrompter
	}{
		{"registry id", "sd:123", &scriptedPrompter{confirms: []bool{false}}},
		{"search answered n", "sds:mechjeb", &scriptedPrompter{inputs: []string{"n"}}},
		{"search answered blank", "sds:mechjeb", &scriptedPrompter{inputs: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newRegistryFixture(t)
			r, tmp := f.resolver(t, tt.p)
			out, err := r.Resolve(context.Background(), tt.raw)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if !out.Declined() {
				t.Errorf("Resolve() = %+v, want a declined Abort", out)
			}
			if n := f.downloads.Load(); n != 0 {
				t.Errorf("%d downloads after declining", n)
			}
			assertEmptyDir(t, tmp)
		})
	}
}

func TestResolve_RegistrySearch(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	p := &scriptedPrompter{inputs: []string{"7", "x", "0"}}
	r, _ := f.resolver(t, p)

	out, err := r.Resolve(context.Background(), "sds:mechjeb")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if out.Action != Proceed {
		t.Fatalf("Resolve() action = %v, reason %v", out.Action, out.Reason)
	}
	t.Cleanup(func() { _ = out.Dir.Release() })

	if !slices.Contains(p.asked, "[0] MechJeb 2 - Autopilot (sarbian)") {
		t.Errorf("menu rows missing from %q", p.asked)
	}
	if n := len(p.inputs); n != 0 {
		t.Errorf("%d answers left unread", n)
	}
	if out.Dir.Name != "MechJeb 2" {
		t.Errorf("Name = %q", out.Dir.Name)
	}
	if n := f.downloads.Load(); n != 1 {
		t.Errorf("downloads = %d, want 1", n)
	}
}

func TestResolve_Aborts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no search results", "sds:nothing matches", ErrNoResults},
		{"unknown registry id", "sd:404", ErrNotFound},
		{"registry mod without versions", "sd:9", ErrNoDownload},
		{"malformed repository", "gh:onlyowner", ErrInvalidReference},
		{"repository without releases", "gh:o/empty", ErrNoDownload},
		{"missing repository", "gh:o/missing", ErrNotFound},
		{"unrecognized", "MechJeb", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{confirms: []bool{true}})
			out, err := r.Resolve(context.Background(), tt.raw)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if out.Action != Abort || !errors.Is(out.Reason, tt.want) {
				t.Errorf("Resolve() = %v %v, want Abort with %v", out.Action, out.Reason, tt.want)
			}
			assertEmptyDir(t, tmp)
		})
	}
}

func TestResolve_UnrecognizedMessage(t *testing.T) {
	t.Parallel()

	r, _ := newRegistryFixture(t).resolver(t, &scriptedPrompter{})
	out, _ := r.Resolve(context.Background(), "MechJeb")
	if got := out.Reason.Error(); got != "MechJeb not found!" {
		t.Errorf("reason = %q", got)
	}
}

func TestResolve_Repository(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"gh:o/r", "gh:o/r/main"} {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			f := newRegistryFixture(t)
			r, _ := f.resolver(t, &scriptedPrompter{})
			out, err := r.Resolve(context.Background(), raw)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if out.Action != Proceed {
				t.Fatalf("Resolve() action = %v, reason %v", out.Action, out.Reason)
			}
			t.Cleanup(func() { _ = out.Dir.Release() })

			if got := testutil.ListFiles(t, out.Dir.Root); !slices.Equal(got, []string{"r/GameData/MechJeb2/MechJeb2.dll"}) {
				t.Errorf("files = %v", got)
			}
			if n := f.downloads.Load(); n != 1 {
				t.Errorf("downloads = %d, want 1", n)
			}
		})
	}
}

type fakeCloner struct {
	url, ref string
	err      error
}

func (c *fakeCloner) Clone(_ context.Context, url, ref, dest string) error {
	c.url, c.ref = url, ref
	if c.err != nil {
		return c.err
	}
	if err := os.MkdirAll(filepath.Join(dest, "GameData", "Waterfall"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "GameData", "Waterfall", "Waterfall.dll"), []byte("wf"), 0o644)
}

func TestResolve_Git(t *testing.T) {
	t.Parallel()

	cloner := &fakeCloner{}
	r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{}, WithCloner(cloner))

	out, err := r.Resolve(context.Background(), "git:https://example.com/o/Waterfall.git#dev")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if cloner.url != "https://example.com/o/Waterfall.git" || cloner.ref != "dev" {
		t.Errorf("cloned %q at %q", cloner.url, cloner.ref)
	}
	if got := testutil.ListFiles(t, out.Dir.Root); !slices.Equal(got, []string{"Waterfall/GameData/Waterfall/Waterfall.dll"}) {
		t.Errorf("files = %v", got)
	}
	_ = out.Dir.Release()
	assertEmptyDir(t, tmp)

	cloner.err = errors.New("remote hung up")
	if _, err := r.Resolve(context.Background(), "git:https://example.com/o/Waterfall.git"); err == nil {
		t.Fatal("Resolve() succeeded despite a failed clone")
	}
	assertEmptyDir(t, tmp)
}

func TestAcquire_ReleasesAfterUse(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "Mod.zip")
	testutil.WriteZip(t, archive, modEntries)
	r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{})

	boom := errors.New("boom")
	var seen string
	out, err := r.Acquire(context.Background(), archive, func(d *ModDir) error {
		seen = d.Root
		if !isDir(d.Root) {
			t.Error("Root does not exist during the callback")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Acquire() error = %v, want the callback error", err)
	}
	if out.Action != Proceed || seen == "" {
		t.Errorf("callback not run, outcome %+v", out)
	}
	assertEmptyDir(t, tmp)
}

func TestAcquire_SkipFromCallback(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "Mod.zip")
	testutil.WriteZip(t, archive, modEntries)
	r, tmp := newRegistryFixture(t).resolver(t, &scriptedPrompter{})

	nothing := errors.New("nothing selected")
	out, err := r.Acquire(context.Background(), archive, func(*ModDir) error {
		return SkipMod(nothing)
	})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if out.Action != Skip || !errors.Is(out.Reason, nothing) {
		t.Errorf("outcome = %v (%v), want skip with the callback reason", out.Action, out.Reason)
	}
	if out.Declined() {
		t.Error("a skip must not report as declined")
	}
	assertEmptyDir(t, tmp)

	if err := SkipMod(nothing); !errors.Is(err, nothing) || !strings.Contains(err.Error(), "nothing selected") {
		t.Errorf("SkipMod() = %v", err)
	}
}

func TestAcquire_SkipsCallbackOnAbort(t *testing.T) {
	t.Parallel()

	r, _ := newRegistryFixture(t).resolver(t, &scriptedPrompter{})
	called := false
	out, err := r.Acquire(context.Background(), "not-a-mod", func(*ModDir) error {
		called = true
		return nil
	})
	if err != nil || out.Action != Abort || called {
		t.Errorf("Acquire() = %v, %v, called=%v", out.Action, err, called)
	}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"MechJeb 2", "MechJeb 2"},
		{"Foo/Bar", "Foo_Bar"},
		{`a:b*c?"d<e>f|g`, "a_b_c__d_e_f_g"},
		{"", "mod"},
		{"..", "mod"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := safeName(tt.in); got != tt.want {
			t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
