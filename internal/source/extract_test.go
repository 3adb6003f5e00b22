// SPDX-License-Identifier: MPL-2.0

package source

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kspmod/kspmod/internal/testutil"
)

var modEntries = map[string]string{
	"GameData/":                          "",
	"GameData/Chatterer/Chatterer.dll":   "dll",
	"GameData/Chatterer/Sounds/beep.ogg": "beep",
	"README.md":                          "# Chatterer",
}

func TestExtract_Zip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "Chatterer.zip")
	testutil.WriteZip(t, archive, modEntries)

	dest := filepath.Join(dir, "out")
	if err := Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	want := []string{"GameData/Chatterer/Chatterer.dll", "GameData/Chatterer/Sounds/beep.ogg", "README.md"}
	if got := testutil.ListFiles(t, dest); !slices.Equal(got, want) {
		t.Errorf("extracted files = %v, want %v", got, want)
	}
	data, err := os.ReadFile(filepath.Join(dest, "GameData", "Chatterer", "Sounds", "beep.ogg"))
	if err != nil || string(data) != "beep" {
		t.Errorf("beep.ogg = %q, %v", data, err)
	}
}

func TestExtract_TarGz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// the name is irrelevant, the header decides
	archive := filepath.Join(dir, "download")
	testutil.WriteTarGz(t, archive, modEntries)

	dest := filepath.Join(dir, "out")
	if err := Extract(archive, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	want := []string{"GameData/Chatterer/Chatterer.dll", "GameData/Chatterer/Sounds/beep.ogg", "README.md"}
	if got := testutil.ListFiles(t, dest); !slices.Equal(got, want) {
		t.Errorf("extracted files = %v, want %v", got, want)
	}
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"../evil.txt", "GameData/../../evil.txt", "/abs/evil.txt"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			archive := filepath.Join(dir, "evil.zip")
			f, err := os.Create(archive)
			if err != nil {
				t.Fatal(err)
			}
			zw := zip.NewWriter(f)
			w, err := zw.Create(name)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = w.Write([]byte("x"))
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
			_ = f.Close()

			dest := filepath.Join(dir, "out")
			if err := Extract(archive, dest); !errors.Is(err, ErrUnsafePath) {
				t.Fatalf("Extract() error = %v, want ErrUnsafePath", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
				t.Error("entry was written outside the destination")
			}
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "mod.zip")
	if err := os.WriteFile(archive, []byte("<html>not a zip</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Extract(archive, filepath.Join(dir, "out")); !errors.Is(err, ErrUnsupportedArchive) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedArchive", err)
	}
}

func TestEntryPath(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	got, err := entryPath(dest, `GameData\Mod\a.cfg`)
	if err != nil {
		t.Fatalf("entryPath() error: %v", err)
	}
	if want := filepath.Join(dest, "GameData", "Mod", "a.cfg"); got != want {
		t.Errorf("entryPath() = %q, want %q", got, want)
	}
}
