// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestListFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	MustWriteFile(t, filepath.Join(root, "b", "c.cfg"), "c")
	MustWriteFile(t, filepath.Join(root, "a.dll"), "a")
	MustMkdirAll(t, filepath.Join(root, "empty"))

	if got, want := ListFiles(t, root), []string{"a.dll", "b/c.cfg"}; !slices.Equal(got, want) {
		t.Errorf("ListFiles() = %v, want %v", got, want)
	}
	if got := MustReadFile(t, filepath.Join(root, "b", "c.cfg")); got != "c" {
		t.Errorf("MustReadFile() = %q", got)
	}
}

func TestZipBytes(t *testing.T) {
	t.Parallel()

	data := ZipBytes(t, map[string]string{"GameData/": "", "GameData/a.cfg": "x"})
	if len(data) < 4 || string(data[:4]) != "PK\x03\x04" {
		t.Errorf("ZipBytes() does not start with a local file header: %q", data[:min(len(data), 4)])
	}
}
