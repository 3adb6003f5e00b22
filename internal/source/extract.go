// SPDX-License-Identifier: MPL-2.0

package source

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	zipMagic      = []byte("PK\x03\x04")
	emptyZipMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// Extract unpacks the zip or gzip-compressed tar archive at archivePath into
// destDir, which is created if needed. The format is detected from the file
// header, not the name. Entries whose cleaned path would leave destDir are
// rejected with ErrUnsafePath; symlinks and other special entries are skipped.
func Extract(archivePath, destDir string) error {
	format, err := sniff(archivePath)
	if err != nil {
		return err
	}

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving extraction directory: %w", err)
	}
	if err := os.MkdirAll(absDest, 0o755); err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}

	switch format {
	case "zip":
		return extractZip(archivePath, absDest)
	default:
		return extractTarGz(archivePath, absDest)
	}
}

func sniff(archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading archive header: %w", err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, emptyZipMagic):
		return "zip", nil
	case bytes.HasPrefix(head, gzipMagic):
		return "tar.gz", nil
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(archivePath), ErrUnsupportedArchive)
	}
}

// entryPath joins an archive entry name onto destDir and rejects names that
// would escape it.
func entryPath(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	target := filepath.Join(destDir, clean)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	return target, nil
}

func extractZip(archivePath, destDir string) (err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, file := range zr.File {
		target, pathErr := entryPath(destDir, file.Name)
		if pathErr != nil {
			return pathErr
		}

		mode := file.Mode()
		switch {
		case mode.IsDir():
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("creating directory: %w", mkErr)
			}
			continue
		case !mode.IsRegular():
			continue
		}

		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return fmt.Errorf("creating parent directory: %w", mkErr)
		}
		if exErr := extractZipFile(file, target); exErr != nil {
			return fmt.Errorf("extracting %s: %w", file.Name, exErr)
		}
	}
	return nil
}

func extractZipFile(file *zip.File, target string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return writeFile(target, rc, file.Mode().Perm())
}

func extractTarGz(archivePath, destDir string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer func() {
		if closeErr := gz.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar: %w", nextErr)
		}

		target, pathErr := entryPath(destDir, hdr.Name)
		if pathErr != nil {
			return pathErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("creating directory: %w", mkErr)
			}
		case tar.TypeReg:
			if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
				return fmt.Errorf("creating parent directory: %w", mkErr)
			}
			if wErr := writeFile(target, tr, os.FileMode(hdr.Mode).Perm()); wErr != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, wErr)
			}
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) (err error) {
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from sources the user chose to install
	_, err = io.Copy(out, r)
	return err
}
