// SPDX-License-Identifier: MPL-2.0

// Package modlist reads batch files listing mod references to install.
//
// A batch file is TOML, YAML or plain text, chosen by extension:
//
//	# mods.toml
//	mods = ["sd:123", "gh:KSPModdingLibs/KSPCommunityFixes"]
//
//	# mods.yaml
//	mods:
//	  - sd:123
//	  - ./LocalMod
//
// Plain text files (any other extension) hold one reference per line; blank
// lines and lines starting with '#' are ignored.
package modlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// maxFileSize bounds batch files read into memory.
const maxFileSize = 1 << 20

// ErrEmpty is returned for a batch file without references.
var ErrEmpty = errors.New("batch file lists no mods")

// File is the structured form of a batch file.
type File struct {
	Mods []string `toml:"mods" yaml:"mods"`
}

// Load reads the references listed in the batch file at path, in file
// order, with surrounding whitespace removed.
func Load(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("batch file %s is larger than %d bytes", path, maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	refs, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return refs, nil
}

// Parse decodes data according to ext (".toml", ".yaml", ".yml", anything
// else is plain text).
func Parse(data []byte, ext string) ([]string, error) {
	var refs []string
	switch strings.ToLower(ext) {
	case ".toml":
		var f File
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
		refs = f.Mods
	case ".yaml", ".yml":
		var err error
		if refs, err = parseYAML(data); err != nil {
			return nil, err
		}
	default:
		refs = parseLines(data)
	}

	cleaned := make([]string, 0, len(refs))
	for _, r := range refs {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmpty
	}
	return cleaned, nil
}

// parseYAML accepts both a mapping with a mods key and a bare sequence.
func parseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var refs []string
		if err := root.Decode(&refs); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		return refs, nil
	}

	var f File
	if err := root.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return f.Mods, nil
}

func parseLines(data []byte) []string {
	var refs []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	return refs
}
