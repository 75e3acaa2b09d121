// Package bias labels political bias from a curated domain table and from
// article text through a content model.
package bias

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/normalize"
)

//go:embed table.yaml
var embeddedTable []byte

// Table maps normalized source domains to a leaning. It is read-only once built.
type Table struct {
	labels map[string]models.BiasLabel
}

// Default decodes the table shipped with the binary.
func Default() (*Table, error) {
	return LoadTable(bytes.NewReader(embeddedTable))
}

// LoadFile decodes a table from path, or returns Default when path is empty.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bias table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable decodes a YAML document whose keys are leanings (left, center,
// right) and whose values are lists of domains.
func LoadTable(r io.Reader) (*Table, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bias table: %w", err)
	}

	labels := make(map[string]models.BiasLabel)
	for key, domains := range raw {
		label := models.BiasLabel(strings.ToLower(strings.TrimSpace(key)))
		if !label.Valid() {
			return nil, fmt.Errorf("bias table: unsupported leaning %q", key)
		}
		for _, d := range domains {
			d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
			if d == "" {
				continue
			}
			if prev, ok := labels[d]; ok && prev != label {
				return nil, fmt.Errorf("bias table: domain %s listed as both %s and %s", d, prev, label)
			}
			labels[d] = label
		}
	}

	return &Table{labels: labels}, nil
}

// Lookup returns the leaning of the site hosting rawURL, or unknown.
func (t *Table) Lookup(rawURL string) models.BiasLabel {
	domain, ok := normalize.Domain(rawURL)
	if !ok {
		return models.BiasUnknown
	}
	return t.Label(domain)
}

// Label returns the leaning of an already normalized domain, or unknown.
func (t *Table) Label(domain string) models.BiasLabel {
	if t == nil {
		return models.BiasUnknown
	}
	if label, ok := t.labels[strings.ToLower(domain)]; ok {
		return label
	}
	return models.BiasUnknown
}

// Len returns the number of curated domains.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}
