package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/streamingfast/dstore"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

type sampleYAML struct {
	Type                string          `yaml:"type"`
	SampleCategory      string          `yaml:"sample_category"`
	ProcessNameSpecific string          `yaml:"process_name_specific"`
	NofFiles            int             `yaml:"nof_files"`
	NofEvents           int64           `yaml:"nof_events"`
	UseIt               bool            `yaml:"use_it"`
	XSection            float64         `yaml:"xsection"`
	LocalPaths          []StoreLocation `yaml:"local_paths"`
}

func hasRemotePrefix(in string) bool {
	for _, prefix := range []string{"gs://", "s3://", "az://", "file://"} {
		if strings.HasPrefix(in, prefix) {
			return true
		}
	}
	return false
}

// Load reads a catalog from a local path or from any URL dstore supports.
func Load(ctx context.Context, input string) (*Catalog, error) {
	var cnt []byte
	var err error
	if hasRemotePrefix(input) {
		cnt, err = dstore.ReadObject(ctx, input)
	} else {
		cnt, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", input, err)
	}

	cat, err := Parse(cnt)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", input, err)
	}
	zlog.Info("catalog loaded", zap.String("input", input), zap.Int("sample_count", cat.Len()))
	return cat, nil
}

// Parse decodes a YAML mapping of dataset name to sample. Mapping order is
// the catalog order.
func Parse(cnt []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(cnt)).Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return New()
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, tterrors.NewInvalidConfiguration("catalog", "expected a mapping of dataset name to sample at line %d", doc.Line)
	}

	var samples []*Sample
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		var raw sampleYAML
		if err := doc.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}

		sample, err := raw.toSample(name)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}
		samples = append(samples, sample)
	}
	return New(samples...)
}

func (r *sampleYAML) toSample(name string) (*Sample, error) {
	category, err := ParseCategory(r.SampleCategory)
	if err != nil {
		return nil, err
	}
	typ, err := ParseType(r.Type)
	if err != nil {
		return nil, err
	}
	return &Sample{
		Name:         name,
		ProcessName:  r.ProcessNameSpecific,
		Category:     category,
		Type:         typ,
		NofFiles:     r.NofFiles,
		NofEvents:    r.NofEvents,
		CrossSection: r.XSection,
		UseIt:        r.UseIt,
		Locations:    r.LocalPaths,
	}, nil
}
