package catalog

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/inputs"
)

// StoreLocation is one storage directory of a sample. Selection is either
// inputs.Wildcard or a comma separated list of file indices.
type StoreLocation struct {
	Path      string `yaml:"path"`
	Selection string `yaml:"selection"`
}

func (l StoreLocation) IsWildcard() bool {
	return l.Selection == inputs.Wildcard
}

// Sample is one dataset of the catalog. Samples are immutable once loaded.
type Sample struct {
	Name         string
	ProcessName  string
	Category     Category
	Type         Type
	NofFiles     int
	NofEvents    int64
	CrossSection float64
	UseIt        bool
	Locations    []StoreLocation
}

func (s *Sample) IsMC() bool {
	return s.Type == TypeMC
}

func (s *Sample) Kind() Kind {
	return s.Category.Kind()
}

// Stores splits the sample's locations into the primary directory (the
// single wildcard one) and the optional secondary directory with its
// selection. A sample with files must have a primary directory.
func (s *Sample) Stores() (primary string, secondary string, selection inputs.Selection, err error) {
	if len(s.Locations) > 2 {
		return "", "", nil, tterrors.NewInvalidConfiguration("local_paths", "sample %q declares %d storage locations, at most 2 are supported", s.ProcessName, len(s.Locations))
	}

	wildcard, nonWildcard := 0, 0
	for _, loc := range s.Locations {
		if loc.IsWildcard() {
			wildcard++
			if wildcard > 1 {
				return "", "", nil, tterrors.NewInvalidConfiguration("local_paths", "sample %q has more than one %q storage location", s.ProcessName, inputs.Wildcard)
			}
			primary = loc.Path
			continue
		}

		nonWildcard++
		if nonWildcard > 1 {
			return "", "", nil, tterrors.NewInvalidConfiguration("local_paths", "sample %q has more than one secondary storage location", s.ProcessName)
		}

		sel, _, err := inputs.ParseSelection(loc.Selection)
		if err != nil {
			return "", "", nil, fmt.Errorf("sample %q: %w", s.ProcessName, err)
		}
		secondary = loc.Path
		selection = sel
	}

	if s.NofFiles > 0 && wildcard == 0 {
		return "", "", nil, tterrors.NewInvalidConfiguration("local_paths", "sample %q has files but no %q storage location", s.ProcessName, inputs.Wildcard)
	}
	return primary, secondary, selection, nil
}

func (s *Sample) Validate() error {
	if s.ProcessName == "" {
		return tterrors.NewInvalidConfiguration("process_name_specific", "sample %q has no process name", s.Name)
	}
	if _, found := categoryKinds[s.Category]; !found {
		return tterrors.NewInvalidValue("sample_category", string(s.Category), KnownCategories()...)
	}
	if s.NofFiles < 0 {
		return tterrors.NewInvalidConfiguration("nof_files", "sample %q has a negative file count", s.ProcessName)
	}
	if s.NofFiles > 0 && len(s.Locations) == 0 {
		return tterrors.NewInvalidConfiguration("local_paths", "sample %q has files but no storage location", s.ProcessName)
	}
	_, _, _, err := s.Stores()
	return err
}

func (s *Sample) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("process_name", s.ProcessName)
	enc.AddString("category", string(s.Category))
	enc.AddString("type", string(s.Type))
	enc.AddInt("nof_files", s.NofFiles)
	enc.AddBool("use_it", s.UseIt)
	return nil
}
