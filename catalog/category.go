package catalog

import (
	"sort"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

// Kind is the role a category plays in the analysis.
type Kind int

const (
	KindUnknown Kind = iota
	KindSignal
	KindBackground
	KindData
	KindDataDrivenEstimate
	KindOverlap
)

func (k Kind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindBackground:
		return "background"
	case KindData:
		return "data"
	case KindDataDrivenEstimate:
		return "data-driven-estimate"
	case KindOverlap:
		return "overlap"
	}
	return "unknown"
}

// Category is the sample_category label of a catalog entry. It is also the
// name of the histogram subdirectory holding the sample's job outputs.
type Category string

const (
	CategorySignal                  Category = "signal"
	CategoryTTHtoWW                 Category = "ttH_hww"
	CategoryTTHtoZZ                 Category = "ttH_hzz"
	CategoryTTHtoTauTau             Category = "ttH_htt"
	CategoryBackground              Category = "background"
	CategoryTTW                     Category = "TTW"
	CategoryTTZ                     Category = "TTZ"
	CategoryWZ                      Category = "WZ"
	CategoryRares                   Category = "Rares"
	CategoryDataObs                 Category = "data_obs"
	CategoryBackgroundDataEstimate  Category = "background_data_estimate"
	CategoryAdditionalSignalOverlap Category = "additional_signal_overlap"
)

var categoryKinds = map[Category]Kind{
	CategorySignal:                  KindSignal,
	CategoryTTHtoWW:                 KindSignal,
	CategoryTTHtoZZ:                 KindSignal,
	CategoryTTHtoTauTau:             KindSignal,
	CategoryBackground:              KindBackground,
	CategoryTTW:                     KindBackground,
	CategoryTTZ:                     KindBackground,
	CategoryWZ:                      KindBackground,
	CategoryRares:                   KindBackground,
	CategoryDataObs:                 KindData,
	CategoryBackgroundDataEstimate:  KindDataDrivenEstimate,
	CategoryAdditionalSignalOverlap: KindOverlap,
}

func ParseCategory(in string) (Category, error) {
	c := Category(in)
	if _, found := categoryKinds[c]; !found {
		return "", tterrors.NewInvalidValue("sample_category", in, KnownCategories()...)
	}
	return c, nil
}

func (c Category) Kind() Kind {
	return categoryKinds[c]
}

func (c Category) String() string {
	return string(c)
}

func KnownCategories() []string {
	out := make([]string, 0, len(categoryKinds))
	for c := range categoryKinds {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Type tells simulated samples from recorded data.
type Type string

const (
	TypeMC   Type = "mc"
	TypeData Type = "data"
)

func ParseType(in string) (Type, error) {
	switch Type(in) {
	case TypeMC, TypeData:
		return Type(in), nil
	}
	return "", tterrors.NewInvalidValue("type", in, string(TypeMC), string(TypeData))
}
