package layout

import (
	"strings"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

type ExecName string

const (
	Exec2lss1tau   ExecName = "analyze_2lss_1tau"
	Exec2los1tau   ExecName = "analyze_2los_1tau"
	Exec1l2tau     ExecName = "analyze_1l_2tau"
	ExecChargeFlip ExecName = "analyze_charge_flip"
)

var execNames = []ExecName{Exec2lss1tau, Exec2los1tau, Exec1l2tau, ExecChargeFlip}

// OutputCategory is the analysis channel the executable produces, used to
// name the run subdirectory and the datacard category.
func (e ExecName) OutputCategory() string {
	return strings.TrimPrefix(string(e), "analyze_")
}

type ChargeSelection string

const (
	OppositeSign ChargeSelection = "OS"
	SameSign     ChargeSelection = "SS"
)

type LeptonSelection string

const (
	LeptonTight    LeptonSelection = "Tight"
	LeptonLoose    LeptonSelection = "Loose"
	LeptonFakeable LeptonSelection = "Fakeable"
)

// DataSelection decides which catalog samples a run plans jobs for.
type DataSelection string

const (
	DataSelectionRegular    DataSelection = "regular"
	DataSelectionChargeFlip DataSelection = "chargeFlip"
)

// BackendMode selects where jobs run: on the SLURM queue or through a
// local parallel make.
type BackendMode string

const (
	BackendQueue BackendMode = "sbatch"
	BackendLocal BackendMode = "makefile"
)

func (m BackendMode) String() string {
	return string(m)
}

func parseEnum[T ~string](field, in string, allowed []T) (T, error) {
	for _, v := range allowed {
		if string(v) == in {
			return v, nil
		}
	}
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	var zero T
	return zero, tterrors.NewInvalidValue(field, in, names...)
}

func ParseExecName(in string) (ExecName, error) {
	return parseEnum("exec_name", in, execNames)
}

func ParseChargeSelection(in string) (ChargeSelection, error) {
	return parseEnum("charge_selection", in, []ChargeSelection{OppositeSign, SameSign})
}

func ParseLeptonSelection(in string) (LeptonSelection, error) {
	return parseEnum("lepton_selection", in, []LeptonSelection{LeptonTight, LeptonLoose, LeptonFakeable})
}

func ParseDataSelection(in string) (DataSelection, error) {
	return parseEnum("data_selection", in, []DataSelection{DataSelectionRegular, DataSelectionChargeFlip})
}

// ParseBackendMode is case insensitive and also accepts the generic
// "queue" and "local" names.
func ParseBackendMode(in string) (BackendMode, error) {
	switch strings.ToLower(in) {
	case "sbatch", "queue":
		return BackendQueue, nil
	case "makefile", "local":
		return BackendLocal, nil
	}
	return "", tterrors.NewInvalidValue("running_method", in, string(BackendQueue), string(BackendLocal))
}
