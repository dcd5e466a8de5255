package layout

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLuminosity is the integrated luminosity of the 2015 dataset, in 1/pb.
const DefaultLuminosity = 2260.

// DirNames are the names of the five top-level output directories.
type DirNames struct {
	Jobs       string `yaml:"jobs"`
	Configs    string `yaml:"cfgs"`
	Histograms string `yaml:"histograms"`
	Logs       string `yaml:"logs"`
	Datacards  string `yaml:"datacards"`
}

func DefaultDirNames() DirNames {
	return DirNames{
		Jobs:       "jobs",
		Configs:    "cfgs",
		Histograms: "histograms",
		Logs:       "logs",
		Datacards:  "datacards",
	}
}

// Config holds the caller supplied parameters of a run. It is validated and
// frozen by Build.
type Config struct {
	OutputDir       string `yaml:"output_dir"`
	ExecName        string `yaml:"exec_name"`
	ChargeSelection string `yaml:"charge_selection"`
	LeptonSelection string `yaml:"lepton_selection"`
	DataSelection   string `yaml:"data_selection"`
	RunningMethod   string `yaml:"running_method"`

	MaxFilesPerJob int  `yaml:"max_files_per_job"`
	UseLumi        bool `yaml:"use_lumi"`
	// Strict checks the existence of every input file while planning.
	Strict bool `yaml:"strict"`

	NofParallelJobs int           `yaml:"nof_parallel_jobs"`
	PollInterval    time.Duration `yaml:"poll_interval"`

	PrepDatacardExec string `yaml:"prep_dcard_exec"`
	HistogramToFit   string `yaml:"histogram_to_fit"`
	MergeExec        string `yaml:"merge_exec"`

	Luminosity float64 `yaml:"luminosity"`
	// IsMCOverride, when set, replaces the catalog's sample type in the
	// rendered job configurations. Scale factors still follow the catalog.
	IsMCOverride *bool    `yaml:"is_mc_override"`
	DirNames     DirNames `yaml:"dir_names"`
}

func DefaultConfig() *Config {
	return &Config{
		ExecName:         string(Exec2lss1tau),
		ChargeSelection:  string(SameSign),
		LeptonSelection:  string(LeptonTight),
		DataSelection:    string(DataSelectionRegular),
		RunningMethod:    string(BackendQueue),
		MaxFilesPerJob:   30,
		UseLumi:          true,
		NofParallelJobs:  10,
		PollInterval:     30 * time.Second,
		PrepDatacardExec: "prepareDatacards",
		HistogramToFit:   "mvaDiscr_2lss",
		MergeExec:        "hadd",
		Luminosity:       DefaultLuminosity,
		DirNames:         DefaultDirNames(),
	}
}

// LoadConfig reads a YAML run configuration on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cnt, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(cnt, cfg); err != nil {
		return nil, fmt.Errorf("decoding run config %q: %w", path, err)
	}
	return cfg, nil
}
