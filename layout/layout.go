package layout

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	tterrors "github.com/tth-analysis/tthrun/errors"
)

type DirKey int

const (
	DirJobs DirKey = iota
	DirConfigs
	DirHistograms
	DirLogs
	DirDatacards
)

var AllDirKeys = []DirKey{DirJobs, DirConfigs, DirHistograms, DirLogs, DirDatacards}

// Layout is the validated, read-only description of a run: its selection
// parameters and every path it reads or writes. Paths are fully determined
// by the output root, executable name, charge and lepton selections.
type Layout struct {
	outputDir      string
	execName       ExecName
	charge         ChargeSelection
	lepton         LeptonSelection
	dataSelection  DataSelection
	backend        BackendMode
	maxFilesPerJob int
	useLumi        bool
	strict         bool
	parallelJobs   int
	pollInterval   time.Duration
	prepDcardExec  string
	histogramToFit string
	mergeExec      string
	luminosity     float64
	isMCOverride   *bool

	subdir string
	dirs   map[DirKey]string
}

// Build validates cfg and derives the run's paths. Every offending field is
// reported, each as an InvalidConfigurationError.
func Build(cfg *Config) (*Layout, error) {
	l := &Layout{
		outputDir:      cfg.OutputDir,
		maxFilesPerJob: cfg.MaxFilesPerJob,
		useLumi:        cfg.UseLumi,
		strict:         cfg.Strict,
		parallelJobs:   cfg.NofParallelJobs,
		pollInterval:   cfg.PollInterval,
		prepDcardExec:  cfg.PrepDatacardExec,
		histogramToFit: cfg.HistogramToFit,
		mergeExec:      cfg.MergeExec,
		luminosity:     cfg.Luminosity,
	}
	if cfg.IsMCOverride != nil {
		override := *cfg.IsMCOverride
		l.isMCOverride = &override
	}

	var errs error
	var err error
	if l.execName, err = ParseExecName(cfg.ExecName); err != nil {
		errs = multierr.Append(errs, err)
	}
	if l.charge, err = ParseChargeSelection(cfg.ChargeSelection); err != nil {
		errs = multierr.Append(errs, err)
	}
	if l.lepton, err = ParseLeptonSelection(cfg.LeptonSelection); err != nil {
		errs = multierr.Append(errs, err)
	}
	if l.dataSelection, err = ParseDataSelection(cfg.DataSelection); err != nil {
		errs = multierr.Append(errs, err)
	}
	if l.backend, err = ParseBackendMode(cfg.RunningMethod); err != nil {
		errs = multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, l.validateValues())
	if errs != nil {
		return nil, errs
	}

	if l.mergeExec == "" {
		l.mergeExec = "hadd"
	}

	names := cfg.DirNames
	defaults := DefaultDirNames()
	l.subdir = strings.Join([]string{l.execName.OutputCategory(), string(l.charge), string(l.lepton)}, "_")
	l.dirs = map[DirKey]string{
		DirJobs:       filepath.Join(l.outputDir, orDefault(names.Jobs, defaults.Jobs), l.subdir),
		DirConfigs:    filepath.Join(l.outputDir, orDefault(names.Configs, defaults.Configs), l.subdir),
		DirHistograms: filepath.Join(l.outputDir, orDefault(names.Histograms, defaults.Histograms), l.subdir),
		DirLogs:       filepath.Join(l.outputDir, orDefault(names.Logs, defaults.Logs), l.subdir),
		DirDatacards:  filepath.Join(l.outputDir, orDefault(names.Datacards, defaults.Datacards), l.subdir),
	}
	return l, nil
}

func (l *Layout) validateValues() (errs error) {
	if l.outputDir == "" {
		errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("output_dir", "is required"))
	}
	if l.maxFilesPerJob <= 0 {
		errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("max_files_per_job", "must be positive, got %d", l.maxFilesPerJob))
	}
	if l.luminosity <= 0 {
		errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("luminosity", "must be positive, got %g", l.luminosity))
	}
	if l.prepDcardExec == "" {
		errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("prep_dcard_exec", "is required"))
	}
	switch l.backend {
	case BackendLocal:
		if l.parallelJobs <= 0 {
			errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("nof_parallel_jobs", "must be positive with the %s backend, got %d", BackendLocal, l.parallelJobs))
		}
	case BackendQueue:
		if l.pollInterval <= 0 {
			errs = multierr.Append(errs, tterrors.NewInvalidConfiguration("poll_interval", "must be positive with the %s backend, got %s", BackendQueue, l.pollInterval))
		}
	}
	return errs
}

func orDefault(in, def string) string {
	if in == "" {
		return def
	}
	return in
}

func (l *Layout) OutputDir() string                { return l.outputDir }
func (l *Layout) ExecName() ExecName               { return l.execName }
func (l *Layout) ChargeSelection() ChargeSelection { return l.charge }
func (l *Layout) LeptonSelection() LeptonSelection { return l.lepton }
func (l *Layout) DataSelection() DataSelection     { return l.dataSelection }
func (l *Layout) Backend() BackendMode             { return l.backend }
func (l *Layout) MaxFilesPerJob() int              { return l.maxFilesPerJob }
func (l *Layout) UseLumi() bool                    { return l.useLumi }
func (l *Layout) Strict() bool                     { return l.strict }
func (l *Layout) ParallelJobs() int                { return l.parallelJobs }
func (l *Layout) PollInterval() time.Duration      { return l.pollInterval }
func (l *Layout) PrepDatacardExec() string         { return l.prepDcardExec }
func (l *Layout) HistogramToFit() string           { return l.histogramToFit }
func (l *Layout) MergeExec() string                { return l.mergeExec }
func (l *Layout) Luminosity() float64              { return l.luminosity }

// IsMCOverride returns the forced sample type of job configurations, ok
// being false when the catalog type is used.
func (l *Layout) IsMCOverride() (isMC bool, ok bool) {
	if l.isMCOverride == nil {
		return false, false
	}
	return *l.isMCOverride, true
}

// OutputCategory is the datacard category, the executable name without its
// "analyze_" prefix.
func (l *Layout) OutputCategory() string { return l.execName.OutputCategory() }

// Subdir is "<output category>_<charge>_<lepton>", the analysis specific
// subdirectory under every top-level directory.
func (l *Layout) Subdir() string { return l.subdir }

// AnalysisType is the histogram directory the executables write in their
// output files.
func (l *Layout) AnalysisType() string { return l.subdir }

func (l *Layout) Dir(key DirKey) string { return l.dirs[key] }

func (l *Layout) Dirs() []string {
	out := make([]string, 0, len(AllDirKeys))
	for _, key := range AllDirKeys {
		out = append(out, l.dirs[key])
	}
	return out
}

func (l *Layout) JobsDir() string       { return l.dirs[DirJobs] }
func (l *Layout) ConfigsDir() string    { return l.dirs[DirConfigs] }
func (l *Layout) HistogramsDir() string { return l.dirs[DirHistograms] }
func (l *Layout) LogsDir() string       { return l.dirs[DirLogs] }
func (l *Layout) DatacardsDir() string  { return l.dirs[DirDatacards] }

func (l *Layout) MakefilePath() string { return filepath.Join(l.outputDir, "Makefile") }
func (l *Layout) SbatchPath() string   { return filepath.Join(l.outputDir, "sbatch.sh") }

// HistogramFile is the merge of every job output.
func (l *Layout) HistogramFile() string {
	return filepath.Join(l.HistogramsDir(), "allHistograms.root")
}

// DatacardOutputFile is the final product of the run.
func (l *Layout) DatacardOutputFile() string {
	return filepath.Join(l.DatacardsDir(), "prepareDatacards.root")
}

func (l *Layout) DatacardConfigPath() string {
	return filepath.Join(l.ConfigsDir(), "prepareDatacards_cfg.py")
}

func (l *Layout) StdoutLogPath() string { return filepath.Join(l.outputDir, "stdout.log") }
func (l *Layout) StderrLogPath() string { return filepath.Join(l.outputDir, "stderr.log") }

func (l *Layout) SampleConfigDir(processName string) string {
	return filepath.Join(l.ConfigsDir(), processName)
}

func (l *Layout) JobConfigPath(processName, jobID string) string {
	return filepath.Join(l.SampleConfigDir(processName), jobID+".py")
}

func (l *Layout) JobScriptPath(jobID string) string {
	return filepath.Join(l.JobsDir(), jobID+".sh")
}

func (l *Layout) JobLogPath(jobID string) string {
	return filepath.Join(l.LogsDir(), jobID+".log")
}

// QueueLogPattern is the sbatch --output value of a job; SLURM substitutes
// %j with the task id.
func (l *Layout) QueueLogPattern(jobID string) string {
	return filepath.Join(l.LogsDir(), jobID+"-%j.out")
}

func (l *Layout) HistogramCategoryDir(category string) string {
	return filepath.Join(l.HistogramsDir(), category)
}

func (l *Layout) HistogramOutputPath(category, processName string, groupIndex int) string {
	name := fmt.Sprintf("%s_%s_%s_%d.root", processName, l.charge, l.lepton, groupIndex)
	return filepath.Join(l.HistogramCategoryDir(category), name)
}

func (l *Layout) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("output_dir", l.outputDir)
	enc.AddString("exec_name", string(l.execName))
	enc.AddString("charge_selection", string(l.charge))
	enc.AddString("lepton_selection", string(l.lepton))
	enc.AddString("data_selection", string(l.dataSelection))
	enc.AddString("backend", string(l.backend))
	enc.AddInt("max_files_per_job", l.maxFilesPerJob)
	enc.AddBool("use_lumi", l.useLumi)
	enc.AddBool("strict", l.strict)
	return nil
}
