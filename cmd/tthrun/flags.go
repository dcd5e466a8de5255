package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/cli/sflags"

	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/layout"
)

func init() {
	cobra.OnInitialize(func() {
		autoBind(rootCmd, "TTHRUN")
	})
}

// autoBind lets every flag be set from the environment, persistent flags
// as <PREFIX>_<COMMAND>_GLOBAL_<FLAG> and local ones as
// <PREFIX>_<COMMAND>_CMD_<FLAG>. Explicit flags win.
func autoBind(root *cobra.Command, prefix string) {
	recurseCommands(root, prefix, nil)
}

func recurseCommands(root *cobra.Command, prefix string, segments []string) {
	var segmentPrefix string
	if len(segments) > 0 {
		segmentPrefix = strings.ToUpper(strings.Join(segments, "_")) + "_"
	}

	bind := func(flags *pflag.FlagSet, kind string) {
		flags.VisitAll(func(f *pflag.Flag) {
			newName := strings.Replace(strings.ToUpper(f.Name), "-", "_", -1)
			varName := prefix + "_" + segmentPrefix + kind + "_" + newName
			if val := os.Getenv(varName); val != "" {
				f.Usage += " [LOADED FROM ENV]"
				if !f.Changed {
					if err := flags.Set(f.Name, val); err != nil {
						zlog.Warn(fmt.Sprintf("ignoring invalid value of %s: %s", varName, err))
					}
				}
			}
		})
	}

	bind(root.PersistentFlags(), "GLOBAL")
	bind(root.Flags(), "CMD")

	for _, cmd := range root.Commands() {
		recurseCommands(cmd, prefix, append(segments, cmd.Name()))
	}
}

func addRunConfigFlags(flags *pflag.FlagSet) {
	defaults := layout.DefaultConfig()

	flags.String("config", "", "YAML run configuration, explicit flags override its values")
	flags.StringP("output-dir", "o", "", "Root directory of every file the run writes")
	flags.String("exec-name", defaults.ExecName, "Analysis executable, one of analyze_2lss_1tau, analyze_2los_1tau, analyze_1l_2tau, analyze_charge_flip")
	flags.String("charge-selection", defaults.ChargeSelection, "Lepton charge selection, OS or SS")
	flags.String("lepton-selection", defaults.LeptonSelection, "Lepton selection, Tight, Loose or Fakeable")
	flags.String("data-selection", defaults.DataSelection, "Sample selection policy, regular or chargeFlip")
	flags.Uint("max-files-per-job", uint(defaults.MaxFilesPerJob), "Maximum number of input files processed by one job")
	flags.Bool("use-lumi", defaults.UseLumi, "Scale simulated samples to the luminosity")
	flags.Bool("strict", defaults.Strict, "Check that every input file exists while planning")
	flags.String("running-method", defaults.RunningMethod, "Backend running the jobs, sbatch or makefile")
	flags.Uint("parallel-jobs", uint(defaults.NofParallelJobs), "Number of jobs run in parallel by the makefile backend")
	flags.Duration("poll-interval", defaults.PollInterval, "Interval between two polls of the SLURM queue")
	flags.String("prep-dcard-exec", defaults.PrepDatacardExec, "Datacard preparation executable")
	flags.String("histogram-to-fit", defaults.HistogramToFit, "Histogram the datacards are built from")
	flags.Float64("luminosity", defaults.Luminosity, "Integrated luminosity in 1/pb")
	flags.String("is-mc-override", "", "Force the isMC field of job configurations, true or false, empty uses the catalog")
	flags.String("merge-exec", defaults.MergeExec, "Executable merging the job histograms")
}

// runConfig builds the run configuration: defaults, then the --config file
// if any, then every flag explicitly set.
func runConfig(cmd *cobra.Command) (*layout.Config, error) {
	cfg := layout.DefaultConfig()
	if path := sflags.MustGetString(cmd, "config"); path != "" {
		loaded, err := layout.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	set := func(name string) bool {
		return flags.Changed(name) || sflags.MustGetString(cmd, "config") == ""
	}

	if set("output-dir") {
		cfg.OutputDir = sflags.MustGetString(cmd, "output-dir")
	}
	if set("exec-name") {
		cfg.ExecName = sflags.MustGetString(cmd, "exec-name")
	}
	if set("charge-selection") {
		cfg.ChargeSelection = sflags.MustGetString(cmd, "charge-selection")
	}
	if set("lepton-selection") {
		cfg.LeptonSelection = sflags.MustGetString(cmd, "lepton-selection")
	}
	if set("data-selection") {
		cfg.DataSelection = sflags.MustGetString(cmd, "data-selection")
	}
	if set("max-files-per-job") {
		cfg.MaxFilesPerJob = int(sflags.MustGetUint(cmd, "max-files-per-job"))
	}
	if set("use-lumi") {
		cfg.UseLumi = sflags.MustGetBool(cmd, "use-lumi")
	}
	if set("strict") {
		cfg.Strict = sflags.MustGetBool(cmd, "strict")
	}
	if set("running-method") {
		cfg.RunningMethod = sflags.MustGetString(cmd, "running-method")
	}
	if set("parallel-jobs") {
		cfg.NofParallelJobs = int(sflags.MustGetUint(cmd, "parallel-jobs"))
	}
	if set("poll-interval") {
		cfg.PollInterval = mustGetDuration(cmd, "poll-interval")
	}
	if set("prep-dcard-exec") {
		cfg.PrepDatacardExec = sflags.MustGetString(cmd, "prep-dcard-exec")
	}
	if set("histogram-to-fit") {
		cfg.HistogramToFit = sflags.MustGetString(cmd, "histogram-to-fit")
	}
	if set("luminosity") {
		cfg.Luminosity = mustGetFloat64(cmd, "luminosity")
	}
	if set("merge-exec") {
		cfg.MergeExec = sflags.MustGetString(cmd, "merge-exec")
	}
	if flags.Changed("is-mc-override") {
		override, err := parseOptionalBool(sflags.MustGetString(cmd, "is-mc-override"))
		if err != nil {
			return nil, tterrors.NewInvalidValue("is_mc_override", sflags.MustGetString(cmd, "is-mc-override"), "true", "false", "")
		}
		cfg.IsMCOverride = override
	}

	return cfg, nil
}

func parseOptionalBool(in string) (*bool, error) {
	if in == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(in)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func mustGetDuration(cmd *cobra.Command, flagName string) time.Duration {
	val, err := cmd.Flags().GetDuration(flagName)
	if err != nil {
		panic(fmt.Sprintf("flags: couldn't find flag %q", flagName))
	}
	return val
}

func mustGetFloat64(cmd *cobra.Command, flagName string) float64 {
	val, err := cmd.Flags().GetFloat64(flagName)
	if err != nil {
		panic(fmt.Sprintf("flags: couldn't find flag %q", flagName))
	}
	return val
}
