package work

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/catalog"
	tterrors "github.com/tth-analysis/tthrun/errors"
	"github.com/tth-analysis/tthrun/inputs"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/partition"
)

// Plan is the full set of jobs of a run, in catalog then group order.
type Plan struct {
	Jobs JobList
	// Samples are the samples that passed the run's filters, including
	// the ones without any file.
	Samples []*catalog.Sample
	JobIDs  []string
}

// SampleJobs returns the jobs of one sample, in group order.
func (p *Plan) SampleJobs(processName string) (out JobList) {
	for _, j := range p.Jobs {
		if j.Sample.ProcessName == processName {
			out = append(out, j)
		}
	}
	return
}

// Categories lists the histogram categories that receive job outputs, in
// first appearance order.
func (p *Plan) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, j := range p.Jobs {
		c := string(j.Sample.Category)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ResolverFactory builds the path resolver of a sample. Tests swap it to
// avoid touching the filesystem in strict mode.
type ResolverFactory func(primary, secondary string, selection inputs.Selection, strict bool) *inputs.Resolver

func DefaultResolverFactory(primary, secondary string, selection inputs.Selection, strict bool) *inputs.Resolver {
	return &inputs.Resolver{
		PrimaryPath:        primary,
		SecondaryPath:      secondary,
		SecondarySelection: selection,
		Strict:             strict,
	}
}

// Include applies the data selection policy of the run to a sample.
func Include(sample *catalog.Sample, selection layout.DataSelection) bool {
	switch selection {
	case layout.DataSelectionRegular:
		if !sample.UseIt {
			return false
		}
		switch sample.Kind() {
		case catalog.KindOverlap, catalog.KindDataDrivenEstimate:
			return false
		}
		return true
	case layout.DataSelectionChargeFlip:
		if sample.Kind() == catalog.KindDataDrivenEstimate && strings.Contains(sample.ProcessName, "DY") {
			return true
		}
		return sample.Kind() == catalog.KindData
	}
	return false
}

// LumiScale is the event weight of a sample: cross-section times
// luminosity over generated events for simulated samples when the run
// scales by luminosity, 1 otherwise.
func LumiScale(sample *catalog.Sample, useLumi bool, luminosity float64) (float64, error) {
	if !useLumi || !sample.IsMC() {
		return 1., nil
	}
	if sample.NofEvents <= 0 {
		return 0, tterrors.NewInvalidConfiguration("nof_events", "simulated sample %q needs a positive event count to be scaled", sample.ProcessName)
	}
	return sample.CrossSection * luminosity / float64(sample.NofEvents), nil
}

// BuildNewPlan plans the jobs of every sample of cat selected by the run.
// Samples are handled one at a time in catalog order; the first error
// aborts planning.
func BuildNewPlan(cat *catalog.Catalog, l *layout.Layout, newResolver ResolverFactory) (*Plan, error) {
	if newResolver == nil {
		newResolver = DefaultResolverFactory
	}

	plan := &Plan{}
	for _, sample := range cat.Samples() {
		if !Include(sample, l.DataSelection()) {
			zlog.Debug("skipping sample", zap.Object("sample", sample), zap.String("data_selection", string(l.DataSelection())))
			continue
		}

		jobs, err := planSample(sample, l, newResolver)
		if err != nil {
			return nil, fmt.Errorf("planning sample %q: %w", sample.ProcessName, err)
		}
		plan.Samples = append(plan.Samples, sample)
		plan.Jobs = append(plan.Jobs, jobs...)
		zlog.Info("planned sample", zap.String("process_name", sample.ProcessName), zap.Int("job_count", len(jobs)))
	}
	plan.JobIDs = plan.Jobs.IDs()
	return plan, nil
}

func planSample(sample *catalog.Sample, l *layout.Layout, newResolver ResolverFactory) (JobList, error) {
	primary, secondary, selection, err := sample.Stores()
	if err != nil {
		return nil, err
	}

	scale, err := LumiScale(sample, l.UseLumi(), l.Luminosity())
	if err != nil {
		return nil, err
	}

	isMC := sample.IsMC()
	if forced, ok := l.IsMCOverride(); ok {
		isMC = forced
	}

	groups, err := partition.Split(sample.NofFiles, l.MaxFilesPerJob())
	if err != nil {
		return nil, err
	}

	resolver := newResolver(primary, secondary, selection, l.Strict())
	category := string(sample.Category)

	jobs := make(JobList, 0, len(groups))
	for idx, group := range groups {
		jobID := JobID(sample.ProcessName, idx)
		files, err := resolver.Resolve(group.Indices())
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", jobID, err)
		}

		jobs = append(jobs, &Job{
			Sample:     sample,
			GroupIndex: idx,
			Files:      group,
			InputFiles: files,
			OutputFile: l.HistogramOutputPath(category, sample.ProcessName, idx),
			ConfigFile: l.JobConfigPath(sample.ProcessName, jobID),
			ScriptFile: l.JobScriptPath(jobID),
			LogFile:    l.JobLogPath(jobID),
			LumiScale:  scale,
			IsMC:       isMC,
		})
	}
	return jobs, nil
}
