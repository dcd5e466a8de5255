package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/catalog"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/render"
	"github.com/tth-analysis/tthrun/work"
)

// prepare loads the catalog, validates the run configuration, plans the
// jobs and writes every file they need.
func prepare(ctx context.Context, cmd *cobra.Command, catalogPath string) (*layout.Layout, *work.Plan, error) {
	cfg, err := runConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	l, err := layout.Build(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("run configuration: %w", err)
	}
	zlog.Info("run layout", zap.Object("layout", l))

	cat, err := catalog.Load(ctx, catalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}

	plan, err := work.BuildNewPlan(cat, l, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("planning jobs: %w", err)
	}

	if err := render.WriteSetup(ctx, l, plan); err != nil {
		return nil, nil, err
	}
	return l, plan, nil
}

func printPlanSummary(out io.Writer, l *layout.Layout, plan *work.Plan) {
	pluralizer := pluralize.NewClient()

	fmt.Fprintf(out, "Analysis %s, %s selection, %s backend\n", l.Subdir(), l.DataSelection(), l.Backend())
	for _, sample := range plan.Samples {
		jobs := plan.SampleJobs(sample.ProcessName)
		scale := 1.
		if len(jobs) != 0 {
			scale = jobs[0].LumiScale
		}
		fmt.Fprintf(out, "  %-30s %-26s %s in %s, scale %g\n",
			sample.ProcessName,
			sample.Category,
			pluralizer.Pluralize("file", sample.NofFiles, true),
			pluralizer.Pluralize("job", len(jobs), true),
			scale,
		)
	}
	fmt.Fprintf(out, "%s planned over %s, output in %s\n",
		pluralizer.Pluralize("job", len(plan.Jobs), true),
		pluralizer.Pluralize("sample", len(plan.Samples), true),
		l.OutputDir(),
	)
	if total := totalInputFiles(plan); total > 0 {
		fmt.Fprintf(out, "%s input files\n", humanize.Comma(int64(total)))
	}
}

func totalInputFiles(plan *work.Plan) (total int) {
	for _, j := range plan.Jobs {
		total += len(j.InputFiles)
	}
	return
}
