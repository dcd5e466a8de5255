package render

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lithammer/dedent"

	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/work"
)

// MakefileLabelsPerLine keeps the generated Makefile readable.
const MakefileLabelsPerLine = 20

var DatacardProcesses = []string{"data_obs", "TTW", "TTZ", "WZ", "Rares", "fakes_data", "flips_data"}

var DatacardSignals = []string{"ttH_hww", "ttH_hzz", "ttH_htt"}

var SystematicShifts = []string{
	"CMS_ttHl_btag_HFUp",
	"CMS_ttHl_btag_HFDown",
	"CMS_ttHl_btag_HFStats1Up",
	"CMS_ttHl_btag_HFStats1Down",
	"CMS_ttHl_btag_HFStats2Up",
	"CMS_ttHl_btag_HFStats2Down",
	"CMS_ttHl_btag_LFUp",
	"CMS_ttHl_btag_LFDown",
	"CMS_ttHl_btag_LFStats1Up",
	"CMS_ttHl_btag_LFStats1Down",
	"CMS_ttHl_btag_LFStats2Up",
	"CMS_ttHl_btag_LFStats2Down",
	"CMS_ttHl_btag_cErr1Up",
	"CMS_ttHl_btag_cErr1Down",
	"CMS_ttHl_btag_cErr2Up",
	"CMS_ttHl_btag_cErr2Down",
	"CMS_ttHl_JESUp",
	"CMS_ttHl_JESDown",
}

//go:embed templates/*
var templatesFS embed.FS

const jobScriptTemplate = `
	#!/bin/bash
	{{ .ExecName }} {{ .ConfigFile }}
`

var funcMap = template.FuncMap{
	"pyBool":    pyBool,
	"pyFloat":   pyFloat,
	"pyStrings": pyStrings,
	"pyQuoted":  pyQuoted,
}

var templates = sync.OnceValues(func() (*template.Template, error) {
	return loadTemplates(templatesFS)
})

// loadTemplates parses every .gotmpl file of fsys, named after its base name
// without the extension, plus the inline job script template as "job.sh".
func loadTemplates(fsys fs.FS) (*template.Template, error) {
	t := template.New("").Funcs(funcMap)
	if _, err := t.New("job.sh").Parse(dedent.Dedent(jobScriptTemplate)[1:]); err != nil {
		return nil, err
	}

	filenames, err := doublestar.Glob(fsys, "**/*.gotmpl")
	if err != nil {
		return nil, err
	}
	if len(filenames) == 0 {
		return nil, fmt.Errorf("no template found in embedded files")
	}

	for _, filename := range filenames {
		cnt, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return nil, err
		}

		name := strings.TrimSuffix(path.Base(filename), ".gotmpl")
		if t.Lookup(name) != nil {
			return nil, fmt.Errorf("template %q defined twice, last in %q", name, filename)
		}
		if _, err = t.New(name).Parse(string(cnt)); err != nil {
			return nil, fmt.Errorf("template %q: %w", filename, err)
		}
	}
	return t, nil
}

type jobConfig struct {
	FileNames        []string
	OutputFile       string
	ExecName         string
	Category         string
	DileptonTriggers bool
	ChargeSelection  string
	LeptonSelection  string
	IsMC             bool
	LumiScale        float64
}

type jobScript struct {
	ExecName   string
	ConfigFile string
}

type makeRule struct {
	Label  string
	Script string
	Log    string
}

type makefile struct {
	LabelLines []string
	Rules      []makeRule
}

type sbatchJob struct {
	LogPattern string
	Script     string
}

type datacardConfig struct {
	HistogramFile  string
	OutputFile     string
	AnalysisType   string
	OutputCategory string
	HistogramToFit string
	Processes      []string
	Signals        []string
	SysShifts      []string
}

// File is one rendered file of a run setup.
type File struct {
	Path       string
	Content    []byte
	Executable bool
}

// Render produces every file a run needs before it is dispatched: the
// configuration and script of each job, the backend's submission file and
// the datacard preparation configuration.
func Render(l *layout.Layout, plan *work.Plan) ([]*File, error) {
	tpls, err := templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	var files []*File
	for _, job := range plan.Jobs {
		content, err := execute(tpls, "job_cfg.py", &jobConfig{
			FileNames:        job.InputFiles,
			OutputFile:       job.OutputFile,
			ExecName:         string(l.ExecName()),
			Category:         string(job.Sample.Category),
			DileptonTriggers: l.ExecName() != layout.Exec1l2tau,
			ChargeSelection:  string(l.ChargeSelection()),
			LeptonSelection:  string(l.LeptonSelection()),
			IsMC:             job.IsMC,
			LumiScale:        job.LumiScale,
		})
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.ID(), err)
		}
		files = append(files, &File{Path: job.ConfigFile, Content: content})

		script, err := execute(tpls, "job.sh", &jobScript{ExecName: string(l.ExecName()), ConfigFile: job.ConfigFile})
		if err != nil {
			return nil, fmt.Errorf("job %q script: %w", job.ID(), err)
		}
		files = append(files, &File{Path: job.ScriptFile, Content: script, Executable: true})
	}

	switch l.Backend() {
	case layout.BackendLocal:
		content, err := execute(tpls, "Makefile", newMakefile(plan.Jobs))
		if err != nil {
			return nil, fmt.Errorf("makefile: %w", err)
		}
		files = append(files, &File{Path: l.MakefilePath(), Content: content})

	case layout.BackendQueue:
		var jobs []sbatchJob
		for _, job := range plan.Jobs {
			jobs = append(jobs, sbatchJob{LogPattern: l.QueueLogPattern(job.ID()), Script: job.ScriptFile})
		}
		content, err := execute(tpls, "sbatch.sh", map[string]any{"Jobs": jobs})
		if err != nil {
			return nil, fmt.Errorf("sbatch script: %w", err)
		}
		files = append(files, &File{Path: l.SbatchPath(), Content: content, Executable: true})
	}

	content, err := execute(tpls, "prepare_datacards_cfg.py", &datacardConfig{
		HistogramFile:  l.HistogramFile(),
		OutputFile:     l.DatacardOutputFile(),
		AnalysisType:   l.AnalysisType(),
		OutputCategory: l.OutputCategory(),
		HistogramToFit: l.HistogramToFit(),
		Processes:      DatacardProcesses,
		Signals:        DatacardSignals,
		SysShifts:      SystematicShifts,
	})
	if err != nil {
		return nil, fmt.Errorf("datacard config: %w", err)
	}
	files = append(files, &File{Path: l.DatacardConfigPath(), Content: content})

	return files, nil
}

func newMakefile(jobs work.JobList) *makefile {
	out := &makefile{}
	var labels []string
	for i, job := range jobs {
		label := "j" + strconv.Itoa(i+1)
		labels = append(labels, label)
		out.Rules = append(out.Rules, makeRule{Label: label, Script: job.ScriptFile, Log: job.LogFile})
	}
	for start := 0; start < len(labels); start += MakefileLabelsPerLine {
		end := min(start+MakefileLabelsPerLine, len(labels))
		out.LabelLines = append(out.LabelLines, strings.Join(labels[start:end], " "))
	}
	return out
}

func execute(tpls *template.Template, name string, data any) ([]byte, error) {
	buffer := &bytes.Buffer{}
	if err := tpls.ExecuteTemplate(buffer, name, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buffer.Bytes(), nil
}

func pyBool(in bool) string {
	if in {
		return "True"
	}
	return "False"
}

// pyFloat formats like Python's repr, integral values keep a ".0".
func pyFloat(in float64) string {
	out := strconv.FormatFloat(in, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eEn") {
		out += ".0"
	}
	return out
}

func pyStrings(in []string, indent int) string { return pyList(in, "'", indent) }
func pyQuoted(in []string, indent int) string  { return pyList(in, `"`, indent) }

func pyList(in []string, quote string, indent int) string {
	quoted := make([]string, len(in))
	for i, s := range in {
		quoted[i] = quote + s + quote
	}
	return strings.Join(quoted, ",\n"+strings.Repeat(" ", indent))
}
