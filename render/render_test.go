package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tth-analysis/tthrun/catalog"
	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/work"
)

func testSetup(t *testing.T, backend layout.BackendMode, exec layout.ExecName, samples ...*catalog.Sample) (*layout.Layout, *work.Plan) {
	t.Helper()
	cfg := layout.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.RunningMethod = string(backend)
	cfg.ExecName = string(exec)
	l, err := layout.Build(cfg)
	require.NoError(t, err)

	plan, err := work.BuildNewPlan(work.TestCatalog(samples...), l, nil)
	require.NoError(t, err)
	return l, plan
}

func fileByPath(files []*File, path string) *File {
	for _, f := range files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

func TestRender_JobConfig(t *testing.T) {
	sample := work.TestSample("TTW", catalog.CategoryTTW, 2)
	l, plan := testSetup(t, layout.BackendQueue, layout.Exec2lss1tau, sample)

	files, err := Render(l, plan)
	require.NoError(t, err)

	job := plan.Jobs[0]
	cfg := fileByPath(files, job.ConfigFile)
	require.NotNil(t, cfg)
	content := string(cfg.Content)

	assert.Contains(t, content, "    fileNames = cms.vstring('/hdfs/TTW/0000/tree_1.root',\n"+
		"                            '/hdfs/TTW/0000/tree_2.root'),\n")
	assert.Contains(t, content, "fileName = cms.string('"+job.OutputFile+"')")
	assert.Contains(t, content, "process.analyze_2lss_1tau = cms.PSet(")
	assert.Contains(t, content, "process = cms.string('TTW'),")
	assert.Contains(t, content, "triggers_2e = cms.vstring(")
	assert.Contains(t, content, "chargeSelection = cms.string('SS'),")
	assert.Contains(t, content, "leptonSelection = cms.string('Tight'),")
	assert.Contains(t, content, "isMC = cms.bool(True),")
	assert.Contains(t, content, "lumiScale = cms.double(22.6),")
	assert.False(t, cfg.Executable)
}

func TestRender_SingleLeptonSkipsDileptonTriggers(t *testing.T) {
	l, plan := testSetup(t, layout.BackendQueue, layout.Exec1l2tau, work.TestSample("TTW", catalog.CategoryTTW, 1))

	files, err := Render(l, plan)
	require.NoError(t, err)

	content := string(fileByPath(files, plan.Jobs[0].ConfigFile).Content)
	assert.Contains(t, content, "use_triggers_1mu = cms.bool(True),\n\n    chargeSelection")
	assert.NotContains(t, content, "triggers_2e")
	assert.NotContains(t, content, "triggers_1e1mu")
}

func TestRender_JobScript(t *testing.T) {
	l, plan := testSetup(t, layout.BackendQueue, layout.Exec2lss1tau, work.TestSample("TTW", catalog.CategoryTTW, 1))

	files, err := Render(l, plan)
	require.NoError(t, err)

	job := plan.Jobs[0]
	script := fileByPath(files, job.ScriptFile)
	require.NotNil(t, script)
	assert.True(t, script.Executable)
	assert.Equal(t, "#!/bin/bash\nanalyze_2lss_1tau "+job.ConfigFile+"\n", string(script.Content))
}

func TestRender_SbatchScript(t *testing.T) {
	l, plan := testSetup(t, layout.BackendQueue, layout.Exec2lss1tau, work.TestSample("TTW", catalog.CategoryTTW, 50))

	files, err := Render(l, plan)
	require.NoError(t, err)

	assert.Nil(t, fileByPath(files, l.MakefilePath()))
	sbatch := fileByPath(files, l.SbatchPath())
	require.NotNil(t, sbatch)
	assert.True(t, sbatch.Executable)

	logs := l.LogsDir()
	jobs := l.JobsDir()
	assert.Equal(t, "#!/bin/bash\n"+
		"sbatch --output="+filepath.Join(logs, "TTW_0-%j.out")+" "+filepath.Join(jobs, "TTW_0.sh")+"\n"+
		"sbatch --output="+filepath.Join(logs, "TTW_1-%j.out")+" "+filepath.Join(jobs, "TTW_1.sh")+"\n",
		string(sbatch.Content))
}

func TestRender_Makefile(t *testing.T) {
	l, plan := testSetup(t, layout.BackendLocal, layout.Exec2lss1tau, work.TestSample("TTW", catalog.CategoryTTW, 45*30))
	require.Len(t, plan.Jobs, 45)

	files, err := Render(l, plan)
	require.NoError(t, err)
	assert.Nil(t, fileByPath(files, l.SbatchPath()))

	makefile := fileByPath(files, l.MakefilePath())
	require.NotNil(t, makefile)
	content := string(makefile.Content)

	lines := strings.Split(content, "\n")
	assert.Equal(t, `.PHONY: all \`, lines[0])
	assert.Equal(t, "\tj1 j2 j3 j4 j5 j6 j7 j8 j9 j10 j11 j12 j13 j14 j15 j16 j17 j18 j19 j20 \\", lines[1])
	assert.Equal(t, "\tj41 j42 j43 j44 j45", lines[3])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, `all: \`, lines[5])

	job := plan.Jobs[44]
	assert.Contains(t, content, fmt.Sprintf("\nj45:\n\t@bash %s >> %s 2>&1\n", job.ScriptFile, job.LogFile))
	assert.Equal(t, 45, strings.Count(content, "\t@bash "))
}

func TestRender_DatacardConfig(t *testing.T) {
	l, plan := testSetup(t, layout.BackendQueue, layout.Exec2lss1tau, work.TestSample("TTW", catalog.CategoryTTW, 1))

	files, err := Render(l, plan)
	require.NoError(t, err)

	cfg := fileByPath(files, l.DatacardConfigPath())
	require.NotNil(t, cfg)
	content := string(cfg.Content)
	assert.Contains(t, content, "fileNames = cms.vstring('"+l.HistogramFile()+"'),")
	assert.Contains(t, content, "fileName = cms.string('"+l.DatacardOutputFile()+"')")
	assert.Contains(t, content, `input = cms.string("2lss_1tau_SS_Tight/sel/evt"),`)
	assert.Contains(t, content, `output = cms.string("ttH_2lss_1tau")`)
	assert.Contains(t, content, `histogramToFit = cms.string("mvaDiscr_2lss"),`)
	assert.Contains(t, content, "signals = cms.vstring(\"ttH_hww\",\n        \"ttH_hzz\",\n        \"ttH_htt\"),")
}

func TestWriteSetup(t *testing.T) {
	l, plan := testSetup(t, layout.BackendLocal, layout.Exec2lss1tau,
		work.TestSample("TTW", catalog.CategoryTTW, 40),
		work.TestSample("ttHJetToNonbb", catalog.CategorySignal, 10),
	)

	require.NoError(t, WriteSetup(context.Background(), l, plan))

	for _, d := range Directories(l, plan) {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), d)
	}
	assert.DirExists(t, l.SampleConfigDir("TTW"))
	assert.DirExists(t, l.HistogramCategoryDir("signal"))

	for _, job := range plan.Jobs {
		assert.FileExists(t, job.ConfigFile)
		info, err := os.Stat(job.ScriptFile)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0100, "script %s must be executable", job.ScriptFile)
	}
	assert.FileExists(t, l.MakefilePath())
	assert.FileExists(t, l.DatacardConfigPath())
	assert.NoFileExists(t, l.SbatchPath())
}

func TestPyFloat(t *testing.T) {
	tests := []struct {
		in     float64
		expect string
	}{
		{1, "1.0"},
		{22.6, "22.6"},
		{0.000123, "0.000123"},
		{1e-07, "1e-07"},
	}

	for _, test := range tests {
		t.Run(test.expect, func(t *testing.T) {
			assert.Equal(t, test.expect, pyFloat(test.in))
		})
	}
}

func TestLoadTemplates(t *testing.T) {
	tpls, err := loadTemplates(fstest.MapFS{
		"templates/a.txt.gotmpl":    {Data: []byte(`{{ pyBool . }}`)},
		"templates/sub/b.sh.gotmpl": {Data: []byte(`b`)},
		"templates/README":           {Data: []byte(`ignored`)},
	})
	require.NoError(t, err)

	var names []string
	for _, tpl := range tpls.Templates() {
		if tpl.Name() != "" {
			names = append(names, tpl.Name())
		}
	}
	assert.ElementsMatch(t, []string{"job.sh", "a.txt", "b.sh"}, names)

	out, err := execute(tpls, "a.txt", true)
	require.NoError(t, err)
	assert.Equal(t, "True", string(out))

	_, err = loadTemplates(fstest.MapFS{
		"a/x.gotmpl": {Data: []byte(`1`)},
		"b/x.gotmpl": {Data: []byte(`2`)},
	})
	assert.ErrorContains(t, err, `template "x" defined twice`)

	_, err = loadTemplates(fstest.MapFS{"README": {Data: []byte(`none`)}})
	assert.Error(t, err)
}
