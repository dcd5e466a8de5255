package work

import (
	"fmt"
	"strconv"

	"go.uber.org/zap/zapcore"

	"github.com/tth-analysis/tthrun/catalog"
	"github.com/tth-analysis/tthrun/partition"
)

// Job is a single unit of work: one group of input files of a sample,
// processed by one invocation of the analysis executable.
type Job struct {
	Sample     *catalog.Sample
	GroupIndex int
	Files      *partition.Range

	InputFiles []string
	OutputFile string
	ConfigFile string
	ScriptFile string
	LogFile    string

	LumiScale float64
	// IsMC is the sample type written in the job configuration, which a run
	// may override independently of the catalog.
	IsMC bool
}

// JobID names a job by its process and group index, "<process>_<idx>".
func JobID(processName string, groupIndex int) string {
	return processName + "_" + strconv.Itoa(groupIndex)
}

func (j *Job) ID() string {
	return JobID(j.Sample.ProcessName, j.GroupIndex)
}

func (j *Job) String() string {
	return fmt.Sprintf("job: id=%s files=%s", j.ID(), j.Files)
}

func (j *Job) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("job_id", j.ID())
	enc.AddString("category", string(j.Sample.Category))
	enc.AddInt("start_index", j.Files.StartIndex)
	enc.AddInt("end_index", j.Files.ExclusiveEndIndex)
	enc.AddFloat64("lumi_scale", j.LumiScale)
	return nil
}

type JobList []*Job

func (l JobList) IDs() []string {
	out := make([]string, len(l))
	for i, j := range l {
		out[i] = j.ID()
	}
	return out
}

func (l JobList) OutputFiles() []string {
	out := make([]string, len(l))
	for i, j := range l {
		out[i] = j.OutputFile
	}
	return out
}

func (l JobList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, j := range l {
		enc.AppendObject(j)
	}
	return nil
}
