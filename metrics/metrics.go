package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streamingfast/dmetrics"
)

var Metricset = dmetrics.NewSet()

var JobsSubmitted = Metricset.NewCounter("tthrun_jobs_submitted_counter", "Counter for jobs handed to the backend")
var Polls = Metricset.NewCounter("tthrun_backend_polls_counter", "Counter for batch system polls")
var CommandsSucceeded = Metricset.NewCounter("tthrun_commands_succeeded_counter", "Counter for external commands that exited with status 0")
var CommandsFailed = Metricset.NewCounter("tthrun_commands_failed_counter", "Counter for external commands that exited with a non-zero status")

var JobsPlanned = Metricset.NewGauge("tthrun_jobs_planned", "Number of jobs in the run's plan")
var PendingJobs = Metricset.NewGauge("tthrun_pending_jobs", "Number of batch tasks still listed by the last poll")
var StageDuration = Metricset.NewGaugeVec("tthrun_stage_duration_seconds", []string{"stage"}, "Wall time spent in each stage of the run")

// RunState is 1 for the state the run is in, 0 for every other.
var RunState = Metricset.NewGaugeVec("tthrun_run_state", []string{"state"}, "Current state of the run")

// Register adds the metric set to the default prometheus registry. It can
// be called more than once.
func Register() {
	Metricset.Register()
}

// WriteTextfile dumps the default registry in the node exporter textfile
// format.
func WriteTextfile(path string) error {
	Register()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
