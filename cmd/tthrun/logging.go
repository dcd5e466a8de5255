package main

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.RootLogger("tthrun", "github.com/tth-analysis/tthrun/cmd/tthrun")

func init() {
	logging.InstantiateLoggers()
}
