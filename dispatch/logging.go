package dispatch

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("dispatch", "github.com/tth-analysis/tthrun/dispatch")
