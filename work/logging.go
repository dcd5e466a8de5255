package work

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("work", "github.com/tth-analysis/tthrun/work")
