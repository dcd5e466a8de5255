package render

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("render", "github.com/tth-analysis/tthrun/render")
