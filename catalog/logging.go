package catalog

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("catalog", "github.com/tth-analysis/tthrun/catalog")
