package inputs

import (
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var zlog *zap.Logger

func init() {
	zlog, _ = logging.PackageLogger("inputs", "github.com/tth-analysis/tthrun/inputs")
}
