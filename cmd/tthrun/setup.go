package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streamingfast/cli/sflags"
	"github.com/streamingfast/logging"
	"go.uber.org/zap/zapcore"
)

func setup(cmd *cobra.Command, _ []string) error {
	level, err := zapcore.ParseLevel(sflags.MustGetString(cmd, "log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	logging.InstantiateLoggers(logging.WithDefaultLevel(level))
	return nil
}
