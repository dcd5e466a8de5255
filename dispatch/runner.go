package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tth-analysis/tthrun/layout"
	"github.com/tth-analysis/tthrun/metrics"
)

// Result is the outcome of one shell command. A non-zero ExitCode is not an
// error at this level; callers decide what it means for their stage.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

type Process interface {
	// Wait blocks until the process exits. The error is only set when the
	// process could not be waited on or was killed by context cancellation.
	Wait() (*Result, error)
}

type Runner interface {
	Run(ctx context.Context, command string) (*Result, error)
	Start(ctx context.Context, command string) (Process, error)
}

// ShellRunner executes commands through a shell and appends their output
// to the run's stdout and stderr log streams, each block prefixed by the
// command that produced it.
type ShellRunner struct {
	Shell  string
	Stdout io.Writer
	Stderr io.Writer

	// Quiet commands are not logged at info level, polling would flood the
	// console otherwise.
	Quiet func(command string) bool

	closers []io.Closer
	mu      sync.Mutex
}

func NewShellRunner(stdout, stderr io.Writer) *ShellRunner {
	return &ShellRunner{Shell: "/bin/sh", Stdout: stdout, Stderr: stderr}
}

// NewLogStreamsRunner opens (truncating) the stdout.log and stderr.log files
// of the run.
func NewLogStreamsRunner(l *layout.Layout) (*ShellRunner, error) {
	if err := os.MkdirAll(l.OutputDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	stdout, err := os.Create(l.StdoutLogPath())
	if err != nil {
		return nil, fmt.Errorf("opening stdout log: %w", err)
	}
	stderr, err := os.Create(l.StderrLogPath())
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("opening stderr log: %w", err)
	}

	r := NewShellRunner(stdout, stderr)
	r.closers = []io.Closer{stdout, stderr}
	return r, nil
}

func (r *ShellRunner) Close() error {
	var errs error
	for _, c := range r.closers {
		errs = multierr.Append(errs, c.Close())
	}
	r.closers = nil
	return errs
}

func (r *ShellRunner) Run(ctx context.Context, command string) (*Result, error) {
	proc, err := r.Start(ctx, command)
	if err != nil {
		return nil, err
	}
	return proc.Wait()
}

func (r *ShellRunner) Start(ctx context.Context, command string) (Process, error) {
	if r.Quiet == nil || !r.Quiet(command) {
		zlog.Info("running command", zap.String("command", command))
	} else {
		zlog.Debug("running command", zap.String("command", command))
	}

	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	p := &shellProcess{
		runner:  r,
		ctx:     ctx,
		command: command,
		cmd:     exec.CommandContext(ctx, shell, "-c", command),
		started: time.Now(),
	}
	p.cmd.WaitDelay = 5 * time.Second
	p.cmd.Stdout = &p.stdout
	p.cmd.Stderr = &p.stderr

	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", command, err)
	}
	return p, nil
}

type shellProcess struct {
	runner  *ShellRunner
	ctx     context.Context
	command string
	cmd     *exec.Cmd
	started time.Time

	stdout bytes.Buffer
	stderr bytes.Buffer

	once   sync.Once
	result *Result
	err    error
}

func (p *shellProcess) Wait() (*Result, error) {
	p.once.Do(func() {
		waitErr := p.cmd.Wait()
		p.result = &Result{
			Command:  p.command,
			Stdout:   p.stdout.String(),
			Stderr:   p.stderr.String(),
			ExitCode: p.cmd.ProcessState.ExitCode(),
			Duration: time.Since(p.started),
		}
		p.runner.record(p.result)

		var exitErr *exec.ExitError
		switch {
		case p.ctx.Err() != nil && !p.result.Succeeded():
			p.err = fmt.Errorf("command %q interrupted: %w", p.command, p.ctx.Err())
		case waitErr != nil && !errors.As(waitErr, &exitErr):
			p.err = fmt.Errorf("waiting on %q: %w", p.command, waitErr)
		}
	})
	return p.result, p.err
}

func (r *ShellRunner) record(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Succeeded() {
		metrics.CommandsSucceeded.Inc()
	} else {
		metrics.CommandsFailed.Inc()
	}
	writeBlock(r.Stdout, res.Command, res.Stdout)
	writeBlock(r.Stderr, res.Command, res.Stderr)
	zlog.Debug("command finished", zap.String("command", res.Command), zap.Int("exit_code", res.ExitCode), zap.Duration("elapsed", res.Duration))
}

// writeBlock appends one command's output to a log stream, so that the next
// block always starts on its own line.
func writeBlock(w io.Writer, command, output string) {
	if w == nil {
		return
	}
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	fmt.Fprintf(w, "%s\n%s", command, output)
}
