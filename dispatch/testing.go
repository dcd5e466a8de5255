package dispatch

import (
	"context"
	"strings"
	"sync"
)

// StubRunner records every command and answers it with Handler, exit 0
// with empty output when Handler is nil or returns nil.
type StubRunner struct {
	Handler func(command string) *Result

	mu       sync.Mutex
	commands []string
}

func (r *StubRunner) Run(_ context.Context, command string) (*Result, error) {
	return r.respond(command), nil
}

func (r *StubRunner) Start(_ context.Context, command string) (Process, error) {
	return &stubProcess{result: r.respond(command)}, nil
}

func (r *StubRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// CommandsWithPrefix returns the recorded commands starting with prefix.
func (r *StubRunner) CommandsWithPrefix(prefix string) (out []string) {
	for _, c := range r.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return
}

func (r *StubRunner) respond(command string) *Result {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()

	var res *Result
	if r.Handler != nil {
		res = r.Handler(command)
	}
	if res == nil {
		res = &Result{}
	}
	res.Command = command
	return res
}

type stubProcess struct {
	result *Result
}

func (p *stubProcess) Wait() (*Result, error) {
	return p.result, nil
}
