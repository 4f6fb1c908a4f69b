package release

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string

	// Env is appended to the inherited environment. It is never logged.
	Env []string
}

// String renders the command line. Env is omitted so secrets stay out of logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a step. A nil Err means success.
type Result struct {
	ExitCode int
	Output   []byte
	Err      error
}

// OK reports whether the step succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Executor runs external commands.
type Executor interface {
	Run(ctx context.Context, cmd Command) Result
}

// defaultWaitDelay bounds how long an interrupted child may take to exit
// before it is killed.
const defaultWaitDelay = 10 * time.Second

// ProcessExecutor runs commands as child processes of this one.
type ProcessExecutor struct {
	// Dir is the working directory of every command.
	Dir string

	// Stream, when set, receives a live copy of the combined output.
	Stream io.Writer

	// WaitDelay overrides defaultWaitDelay.
	WaitDelay time.Duration
}

// NewProcessExecutor creates a ProcessExecutor rooted at dir.
func NewProcessExecutor(dir string) *ProcessExecutor {
	return &ProcessExecutor{Dir: dir}
}

// Run starts cmd and blocks until it exits. No timeout is applied; only ctx
// cancellation stops it, first with an interrupt and then a kill.
func (e *ProcessExecutor) Run(ctx context.Context, cmd Command) Result {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = e.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var out bytes.Buffer
	var w io.Writer = &out
	if e.Stream != nil {
		w = io.MultiWriter(&out, e.Stream)
	}
	c.Stdout = w
	c.Stderr = w

	c.Cancel = func() error {
		return c.Process.Signal(os.Interrupt)
	}
	c.WaitDelay = e.WaitDelay
	if c.WaitDelay == 0 {
		c.WaitDelay = defaultWaitDelay
	}

	err := c.Run()
	res := Result{Output: out.Bytes()}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = fmt.Errorf("interrupted: %w", ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Err = fmt.Errorf("%s exited with status %d", cmd.Name, res.ExitCode)
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("starting %s: %w", cmd.Name, err)
	}
	return res
}
