package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/persistence-kit/pkrelease/internal/output"
)

// StepName identifies a pipeline step.
type StepName string

// Pipeline steps, in execution order.
const (
	StepClean     StepName = "clean"
	StepBootstrap StepName = "bootstrap"
	StepBuild     StepName = "build"
	StepCheck     StepName = "check"
	StepUpload    StepName = "upload"
)

// Defaults for the external toolchain.
const (
	DefaultPython  = "python"
	DefaultDistDir = "dist"
)

// DefaultBootstrapPackages are installed or upgraded by the bootstrap step.
var DefaultBootstrapPackages = []string{"build", "twine"}

// outputTailLines is how much captured output a step failure carries.
const outputTailLines = 20

var errNoArtifacts = errors.New("no artifacts found in output directory")

// Step is one unit of the pipeline.
type Step struct {
	Name StepName

	// Describe is the command line shown in logs and dry runs.
	Describe string

	// Action performs the step.
	Action func(ctx context.Context) Result
}

// StepResult records how a step ended.
type StepResult struct {
	Step     StepName      `json:"step"`
	Status   string        `json:"status"`
	Command  string        `json:"command,omitempty"`
	ExitCode int           `json:"exitCode,omitempty"`
	Duration time.Duration `json:"-"`
	Elapsed  string        `json:"elapsed,omitempty"`
}

// PipelineConfig describes the toolchain and the upload target.
type PipelineConfig struct {
	// WorkDir is the project root all paths are relative to.
	WorkDir string

	// DistDir is the build output directory, relative to WorkDir.
	DistDir string

	// Python is the interpreter used to run pip, build and twine.
	Python string

	// BootstrapPackages overrides DefaultBootstrapPackages.
	BootstrapPackages []string

	// SkipBootstrap omits the bootstrap step.
	SkipBootstrap bool

	// Endpoint is the resolved upload URL.
	Endpoint string

	// Credential authenticates the upload.
	Credential Credential
}

// Validate rejects output directories the clean step must never remove.
func (c PipelineConfig) Validate() error {
	dist := filepath.Clean(c.DistDir)
	switch {
	case c.DistDir == "":
		return errors.New("dist directory must not be empty")
	case filepath.IsAbs(dist):
		return fmt.Errorf("dist directory %q must be relative to the project root", c.DistDir)
	case dist == "." || dist == ".." || strings.HasPrefix(dist, ".."+string(filepath.Separator)):
		return fmt.Errorf("dist directory %q must be inside the project root", c.DistDir)
	}
	if c.Endpoint == "" {
		return errors.New("upload endpoint must not be empty")
	}
	return nil
}

func (c PipelineConfig) python() string {
	if c.Python == "" {
		return DefaultPython
	}
	return c.Python
}

func (c PipelineConfig) packages() []string {
	if len(c.BootstrapPackages) == 0 {
		return DefaultBootstrapPackages
	}
	return c.BootstrapPackages
}

// Runner executes the release pipeline: clean, bootstrap, build, check, upload.
type Runner struct {
	cfg       PipelineConfig
	exec      Executor
	artifacts []string
}

// NewRunner creates a Runner. exec runs every external command.
func NewRunner(cfg PipelineConfig, exec Executor) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, exec: exec}, nil
}

// Artifacts returns the files found in the output directory after the build.
func (r *Runner) Artifacts() []string {
	return append([]string(nil), r.artifacts...)
}

// Steps returns the pipeline in execution order.
func (r *Runner) Steps() []Step {
	py := r.cfg.python()
	dist := r.cfg.DistDir
	distGlob := filepath.Join(dist, "*")

	steps := []Step{{
		Name:     StepClean,
		Describe: "rm -rf " + dist,
		Action:   r.clean,
	}}

	if !r.cfg.SkipBootstrap {
		bootstrap := Command{Name: py, Args: append([]string{"-m", "pip", "install", "--upgrade"}, r.cfg.packages()...)}
		steps = append(steps, Step{
			Name:     StepBootstrap,
			Describe: bootstrap.String(),
			Action:   r.command(bootstrap),
		})
	}

	build := Command{Name: py, Args: []string{"-m", "build", "--outdir", dist}}
	steps = append(steps,
		Step{
			Name:     StepBuild,
			Describe: build.String(),
			Action:   r.command(build),
		},
		Step{
			Name:     StepCheck,
			Describe: Command{Name: py, Args: []string{"-m", "twine", "check", distGlob}}.String(),
			Action: r.withArtifacts(func(files []string) Command {
				return Command{Name: py, Args: append([]string{"-m", "twine", "check"}, files...)}
			}),
		},
		Step{
			Name: StepUpload,
			Describe: Command{Name: py, Args: []string{
				"-m", "twine", "upload", "--non-interactive", "--repository-url", r.cfg.Endpoint, distGlob,
			}}.String(),
			Action: r.withArtifacts(func(files []string) Command {
				args := []string{"-m", "twine", "upload", "--non-interactive", "--repository-url", r.cfg.Endpoint}
				return Command{Name: py, Args: append(args, files...), Env: r.cfg.Credential.Env()}
			}),
		},
	)
	return steps
}

// Plan lists the steps a run would perform, without running them.
func (r *Runner) Plan() []StepResult {
	steps := r.Steps()
	results := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		results = append(results, StepResult{Step: s.Name, Status: output.StatusPlanned, Command: s.Describe})
	}
	return results
}

// Run executes the steps in order and stops at the first failure, which is
// returned as a *PipelineStepError. Nothing is retried.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	steps := r.Steps()
	results := make([]StepResult, 0, len(steps))

	for _, step := range steps {
		log := output.StepLogger(string(step.Name))

		if err := ctx.Err(); err != nil {
			return results, &PipelineStepError{Step: step.Name, ExitCode: -1, Err: fmt.Errorf("interrupted: %w", err)}
		}

		log.Debug("running", "command", step.Describe)
		start := time.Now()

		var res Result
		_ = output.RunWithSpinner(ctx, func() error {
			res = step.Action(ctx)
			return nil
		}, output.WithTitle(fmt.Sprintf("%s: %s", step.Name, step.Describe)))

		elapsed := time.Since(start)
		sr := StepResult{
			Step:     step.Name,
			Command:  step.Describe,
			ExitCode: res.ExitCode,
			Duration: elapsed,
			Elapsed:  elapsed.Round(time.Millisecond).String(),
		}

		if !res.OK() {
			sr.Status = output.StatusFailed
			results = append(results, sr)
			tail := tailLines(string(res.Output), outputTailLines)
			if tail != "" {
				log.Error("step output", "tail", tail)
			}
			return results, &PipelineStepError{Step: step.Name, ExitCode: res.ExitCode, Output: tail, Err: res.Err}
		}

		sr.Status = output.StatusPassed
		results = append(results, sr)
		log.Info("done", "elapsed", sr.Elapsed)
	}

	return results, nil
}

func (r *Runner) clean(_ context.Context) Result {
	dir := filepath.Join(r.cfg.WorkDir, r.cfg.DistDir)
	if err := os.RemoveAll(dir); err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("removing %s: %w", dir, err)}
	}
	r.artifacts = nil
	return Result{}
}

func (r *Runner) command(cmd Command) func(context.Context) Result {
	return func(ctx context.Context) Result {
		return r.exec.Run(ctx, cmd)
	}
}

// withArtifacts expands the output directory before building the command,
// so the check and upload steps see exactly what the build produced.
func (r *Runner) withArtifacts(build func(files []string) Command) func(context.Context) Result {
	return func(ctx context.Context) Result {
		files, err := r.collectArtifacts()
		if err != nil {
			return Result{ExitCode: -1, Err: err}
		}
		r.artifacts = files
		return r.exec.Run(ctx, build(files))
	}
}

func (r *Runner) collectArtifacts() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.cfg.WorkDir, r.cfg.DistDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNoArtifacts
		}
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(r.cfg.DistDir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errNoArtifacts
	}
	sort.Strings(files)
	return files, nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
