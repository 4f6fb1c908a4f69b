package release

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
)

// fakeExecutor records commands and simulates the python toolchain.
type fakeExecutor struct {
	mu    sync.Mutex
	dir   string
	calls []Command

	// fail makes the named step exit with status 1 and the given output.
	fail       StepName
	failOutput string

	// during runs inside the named step before it returns.
	during     StepName
	duringFunc func(ctx context.Context)
}

func (f *fakeExecutor) Run(ctx context.Context, cmd Command) Result {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	step := stepOf(cmd)
	if step == f.during && f.duringFunc != nil {
		f.duringFunc(ctx)
		if ctx.Err() != nil {
			return Result{ExitCode: -1, Err: ctx.Err()}
		}
	}
	if step == f.fail {
		return Result{ExitCode: 1, Output: []byte(f.failOutput), Err: errors.New("exited with status 1")}
	}
	if step == StepBuild {
		dist := filepath.Join(f.dir, cmd.Args[len(cmd.Args)-1])
		if err := os.MkdirAll(dist, 0o755); err != nil {
			return Result{ExitCode: -1, Err: err}
		}
		for _, name := range []string{"persistence_kit-0.1.1-py3-none-any.whl", "persistence_kit-0.1.1.tar.gz"} {
			if err := os.WriteFile(filepath.Join(dist, name), []byte("artifact"), 0o644); err != nil {
				return Result{ExitCode: -1, Err: err}
			}
		}
	}
	return Result{Output: []byte("ok\n")}
}

func (f *fakeExecutor) steps() []StepName {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]StepName, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, stepOf(c))
	}
	return names
}

func (f *fakeExecutor) call(step StepName) (Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if stepOf(c) == step {
			return c, true
		}
	}
	return Command{}, false
}

func stepOf(cmd Command) StepName {
	if len(cmd.Args) < 2 {
		return ""
	}
	switch cmd.Args[1] {
	case "pip":
		return StepBootstrap
	case "build":
		return StepBuild
	case "twine":
		if len(cmd.Args) > 2 && cmd.Args[2] == "check" {
			return StepCheck
		}
		return StepUpload
	}
	return ""
}

func newTestRunner(t *testing.T, exec *fakeExecutor, mutate ...func(*PipelineConfig)) *Runner {
	t.Helper()
	output.SetupLogging(output.LogConfig{Writer: &strings.Builder{}})
	cfg := PipelineConfig{
		WorkDir:    exec.dir,
		DistDir:    DefaultDistDir,
		Endpoint:   PreviewEndpoint,
		Credential: Credential{Username: TokenUsername, Token: "pypi-secret"},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := NewRunner(cfg, exec)
	require.NoError(t, err)
	return r
}

func TestRunner_RunsStepsInOrder(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir()}
	r := newTestRunner(t, exec)

	results, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []StepName{StepBootstrap, StepBuild, StepCheck, StepUpload}, exec.steps())
	require.Len(t, results, 5)
	for i, want := range []StepName{StepClean, StepBootstrap, StepBuild, StepCheck, StepUpload} {
		assert.Equal(t, want, results[i].Step)
		assert.Equal(t, output.StatusPassed, results[i].Status)
	}
	assert.Equal(t, []string{
		filepath.Join("dist", "persistence_kit-0.1.1-py3-none-any.whl"),
		filepath.Join("dist", "persistence_kit-0.1.1.tar.gz"),
	}, r.Artifacts())
}

func TestRunner_UploadCommand(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir()}
	r := newTestRunner(t, exec, func(c *PipelineConfig) {
		c.Endpoint = ProductionEndpoint
		c.Python = "python3.12"
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	upload, ok := exec.call(StepUpload)
	require.True(t, ok)
	assert.Equal(t, "python3.12", upload.Name)
	assert.Contains(t, upload.Args, "--repository-url")
	assert.Contains(t, upload.Args, ProductionEndpoint)
	assert.Contains(t, upload.Args, filepath.Join("dist", "persistence_kit-0.1.1.tar.gz"))
	assert.Contains(t, upload.Env, "TWINE_USERNAME=__token__")
	assert.Contains(t, upload.Env, "TWINE_PASSWORD=pypi-secret")
	assert.NotContains(t, upload.String(), "pypi-secret", "token never appears on the command line")

	check, ok := exec.call(StepCheck)
	require.True(t, ok)
	assert.Empty(t, check.Env, "only upload receives the credential")
}

func TestRunner_BuildFailureStopsPipeline(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir(), fail: StepBuild, failOutput: "error: invalid pyproject.toml\n"}
	r := newTestRunner(t, exec)

	results, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrPipelineStep)

	var stepErr *PipelineStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepBuild, stepErr.Step)
	assert.Equal(t, 1, stepErr.ExitCode)
	assert.Contains(t, stepErr.Output, "invalid pyproject.toml")
	assert.Contains(t, err.Error(), "step=build")

	assert.Equal(t, []StepName{StepBootstrap, StepBuild}, exec.steps(), "check and upload never run")
	require.Len(t, results, 3)
	assert.Equal(t, output.StatusFailed, results[2].Status)
}

func TestRunner_DuplicateUploadIsStepError(t *testing.T) {
	exec := &fakeExecutor{
		dir:        t.TempDir(),
		fail:       StepUpload,
		failOutput: "HTTPError: 400 Bad Request\nFile already exists.\n",
	}
	r := newTestRunner(t, exec)

	_, err := r.Run(context.Background())
	var stepErr *PipelineStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepUpload, stepErr.Step)
	assert.Contains(t, stepErr.Output, "File already exists")
}

func TestRunner_CleanRemovesStaleArtifacts(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "dist", "persistence_kit-0.0.9.tar.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	exec := &fakeExecutor{dir: dir}
	r := newTestRunner(t, exec)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
	upload, _ := exec.call(StepUpload)
	assert.NotContains(t, upload.Args, filepath.Join("dist", "persistence_kit-0.0.9.tar.gz"))
}

func TestRunner_NoArtifactsFailsCheck(t *testing.T) {
	exec := &noBuildExecutor{}
	output.SetupLogging(output.LogConfig{Writer: &strings.Builder{}})
	r, err := NewRunner(PipelineConfig{
		WorkDir:  t.TempDir(),
		DistDir:  "dist",
		Endpoint: PreviewEndpoint,
	}, exec)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	var stepErr *PipelineStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepCheck, stepErr.Step)
	assert.ErrorIs(t, err, errNoArtifacts)
	assert.Equal(t, 2, exec.calls, "bootstrap and build ran, check never executed")
}

type noBuildExecutor struct{ calls int }

func (e *noBuildExecutor) Run(context.Context, Command) Result {
	e.calls++
	return Result{}
}

func TestRunner_SkipBootstrap(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir()}
	r := newTestRunner(t, exec, func(c *PipelineConfig) { c.SkipBootstrap = true })

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []StepName{StepBuild, StepCheck, StepUpload}, exec.steps())
	assert.Len(t, results, 4)
}

func TestRunner_CancelledBeforeStep(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir()}
	r := newTestRunner(t, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx)
	var stepErr *PipelineStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepClean, stepErr.Step)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.steps())
}

func TestRunner_Plan(t *testing.T) {
	exec := &fakeExecutor{dir: t.TempDir()}
	r := newTestRunner(t, exec)

	plan := r.Plan()
	require.Len(t, plan, 5)
	for _, s := range plan {
		assert.Equal(t, output.StatusPlanned, s.Status)
	}
	assert.Equal(t, "rm -rf dist", plan[0].Command)
	assert.Equal(t, "python -m build --outdir dist", plan[2].Command)
	assert.Contains(t, plan[4].Command, PreviewEndpoint)
	assert.NotContains(t, plan[4].Command, "pypi-secret")
	assert.Empty(t, exec.steps(), "planning runs nothing")
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		dist    string
		wantErr bool
	}{
		{"default", "dist", false},
		{"nested", "build/dist", false},
		{"empty", "", true},
		{"project root", ".", true},
		{"parent", "../dist", true},
		{"absolute", "/tmp/dist", true},
		{"escapes after clean", "dist/../..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PipelineConfig{DistDir: tt.dist, Endpoint: PreviewEndpoint}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTailLines(t *testing.T) {
	in := strings.Repeat("line\n", 30) + "last\n"
	out := tailLines(in, 3)
	assert.Equal(t, "line\nline\nlast", out)
	assert.Empty(t, tailLines("", 3))
}
