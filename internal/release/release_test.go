package release

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
	"github.com/persistence-kit/pkrelease/internal/testutil"
)

func withToken() LookupFunc {
	return envMap(map[string]string{DefaultTokenEnv: "pypi-secret"})
}

func quietLogs(t *testing.T) {
	t.Helper()
	output.SetupLogging(output.LogConfig{Writer: &strings.Builder{}})
}

func TestRun_Success(t *testing.T) {
	quietLogs(t)
	dir, manifest := testutil.Project(t)

	var seenDuringBuild string
	exec := &fakeExecutor{dir: dir, during: StepBuild, duringFunc: func(context.Context) {
		seenDuringBuild = testutil.ReadFile(t, manifest)
	}}

	summary, err := Run(context.Background(), Options{
		Args:     []string{"0.1.1.dev1"},
		WorkDir:  dir,
		Lookup:   withToken(),
		Executor: exec,
	})
	require.NoError(t, err)

	assert.Contains(t, seenDuringBuild, `version = "0.1.1.dev1"`, "build sees the patched manifest")
	assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest), "manifest restored after success")

	assert.True(t, summary.Succeeded)
	assert.True(t, summary.Restored)
	assert.Equal(t, IndexPreview, summary.Index)
	assert.Equal(t, PreviewEndpoint, summary.Endpoint)
	assert.Equal(t, "0.1.0", summary.PreviousVersion)
	assert.Len(t, summary.Artifacts, 2)
	assert.Len(t, summary.Digests, 2)
	assert.Len(t, summary.Steps, 5)
	assert.Contains(t, summary.ManifestDiff, "0.1.1.dev1")
}

func TestRun_RestoresAfterEveryStepFailure(t *testing.T) {
	for _, step := range []StepName{StepBootstrap, StepBuild, StepCheck, StepUpload} {
		t.Run(string(step), func(t *testing.T) {
			quietLogs(t)
			dir, manifest := testutil.Project(t)
			exec := &fakeExecutor{dir: dir, fail: step}

			summary, err := Run(context.Background(), Options{
				Args:     []string{"0.1.1", "production"},
				WorkDir:  dir,
				Lookup:   withToken(),
				Executor: exec,
			})

			var stepErr *PipelineStepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, step, stepErr.Step)
			assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest))
			assert.True(t, summary.Restored)
			assert.False(t, summary.Succeeded)
			assert.Equal(t, ProductionEndpoint, summary.Endpoint)
		})
	}
}

func TestRun_BuildFailureNeverChecksOrUploads(t *testing.T) {
	quietLogs(t)
	dir, _ := testutil.Project(t)
	exec := &fakeExecutor{dir: dir, fail: StepBuild}

	_, err := Run(context.Background(), Options{
		Args:     []string{"0.1.1"},
		WorkDir:  dir,
		Lookup:   withToken(),
		Executor: exec,
	})
	var stepErr *PipelineStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepBuild, stepErr.Step)

	_, checked := exec.call(StepCheck)
	_, uploaded := exec.call(StepUpload)
	assert.False(t, checked)
	assert.False(t, uploaded)
}

func TestRun_RestoresWhenInterrupted(t *testing.T) {
	quietLogs(t)
	dir, manifest := testutil.Project(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &fakeExecutor{dir: dir, during: StepBuild, duringFunc: func(context.Context) { cancel() }}

	summary, err := Run(ctx, Options{
		Args:     []string{"0.1.1"},
		WorkDir:  dir,
		Lookup:   withToken(),
		Executor: exec,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest))
	assert.True(t, summary.Restored)

	_, uploaded := exec.call(StepUpload)
	assert.False(t, uploaded)
}

func TestRun_RejectionsNeverTouchManifest(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		lookup    LookupFunc
		wantErrIs error
	}{
		{"no arguments", nil, withToken(), oerrors.ErrUsage},
		{"three arguments", []string{"1.0", "preview", "x"}, withToken(), oerrors.ErrUsage},
		{"bad index", []string{"1.0", "staging"}, withToken(), oerrors.ErrInvalidIndex},
		{"no credential", []string{"1.0"}, envMap(nil), oerrors.ErrMissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietLogs(t)
			dir := t.TempDir()
			// The manifest does not exist: reaching the patcher would
			// surface a ManifestReadError instead of the expected error.
			exec := &fakeExecutor{dir: dir}
			summary, err := Run(context.Background(), Options{
				Args:     tt.args,
				WorkDir:  dir,
				Lookup:   tt.lookup,
				Executor: exec,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErrIs)
			assert.NotErrorIs(t, err, oerrors.ErrManifest)
			assert.Nil(t, summary)
			assert.Empty(t, exec.steps())
		})
	}
}

func TestRun_ManifestErrors(t *testing.T) {
	quietLogs(t)

	t.Run("missing manifest", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Run(context.Background(), Options{
			Args:     []string{"1.0"},
			WorkDir:  dir,
			Lookup:   withToken(),
			Executor: &fakeExecutor{dir: dir},
		})
		var readErr *ManifestReadError
		assert.ErrorAs(t, err, &readErr)
	})

	t.Run("ambiguous manifest", func(t *testing.T) {
		dir := t.TempDir()
		content := "[project]\nname = \"x\"\ndynamic = [\"version\"]\n"
		manifest := testutil.WriteFile(t, dir, "pyproject.toml", content)
		exec := &fakeExecutor{dir: dir}

		_, err := Run(context.Background(), Options{
			Args:     []string{"1.0"},
			WorkDir:  dir,
			Lookup:   withToken(),
			Executor: exec,
		})
		assert.ErrorIs(t, err, oerrors.ErrManifest)
		assert.Equal(t, content, testutil.ReadFile(t, manifest))
		assert.Empty(t, exec.steps(), "nothing runs when the patch fails")
	})
}

func TestRun_DryRun(t *testing.T) {
	quietLogs(t)
	dir, manifest := testutil.Project(t)
	exec := &fakeExecutor{dir: dir}

	summary, err := Run(context.Background(), Options{
		Args:          []string{"0.2.0", "production"},
		WorkDir:       dir,
		Lookup:        withToken(),
		Executor:      exec,
		DryRun:        true,
		SkipBootstrap: true,
	})
	require.NoError(t, err)

	assert.Empty(t, exec.steps())
	assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest))
	assert.True(t, summary.DryRun)
	assert.False(t, summary.Succeeded)
	assert.Contains(t, summary.ManifestDiff, "0.2.0")
	require.Len(t, summary.Steps, 4)
	assert.Equal(t, StepUpload, summary.Steps[3].Step)
	assert.Contains(t, summary.Steps[3].Command, ProductionEndpoint)
}

func TestRun_CustomPaths(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	manifest := testutil.WriteFile(t, dir, filepath.Join("pkg", "pyproject.toml"), testutil.PyProject)
	exec := &fakeExecutor{dir: dir}

	summary, err := Run(context.Background(), Options{
		Args:     []string{"0.3.0"},
		WorkDir:  dir,
		Manifest: filepath.Join("pkg", "pyproject.toml"),
		DistDir:  filepath.Join("out", "dist"),
		TokenEnv: "TEST_PYPI_TOKEN",
		Lookup:   envMap(map[string]string{"TEST_PYPI_TOKEN": "tok"}),
		Executor: exec,
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest))
	for _, a := range summary.Artifacts {
		assert.True(t, strings.HasPrefix(a, filepath.Join("out", "dist")), a)
	}
}

func TestRun_InvalidDistDirIsConfigError(t *testing.T) {
	quietLogs(t)
	dir, manifest := testutil.Project(t)

	_, err := Run(context.Background(), Options{
		Args:     []string{"0.3.0"},
		WorkDir:  dir,
		DistDir:  "..",
		Lookup:   withToken(),
		Executor: &fakeExecutor{dir: dir},
	})
	assert.ErrorIs(t, err, oerrors.ErrConfig)
	assert.Equal(t, testutil.PyProject, testutil.ReadFile(t, manifest))
}
