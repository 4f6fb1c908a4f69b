// Package release runs one release attempt of a Python package: it validates
// the invocation, gates on the upload credential, patches the manifest
// version, runs the build pipeline and always puts the manifest back.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
)

// Options configure a release run.
type Options struct {
	// Args are the positional arguments: <version> [index].
	Args []string

	// WorkDir is the project root. Empty means the current directory.
	WorkDir string

	// Manifest is the manifest path, relative to WorkDir unless absolute.
	Manifest string

	// DistDir is the build output directory relative to WorkDir.
	DistDir string

	// Python is the interpreter that runs pip, build and twine.
	Python string

	// BootstrapPackages overrides the packages installed by the bootstrap step.
	BootstrapPackages []string

	// TokenEnv names the variable holding the upload token.
	TokenEnv string

	// Endpoints overrides the upload URLs.
	Endpoints Endpoints

	// SkipBootstrap omits the bootstrap step.
	SkipBootstrap bool

	// DryRun validates, previews the manifest change and lists the steps
	// without writing or running anything.
	DryRun bool

	// Lookup reads the environment. Nil means os.LookupEnv.
	Lookup LookupFunc

	// Executor runs external commands. Nil means a ProcessExecutor in WorkDir.
	Executor Executor
}

// Summary describes the outcome of a run.
type Summary struct {
	Version         string            `json:"version"`
	Index           TargetIndex       `json:"index"`
	Endpoint        string            `json:"endpoint"`
	Manifest        string            `json:"manifest"`
	PreviousVersion string            `json:"previousVersion,omitempty"`
	ManifestDiff    string            `json:"manifestDiff,omitempty"`
	Artifacts       []string          `json:"artifacts,omitempty"`
	Digests         map[string]string `json:"digests,omitempty"`
	Steps           []StepResult      `json:"steps"`
	DryRun          bool              `json:"dryRun,omitempty"`
	Restored        bool              `json:"restored"`
	Succeeded       bool              `json:"succeeded"`
}

// Run performs one release attempt. Validation and credential failures
// return before the manifest is read. Once the manifest has been captured,
// it is restored on every return path; a restore failure is joined to the
// primary error and never replaces it. The returned Summary is non-nil
// whenever arguments were valid.
func Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	args, err := ParseArgs(opts.Args)
	if err != nil {
		return nil, err
	}
	if !IsCanonicalVersion(args.Version) {
		output.Warn("version is not canonical PEP 440; the index may reject or normalize it", "version", args.Version)
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cred, err := CheckCredential(args.Index, lookup, opts.TokenEnv)
	if err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	manifestPath := opts.Manifest
	if manifestPath == "" {
		manifestPath = DefaultManifest
	}
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(workDir, manifestPath)
	}
	distDir := opts.DistDir
	if distDir == "" {
		distDir = DefaultDistDir
	}

	endpoint := args.Index.Endpoint(opts.Endpoints)
	summary = &Summary{
		Version:  args.Version,
		Index:    args.Index,
		Endpoint: endpoint,
		Manifest: manifestPath,
		DryRun:   opts.DryRun,
		Steps:    []StepResult{},
		// Nothing to restore until the manifest has been captured.
		Restored: true,
	}

	exec := opts.Executor
	if exec == nil {
		exec = NewProcessExecutor(workDir)
	}
	runner, err := NewRunner(PipelineConfig{
		WorkDir:           workDir,
		DistDir:           distDir,
		Python:            opts.Python,
		BootstrapPackages: opts.BootstrapPackages,
		SkipBootstrap:     opts.SkipBootstrap,
		Endpoint:          endpoint,
		Credential:        cred,
	}, exec)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", oerrors.ErrConfig, err)
	}

	output.Debug("release resolved",
		"version", args.Version,
		"index", args.Index,
		"endpoint", endpoint,
		"manifest", manifestPath,
		"credential", cred,
	)

	patcher, err := OpenManifest(manifestPath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if rerr := patcher.Restore(); rerr != nil {
			output.Error("manifest was not restored", "path", manifestPath, "error", rerr)
			err = errors.Join(err, rerr)
		}
		summary.Restored = patcher.Restored()
		summary.Succeeded = err == nil && !summary.DryRun
	}()
	stop := patcher.Guard(ctx)
	defer stop()

	snap := patcher.Snapshot()
	if prev, verr := ReadVersion(snap.Content); verr == nil {
		summary.PreviousVersion = prev
	}

	if opts.DryRun {
		patched, err := patcher.Plan(args.Version)
		if err != nil {
			return summary, err
		}
		summary.ManifestDiff = diffOrEmpty(patcher, patched)
		summary.Steps = runner.Plan()
		return summary, nil
	}

	if err := patcher.Apply(args.Version); err != nil {
		return summary, err
	}
	summary.ManifestDiff = diffOrEmpty(patcher, patcher.Patched())

	results, err := runner.Run(ctx)
	summary.Steps = results
	summary.Artifacts = runner.Artifacts()
	if len(summary.Artifacts) > 0 {
		digests, derr := DigestArtifacts(workDir, summary.Artifacts)
		if derr != nil {
			output.Debug("artifact digests unavailable", "error", derr)
		}
		summary.Digests = digests
	}
	return summary, err
}

// diffOrEmpty renders the manifest change. The diff is informational, so a
// rendering failure is logged and never fails the run.
func diffOrEmpty(p *Patcher, patched []byte) string {
	diff, err := p.Diff(patched, false)
	if err != nil {
		output.Debug("manifest diff unavailable", "error", err)
		return ""
	}
	return diff
}
