package release

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/persistence-kit/pkrelease/internal/output"
)

// DefaultManifest is the manifest path relative to the project root.
const DefaultManifest = "pyproject.toml"

// Snapshot is the full original content of the manifest.
type Snapshot struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// Patcher owns the manifest for the duration of a run: it captures a
// snapshot, writes the patched version and puts the snapshot back.
type Patcher struct {
	snap    Snapshot
	patched []byte

	mu       sync.Mutex
	closed   bool // no Apply after the first Restore
	restored bool
}

// OpenManifest reads the manifest into a snapshot. Symlinks are resolved so
// writes land on the real file.
func OpenManifest(path string) (*Patcher, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, &ManifestReadError{Path: path, Err: err}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, &ManifestReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ManifestReadError{Path: path, Err: errors.New("is a directory")}
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &ManifestReadError{Path: path, Err: err}
	}

	return &Patcher{
		snap: Snapshot{Path: resolved, Content: content, Mode: info.Mode().Perm()},
	}, nil
}

// Snapshot returns a copy of the captured original.
func (p *Patcher) Snapshot() Snapshot {
	s := p.snap
	s.Content = bytes.Clone(p.snap.Content)
	return s
}

// Patched returns the content written by the last Apply, or nil.
func (p *Patcher) Patched() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.patched)
}

// Plan computes the patched content without writing it.
func (p *Patcher) Plan(version string) ([]byte, error) {
	return PatchVersion(p.snap.Content, version)
}

// Apply writes the manifest with its version set to version.
func (p *Patcher) Apply(version string) error {
	patched, err := p.Plan(version)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return &ManifestWriteError{Path: p.snap.Path, Op: "patch", Err: errors.New("manifest already restored")}
	}
	if err := writeFileAtomic(p.snap.Path, patched, p.snap.Mode); err != nil {
		return &ManifestWriteError{Path: p.snap.Path, Op: "patch", Err: err}
	}
	p.patched = patched
	output.Debug("manifest patched", "path", p.snap.Path, "version", version)
	return nil
}

// Restore overwrites the manifest with the snapshot. Calls after the first
// successful one are no-ops; a failed attempt may be retried. Once Restore
// has been called, Apply refuses to write.
func (p *Patcher) Restore() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.restored {
		return nil
	}
	if p.patched == nil {
		// Apply never replaced the file, so the snapshot is still on disk.
		p.restored = true
		return nil
	}
	if err := writeFileAtomic(p.snap.Path, p.snap.Content, p.snap.Mode); err != nil {
		return &ManifestWriteError{Path: p.snap.Path, Op: "restore", Err: err}
	}
	p.restored = true
	output.Debug("manifest restored", "path", p.snap.Path)
	return nil
}

// Restored reports whether the snapshot has been written back.
func (p *Patcher) Restored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restored
}

// Guard restores the manifest as soon as ctx is cancelled, without waiting
// for a blocked child process to exit. The returned func stops the guard.
// Callers still defer Restore for every other exit path.
func (p *Patcher) Guard(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-ctx.Done():
			if err := p.Restore(); err != nil {
				output.Error("restoring manifest after interrupt", "error", err)
			}
		case <-done:
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// Diff renders a structural diff between the snapshot and the patched content.
func (p *Patcher) Diff(patched []byte, useColor bool) (string, error) {
	return output.DiffTOML(filepath.Base(p.snap.Path), p.snap.Content, patched, useColor)
}

var (
	tableHeaderRegex = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(#.*)?$`)
	arrayHeaderRegex = regexp.MustCompile(`^\s*\[\[.*\]\]\s*(#.*)?$`)
	versionLineRegex = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"'\\]*)(["'])(\s*(#.*)?)$`)
)

// versionTables are searched in order for the version key.
var versionTables = [][]string{
	{"project"},
	{"tool", "poetry"},
}

// PatchVersion sets the version key of the manifest to version. The manifest
// is parsed to find the table that owns the version; exactly one
// `version = "..."` line must exist in that table. Every other byte is kept.
func PatchVersion(content []byte, version string) ([]byte, error) {
	if strings.ContainsAny(version, "\"'\\\n\r") {
		return nil, &ManifestPatchError{Reason: fmt.Sprintf("version %q cannot be written as a TOML string", version)}
	}

	table, err := versionTable(content)
	if err != nil {
		return nil, err
	}

	lines := bytes.SplitAfter(content, []byte("\n"))
	current := ""
	matches := 0
	var out bytes.Buffer
	out.Grow(len(content) + len(version))

	for _, raw := range lines {
		body, eol := splitEOL(raw)

		if arrayHeaderRegex.Match(body) {
			current = "[[array]]"
		} else if m := tableHeaderRegex.FindSubmatch(body); m != nil {
			current = normalizeTableName(string(m[1]))
		} else if current == table {
			if m := versionLineRegex.FindSubmatch(body); m != nil && string(m[2]) == string(m[4]) {
				matches++
				out.Write(m[1])
				out.Write(m[2])
				out.WriteString(version)
				out.Write(m[4])
				out.Write(m[5])
				out.Write(eol)
				continue
			}
		}
		out.Write(raw)
	}

	if matches != 1 {
		return nil, &ManifestPatchError{Table: table, Matches: matches}
	}

	patched := out.Bytes()
	got, _, err := decodeVersion(patched)
	if err != nil {
		return nil, &ManifestPatchError{Reason: "patched manifest is not valid TOML: " + err.Error()}
	}
	if got != version {
		return nil, &ManifestPatchError{Reason: fmt.Sprintf("patched manifest reports version %q, want %q", got, version)}
	}
	return patched, nil
}

// ReadVersion returns the version currently declared by the manifest.
func ReadVersion(content []byte) (string, error) {
	v, _, err := decodeVersion(content)
	if err != nil {
		return "", &ManifestPatchError{Reason: "reading manifest version: " + err.Error()}
	}
	return v, nil
}

func versionTable(content []byte) (string, error) {
	_, table, err := decodeVersion(content)
	if err != nil {
		return "", &ManifestPatchError{Reason: "reading manifest version: " + err.Error()}
	}
	if table == "" {
		return "", &ManifestPatchError{Reason: "no static version key in [project] or [tool.poetry]"}
	}
	return table, nil
}

// decodeVersion parses content and returns the version string and the
// table it was found in. An empty table means no version key exists.
func decodeVersion(content []byte) (string, string, error) {
	var doc map[string]interface{}
	md, err := toml.Decode(string(content), &doc)
	if err != nil {
		return "", "", err
	}

	for _, path := range versionTables {
		key := append(append([]string{}, path...), "version")
		if !md.IsDefined(key...) {
			continue
		}
		v, ok := lookup(doc, key).(string)
		if !ok {
			return "", "", fmt.Errorf("%s is not a string", strings.Join(key, "."))
		}
		return v, strings.Join(path, "."), nil
	}
	return "", "", nil
}

func lookup(doc map[string]interface{}, key []string) interface{} {
	var cur interface{} = doc
	for _, k := range key {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func normalizeTableName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"'`)
	}
	return strings.Join(parts, ".")
}

func splitEOL(line []byte) (body, eol []byte) {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[:len(line)-2], line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		return line[:len(line)-1], line[len(line)-1:]
	default:
		return line, nil
	}
}

// writeFileAtomic replaces path with data via a temp file in the same directory.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".pkrelease-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
