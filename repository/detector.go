// Package repository locates the workspace root that an overlay tree
// belongs to, so callers can mount whole projects instead of hand-picked
// directories.
package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/viant/afs"
	"golang.org/x/mod/modfile"
)

// Workspace describes a detected overlay workspace.
type Workspace struct {
	Root         string // Absolute path to the workspace root directory
	Kind         string // Marker kind that identified the root (overlay, go, git)
	Name         string // Workspace name extracted from configuration when available
	RelativePath string // Path from the root to the probed location
}

// Detector identifies workspace roots by walking parent directories for
// marker files.
type Detector struct {
	markers []marker
	fs      afs.Service
}

type marker struct {
	file string
	kind string
}

// Option customizes a Detector.
type Option func(*Detector)

// WithService sets the storage service used to read configuration files.
func WithService(service afs.Service) Option {
	return func(d *Detector) {
		d.fs = service
	}
}

// WithMarker registers an additional root marker ahead of the defaults.
func WithMarker(file, kind string) Option {
	return func(d *Detector) {
		d.markers = append([]marker{{file: file, kind: kind}}, d.markers...)
	}
}

// New creates a detector with the default overlay markers.
func New(options ...Option) *Detector {
	detector := &Detector{
		markers: []marker{
			{file: "overlay.root.yaml", kind: "overlay"},
			{file: "go.mod", kind: "go"},
			{file: ".git", kind: "git"},
		},
	}
	for _, option := range options {
		option(detector)
	}
	if detector.fs == nil {
		detector.fs = afs.New()
	}
	return detector
}

// Detect identifies the workspace root for the given path.
func (d *Detector) Detect(ctx context.Context, path string) (*Workspace, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	startDir := absPath
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	root, kind := d.findRoot(startDir)
	workspace := &Workspace{
		Kind: "unknown",
		Root: absPath,
	}
	if root != "" {
		workspace.Root = root
		workspace.Kind = kind
	}

	relative, err := filepath.Rel(workspace.Root, absPath)
	if err != nil {
		relative = filepath.Base(absPath)
	}
	workspace.RelativePath = filepath.ToSlash(relative)
	workspace.Name = d.extractName(ctx, workspace)
	return workspace, nil
}

// findRoot searches up the directory tree for the first marker match.
func (d *Detector) findRoot(startDir string) (string, string) {
	dir := startDir
	for {
		for _, candidate := range d.markers {
			if _, err := os.Stat(filepath.Join(dir, candidate.file)); err == nil {
				return dir, candidate.kind
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ""
}

// extractName derives the workspace name: the go.mod module basename when
// one exists, the root directory name otherwise.
func (d *Detector) extractName(ctx context.Context, workspace *Workspace) string {
	modPath := filepath.Join(workspace.Root, "go.mod")
	if data, err := d.fs.DownloadWithURL(ctx, modPath); err == nil {
		if file, err := modfile.Parse("go.mod", data, nil); err == nil && file.Module != nil {
			return filepath.Base(file.Module.Mod.Path)
		}
	}
	return filepath.Base(workspace.Root)
}
