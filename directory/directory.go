// Package directory converts filesystem trees of overlay files into lazy
// scope definitions. Files named *.overlay.{yaml,yml,json,toml} contribute a
// scope per stem, subdirectories nest, and a file sharing a stem with a
// subdirectory union-mounts with it.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/runtime"
	"github.com/overlaykit/overlay/symbol"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

var overlayExtensions = []string{".overlay.yaml", ".overlay.yml", ".overlay.json", ".overlay.toml"}

// Option customizes a directory scope definition.
type Option func(*ScopeDef)

// WithService sets the storage service used for discovery and download.
func WithService(service afs.Service) Option {
	return func(s *ScopeDef) {
		s.fs = service
	}
}

// WithExtensions appends extra overlay extensions to the defaults.
func WithExtensions(extensions ...string) Option {
	return func(s *ScopeDef) {
		s.extensions = append(s.extensions, extensions...)
	}
}

// ScopeDef is a lazy scope definition backed by a directory. Children are
// discovered on first access; nothing is read until the symbol layer asks.
type ScopeDef struct {
	definition.Base
	fs         afs.Service
	ctx        context.Context
	baseURL    string
	extensions []string

	loaded    bool
	loadErr   error
	keys      []definition.Name
	files     map[definition.Name]string
	dirs      map[definition.Name]string
	parsed    map[definition.Name][]definition.Definition
}

// New creates a scope definition for the directory at URL.
func New(ctx context.Context, URL string, options ...Option) *ScopeDef {
	scope := &ScopeDef{
		Base:       definition.Base{Flags: definition.Flags{Public: true}},
		ctx:        ctx,
		baseURL:    URL,
		extensions: overlayExtensions,
		files:      map[definition.Name]string{},
		dirs:       map[definition.Name]string{},
		parsed:     map[definition.Name][]definition.Definition{},
	}
	for _, option := range options {
		option(scope)
	}
	if scope.fs == nil {
		scope.fs = afs.New()
	}
	return scope
}

// Bases returns no inheritances; directory scopes compose through their
// contents.
func (s *ScopeDef) Bases() []definition.RelativeReference { return nil }

// Keys lists overlay file stems followed by subdirectory names.
func (s *ScopeDef) Keys() ([]definition.Name, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.keys, nil
}

// Lookup returns the definitions contributed to name: the parsed overlay
// file, the nested directory scope, or both when they share a stem.
func (s *ScopeDef) Lookup(name definition.Name) ([]definition.Definition, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	if defs, ok := s.parsed[name]; ok {
		return defs, nil
	}
	var defs []definition.Definition
	if fileURL, ok := s.files[name]; ok {
		fileDefs, err := s.loadFile(fileURL)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	if dirURL, ok := s.dirs[name]; ok {
		defs = append(defs, New(s.ctx, dirURL, WithService(s.fs), withExactExtensions(s.extensions)))
	}
	s.parsed[name] = defs
	return defs, nil
}

func withExactExtensions(extensions []string) Option {
	return func(s *ScopeDef) {
		s.extensions = extensions
	}
}

// load discovers overlay files and subdirectories once. Extensions match
// lowercased; when a stem exists under several extensions the first in the
// configured extension order wins, independent of listing order. Hidden
// directories are skipped.
func (s *ScopeDef) load() error {
	if s.loaded {
		return s.loadErr
	}
	s.loaded = true

	objects, err := s.fs.List(s.ctx, s.baseURL)
	if err != nil {
		s.loadErr = fmt.Errorf("failed to list %s: %w", s.baseURL, err)
		return s.loadErr
	}
	type fileMatch struct {
		name string
		rank int
	}
	matches := map[definition.Name]fileMatch{}
	var dirNames []definition.Name
	for _, object := range objects {
		name := object.Name()
		if object.IsDir() {
			if name == "" || strings.HasPrefix(name, ".") || sameLocation(object.URL(), s.baseURL) {
				continue
			}
			if _, ok := s.dirs[name]; !ok {
				s.dirs[name] = url.Join(s.baseURL, name)
				dirNames = append(dirNames, name)
			}
			continue
		}
		lower := strings.ToLower(name)
		for rank, extension := range s.extensions {
			if !strings.HasSuffix(lower, extension) {
				continue
			}
			stem := name[:len(name)-len(extension)]
			current, ok := matches[stem]
			if !ok || rank < current.rank || (rank == current.rank && name < current.name) {
				matches[stem] = fileMatch{name: name, rank: rank}
			}
			break
		}
	}
	fileStems := make([]definition.Name, 0, len(matches))
	for stem, match := range matches {
		s.files[stem] = url.Join(s.baseURL, match.name)
		fileStems = append(fileStems, stem)
	}
	sort.Strings(fileStems)
	sort.Strings(dirNames)
	s.keys = append(s.keys, fileStems...)
	for _, name := range dirNames {
		if _, ok := s.files[name]; !ok {
			s.keys = append(s.keys, name)
		}
	}
	return nil
}

func (s *ScopeDef) loadFile(fileURL string) ([]definition.Definition, error) {
	data, err := s.fs.DownloadWithURL(s.ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileURL, err)
	}
	extension := matchedExtension(fileURL, s.extensions)
	value, err := decodeOverlay(data, extension)
	if err != nil {
		return nil, &InvalidOverlayFileError{URL: fileURL, Cause: err}
	}
	defs, err := fileDefinitions(value, fileURL)
	if err != nil {
		return nil, err
	}
	return defs, nil
}

func matchedExtension(fileURL string, extensions []string) string {
	lower := strings.ToLower(fileURL)
	for _, extension := range extensions {
		if strings.HasSuffix(lower, extension) {
			return extension
		}
	}
	return ""
}

func sameLocation(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

// Evaluate mounts the directory at URL as the root scope and evaluates it.
func Evaluate(ctx context.Context, URL string, options ...Option) (*runtime.Scope, error) {
	root := New(ctx, URL, options...)
	graph := symbol.NewGraph()
	return runtime.EvaluateSymbol(graph.Root(root))
}

// InvalidOverlayFileError reports a malformed overlay file.
type InvalidOverlayFileError struct {
	URL   string
	Cause error
}

func (e *InvalidOverlayFileError) Error() string {
	return fmt.Sprintf("invalid overlay file %s: %v", e.URL, e.Cause)
}

func (e *InvalidOverlayFileError) Unwrap() error { return e.Cause }
