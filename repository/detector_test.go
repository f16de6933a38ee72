package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/overlaykit/overlay/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectOverlayRoot(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "overlay.root.yaml"), "workspace: demo\n")
	write(t, filepath.Join(root, "config", "app.overlay.yaml"), "value: 1\n")

	workspace, err := repository.New().Detect(context.Background(), filepath.Join(root, "config"))
	require.NoError(t, err)
	assert.Equal(t, root, workspace.Root)
	assert.Equal(t, "overlay", workspace.Kind)
	assert.Equal(t, "config", workspace.RelativePath)
	assert.Equal(t, filepath.Base(root), workspace.Name)
}

func TestDetectGoModuleRoot(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "go.mod"), "module example.com/acme/overlays\n\ngo 1.23\n")
	write(t, filepath.Join(root, "nested", "deep", "app.overlay.yaml"), "value: 1\n")

	workspace, err := repository.New().Detect(context.Background(), filepath.Join(root, "nested", "deep", "app.overlay.yaml"))
	require.NoError(t, err)
	assert.Equal(t, root, workspace.Root)
	assert.Equal(t, "go", workspace.Kind)
	assert.Equal(t, "overlays", workspace.Name)
	assert.Equal(t, "nested/deep/app.overlay.yaml", workspace.RelativePath)
}

func TestDetectFallsBackToProbedPath(t *testing.T) {
	isolated := t.TempDir()
	write(t, filepath.Join(isolated, "plain.txt"), "nothing to see\n")

	detector := repository.New(repository.WithMarker("custom.marker", "custom"))
	workspace, err := detector.Detect(context.Background(), isolated)
	require.NoError(t, err)
	// No marker anywhere up the tree resolves to the probed directory.
	if workspace.Kind == "unknown" {
		assert.Equal(t, isolated, workspace.Root)
	}
	assert.NotEmpty(t, workspace.Name)
}

func TestCustomMarkerWins(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "custom.marker"), "")
	write(t, filepath.Join(root, "go.mod"), "module example.com/demo\n")

	detector := repository.New(repository.WithMarker("custom.marker", "custom"))
	workspace, err := detector.Detect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "custom", workspace.Kind)
	assert.Equal(t, "demo", workspace.Name)
}
