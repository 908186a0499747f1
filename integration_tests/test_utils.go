//go:build integration
// +build integration

package integration_tests

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsbuild/internal/build"
	"github.com/conneroisu/jsbuild/internal/diagnostics"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

// syncBuffer collects rendered diagnostics from builds that run on the
// watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// buildProject loads the workspace at root with a fresh tsconfig cache and
// builds it with the esbuild compiler.
func buildProject(ctx context.Context, t *testing.T, root string, out *syncBuffer) (build.Summary, error) {
	t.Helper()
	store := tsconfig.NewStore(nil)
	ws, err := workspace.Load(store, workspace.LoadOptions{Root: root})
	if err != nil {
		return build.Summary{}, err
	}
	return build.Run(ctx, ws, build.RunOptions{
		Store:    store,
		Renderer: diagnostics.JSONRenderer{},
		Output:   out,
		Threads:  2,
	})
}

func mustBuild(t *testing.T, root string, out *syncBuffer) build.Summary {
	t.Helper()
	summary, err := buildProject(context.Background(), t, root, out)
	require.NoError(t, err)
	return summary
}
