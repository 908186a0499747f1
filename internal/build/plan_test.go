package build

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jsbuild/internal/testutils"
	"github.com/conneroisu/jsbuild/internal/tsconfig"
	"github.com/conneroisu/jsbuild/internal/workspace"
)

func loadWorkspace(t *testing.T, store *tsconfig.Store, root string) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Load(store, workspace.LoadOptions{Root: root})
	require.NoError(t, err)
	return ws
}

func TestPlanSinglePackage(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"name": "solo"}`)
	testutils.WriteFile(t, filepath.Join(root, "tsconfig.json"), `{"compilerOptions": {"rootDir": "lib", "outDir": "build"}}`)

	store := tsconfig.NewStore(nil)
	planned, err := Plan(store, loadWorkspace(t, store, root))
	require.NoError(t, err)
	require.Len(t, planned, 1)

	p := planned[0]
	require.NoError(t, p.Err)
	assert.Equal(t, "solo", p.Package.Name())
	assert.Equal(t, filepath.Join(root, "lib"), p.Options.SrcDir)
	assert.Equal(t, filepath.Join(root, "build"), p.Options.OutDir)
	assert.Equal(t, filepath.Join(root, "package.json"), p.Path)
}

func TestPlanWorkspace(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"workspaces": ["packages/*", "packages/["]}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "a", "package.json"), `{"name": "a"}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "b", "package.json"), `{"name": "b"}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "b", "tsconfig.json"), `{"compilerOptions": {"target": "es3"}}`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "c", "package.json"), `{not json`)

	store := tsconfig.NewStore(nil)
	planned, err := Plan(store, loadWorkspace(t, store, root))
	require.NoError(t, err)
	require.Len(t, planned, 4)

	byPath := map[string]PlannedPackage{}
	for _, p := range planned {
		byPath[p.Path] = p
	}

	a := byPath[filepath.Join(root, "packages", "a", "package.json")]
	require.NoError(t, a.Err)
	assert.Equal(t, filepath.Join(root, "packages", "a", "dist"), a.Options.OutDir)

	b := byPath[filepath.Join(root, "packages", "b", "package.json")]
	assert.ErrorIs(t, b.Err, ErrUnsupportedTarget)
	assert.NotNil(t, b.Package)
	assert.Nil(t, b.Options)

	c := byPath[filepath.Join(root, "packages", "c", "package.json")]
	assert.Error(t, c.Err)
	assert.Nil(t, c.Package)

	glob := byPath[filepath.Join(root, "package.json")]
	var ge *workspace.GlobError
	assert.ErrorAs(t, glob.Err, &ge)
}

func TestPlanWorkspaceRootTsconfigFailure(t *testing.T) {
	root := t.TempDir()
	rootTsconfig := filepath.Join(root, "tsconfig.json")
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"workspaces": ["packages/*"]}`)
	testutils.WriteFile(t, rootTsconfig, `{"compilerOptions": {`)
	testutils.WriteFile(t, filepath.Join(root, "packages", "a", "package.json"), `{"name": "a"}`)

	store := tsconfig.NewStore(nil)
	planned, err := Plan(store, loadWorkspace(t, store, root))
	require.NoError(t, err)
	require.Len(t, planned, 2)

	assert.Equal(t, rootTsconfig, planned[0].Path)
	assert.ErrorIs(t, planned[0].Err, tsconfig.ErrParse)
	assert.Nil(t, planned[0].Package)

	require.NoError(t, planned[1].Err)
	assert.Equal(t, "a", planned[1].Package.Name())
}

func TestPlanMalformedMembership(t *testing.T) {
	root := t.TempDir()
	testutils.WriteFile(t, filepath.Join(root, "package.json"), `{"name": "root"}`)
	testutils.WriteFile(t, filepath.Join(root, "pnpm-workspace.yaml"), "packages: [unclosed")

	store := tsconfig.NewStore(nil)
	_, err := Plan(store, loadWorkspace(t, store, root))
	assert.Error(t, err)
}
