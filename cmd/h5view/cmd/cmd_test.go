package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/cache"
	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/sample"
	"github.com/robert-malhotra/h5view/session"
	"github.com/robert-malhotra/h5view/tree"
	"github.com/robert-malhotra/h5view/value"
)

func sampleFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.h5")
	require.NoError(t, sample.Write(path))
	return path
}

// run executes h5view with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTreeCommand(t *testing.T) {
	path := sampleFile(t)

	out, err := run(t, "tree", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Group: /Group1")
	assert.Contains(t, out, "Dataset: /Group2/Dataset2 [3, 3] (float64)")

	out, err = run(t, "tree", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "path: /Group1/Dataset1")

	cborPath := filepath.Join(t.TempDir(), "tree.cbor")
	_, err = run(t, "tree", path, "--format", "cbor", "-o", cborPath)
	require.NoError(t, err)
	data, err := os.ReadFile(cborPath)
	require.NoError(t, err)
	doc, err := tree.DecodeCBOR(data)
	require.NoError(t, err)
	assert.Equal(t, "/", doc.Path)
	assert.Len(t, doc.Children, 2)

	_, err = run(t, "tree", path, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestTreeCommandBadFile(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.h5")
	require.NoError(t, os.WriteFile(bad, []byte("not hdf5"), 0600))
	_, err := run(t, "tree", bad)
	assert.ErrorIs(t, err, tree.ErrCannotOpenFile)
}

func TestAttrsCommand(t *testing.T) {
	path := sampleFile(t)

	out, err := run(t, "attrs", path)
	require.NoError(t, err)
	assert.Equal(t, "Description (string) = sample\n", out)

	out, err = run(t, "attrs", path, "/@Description")
	require.NoError(t, err)
	assert.Equal(t, "sample\n", out)

	out, err = run(t, "attrs", path, "/Group1")
	require.NoError(t, err)
	assert.Equal(t, "/Group1 has no attributes\n", out)

	_, err = run(t, "attrs", path, "/@missing")
	assert.ErrorIs(t, err, tree.ErrNotFound)
}

func TestRowsCommand(t *testing.T) {
	path := sampleFile(t)

	out, err := run(t, "rows", path, "/Group2/Dataset2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"#", "Dataset2[0]", "Dataset2[1]", "Dataset2[2]"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "1.1", "1.2", "1.3"}, strings.Fields(lines[1]))
	assert.Equal(t, "(3 of 3 rows)", lines[4])

	out, err = run(t, "rows", path, "/Group1/Dataset1", "--max", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 of 10 rows)")

	_, err = run(t, "rows", path, "/nope")
	assert.ErrorIs(t, err, tree.ErrNotFound)
}

func TestRowsCommandWithStore(t *testing.T) {
	path := sampleFile(t)
	dir := filepath.Join(t.TempDir(), "rows")

	first, err := run(t, "--store-dir", dir, "rows", path, "/Group1/Dataset1")
	require.NoError(t, err)
	second, err := run(t, "--store-dir", dir, "rows", path, "/Group1/Dataset1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.DirExists(t, dir)
}

func TestCompareCommand(t *testing.T) {
	left := sampleFile(t)

	out, err := run(t, "compare", left, "/Group1/Dataset1", left, "/Group1/Dataset1")
	require.NoError(t, err)
	assert.Equal(t, "tables are equal\n", out)

	right := filepath.Join(t.TempDir(), "right.h5")
	f, err := hdf5.Create(right)
	require.NoError(t, err)
	g, err := f.Root().CreateGroup("Group1")
	require.NoError(t, err)
	_, err = g.CreateDataset("Dataset1", value.Vector([]int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 99}))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = run(t, "compare", left, "/Group1/Dataset1", right, "/Group1/Dataset1", "--chunk-size", "3", "--parallel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows differ")
	assert.Contains(t, out, "row 9:")
	assert.Contains(t, out, "Dataset1: 10 != 99")

	out, err = run(t, "compare", left, "/Group1/Dataset1", left, "/Group2/Dataset2")
	require.NoError(t, err)
	assert.Contains(t, out, "schemas differ")
}

func TestSampleCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.h5")
	out, err := run(t, "sample", path, "--series", "50")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	out, err = run(t, "rows", path, "/Series", "--max", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 of 50 rows)")
}

func TestDiagnoseCommand(t *testing.T) {
	out, err := run(t, "diagnose", sampleFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "superblock version: 3")
	assert.Contains(t, out, "Dataset /Group1/Dataset1 at 0x")
	assert.Contains(t, out, "message: layout")
	assert.Contains(t, out, "groups: 3, datasets: 2, other: 0, errors: 0")
}

func TestConfigFlags(t *testing.T) {
	path := sampleFile(t)

	_, err := run(t, "--log-level", "loud", "tree", path)
	assert.ErrorContains(t, err, "invalid configuration")

	cfgPath := filepath.Join(t.TempDir(), "h5view.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  limit: -1\n"), 0600))
	_, err = run(t, "--config", cfgPath, "tree", path)
	assert.ErrorContains(t, err, "cache.limit")

	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: debug\n"), 0600))
	_, err = run(t, "--config", cfgPath, "tree", path)
	assert.NoError(t, err)
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := session.NewManager(
		session.WithCacheLimit(2),
		session.WithMetrics(cache.NewMetrics(reg, "h5view")),
	)
	s, err := m.Open(tree.FileSource(sampleFile(t)))
	require.NoError(t, err)

	var out bytes.Buffer
	return newShell(s, reg, &out), &out
}

func TestShellNavigation(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()

	sh.exec(ctx, "ls")
	assert.Equal(t, "Group1/\nGroup2/\n", out.String())

	out.Reset()
	sh.exec(ctx, "cd Group2")
	sh.exec(ctx, "pwd")
	sh.exec(ctx, "ls")
	assert.Equal(t, "/Group2\nDataset2  float64 [3 3]\n", out.String())

	out.Reset()
	sh.exec(ctx, "cd Dataset2")
	assert.Contains(t, out.String(), "is not a group")

	out.Reset()
	sh.exec(ctx, "cd ..")
	sh.exec(ctx, "pwd")
	sh.exec(ctx, "attrs @Description")
	assert.Equal(t, "/\nsample\n", out.String())

	out.Reset()
	sh.exec(ctx, "bogus")
	assert.Contains(t, out.String(), "Unknown command: bogus")

	assert.False(t, sh.exec(ctx, "   "))
	assert.True(t, sh.exec(ctx, "exit"))
}

func TestShellRowsAndCache(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()

	sh.exec(ctx, "cd /Group1")
	sh.exec(ctx, "rows Dataset1 3")
	assert.Contains(t, out.String(), "(3 of 10 rows)")

	sh.exec(ctx, "rows Dataset1")
	sh.exec(ctx, "rows /Group2/Dataset2")
	sh.exec(ctx, "rows /Group2")

	out.Reset()
	sh.exec(ctx, "cache")
	got := out.String()
	assert.Contains(t, got, "entries: 2/2")
	assert.Contains(t, got, "  /Group2/Dataset2\n  /Group2\n")
	assert.Contains(t, got, "h5view_row_cache_hits_total 1\n")
	assert.Contains(t, got, "h5view_row_cache_misses_total 3\n")
	assert.Contains(t, got, "h5view_row_cache_evictions_total 1\n")

	out.Reset()
	sh.exec(ctx, "rows Dataset1 x")
	assert.Contains(t, out.String(), "bad row limit")
}

func TestShellResolve(t *testing.T) {
	sh, _ := newTestShell(t)
	sh.cwd = "/Group1"

	assert.Equal(t, "/Group1", sh.resolve(""))
	assert.Equal(t, "/Group1/Dataset1", sh.resolve("Dataset1"))
	assert.Equal(t, "/Group2", sh.resolve("../Group2"))
	assert.Equal(t, "/Group1@units", sh.resolve("@units"))
	assert.Equal(t, "/Group1/Dataset1@units", sh.resolve("Dataset1@units"))
	assert.Equal(t, "/abs", sh.resolve("/abs"))
}
