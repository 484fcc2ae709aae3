package warmup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "warmup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MapShape(t *testing.T) {
	path := writeFile(t, "alice: 30\nbob: 25\n")
	entries, err := Load(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLoad_ListShape_SkipsMalformed(t *testing.T) {
	path := writeFile(t, `
- key: alice
  value: 30
- key: bob
- value: 25
`)
	entries, err := Load(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "alice", entries[0].Key)
}

type fakeDest struct {
	existing map[string]bool
	set      map[string]any
}

func (f *fakeDest) Has(key string) bool { return f.existing[key] }
func (f *fakeDest) SetMany(entries map[string]any) error {
	for k, v := range entries {
		f.set[k] = v
	}
	return nil
}

func TestApply_SkipsExistingKeys(t *testing.T) {
	path := writeFile(t, "alice: 30\nbob: 25\n")
	dst := &fakeDest{existing: map[string]bool{"alice": true}, set: map[string]any{}}

	require.NoError(t, Apply(path, dst, discardLogger()))
	require.NotContains(t, dst.set, "alice")
	require.Contains(t, dst.set, "bob")
}
