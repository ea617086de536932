package ledger

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/testutil"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := NewFileStore("/cfg/sheetreview/state.yaml", WithFs(fs))

	_, found, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, found, "missing file reads as absent")

	require.NoError(t, store.Save(t.Context(), 37))

	data, err := afero.ReadFile(fs, "/cfg/sheetreview/state.yaml")
	require.NoError(t, err)
	assert.Equal(t, "contributed: 37\n", string(data))

	n, found, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 37, n)

	entries, err := afero.ReadDir(fs, "/cfg/sheetreview")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreParseErrors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/state.yaml", []byte("contributed: lots\n"), 0o600))

	_, _, err := NewFileStore("/state.yaml", WithFs(fs)).Load(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	require.NoError(t, afero.WriteFile(fs, "/other.yaml", []byte("theme: dark\n"), 0o600))
	_, found, err := NewFileStore("/other.yaml", WithFs(fs)).Load(t.Context())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreReadOnlyFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	err := NewFileStore("/state.yaml", WithFs(fs)).Save(t.Context(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestLedgerOverFileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	first := newLedger(t, NewFileStore("/state.yaml", WithFs(fs)))
	for range 3 {
		_, err := first.RecordAttempt(t.Context())
		require.NoError(t, err)
	}

	second := newLedger(t, NewFileStore("/state.yaml", WithFs(fs)))
	assert.Equal(t, 3, second.Count())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	store, err := NewSQLiteStore(":memory:", testutil.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, found, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(t.Context(), 5))
	require.NoError(t, store.Save(t.Context(), 6))

	n, found, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 6, n)

	var rows int64
	require.NoError(t, store.db.Model(&kvEntry{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "the counter is a single upserted row")
}

func TestSQLiteStoreFileSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStore(path, testutil.QuietLogger())
	require.NoError(t, err)
	l := newLedger(t, store)
	_, err = l.RecordAttempt(t.Context())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := NewSQLiteStore(path, testutil.QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, 1, newLedger(t, reopened).Count())
}

func TestNewStoreFromSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		ledger  conf.LedgerSettings
		want    any
		wantErr bool
	}{
		{"memory", conf.LedgerSettings{Backend: conf.LedgerBackendMemory}, &MemoryStore{}, false},
		{"file", conf.LedgerSettings{Backend: conf.LedgerBackendFile, Path: filepath.Join(dir, "s.yaml")}, &FileStore{}, false},
		{"sqlite", conf.LedgerSettings{Backend: conf.LedgerBackendSQLite, Path: filepath.Join(dir, "s.db")}, &SQLiteStore{}, false},
		{"unknown", conf.LedgerSettings{Backend: "etcd", Path: filepath.Join(dir, "x")}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := NewStoreFromSettings(&conf.Settings{Ledger: tt.ledger}, testutil.QuietLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			assert.IsType(t, tt.want, store)
		})
	}
}
