package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	s := NewFileStore(path)

	record := Record{
		ID:            "acc-1",
		ServerURL:     "https://forge.example.com/org",
		DisplayName:   "Example Org",
		ExpiresAt:     time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		LastRefreshed: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Put(record))

	got, ok, err := s.Get("acc-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing", "accounts.json"))
	records, err := s.List()
	require.NoError(t, err)
	require.Empty(t, records)

	_, ok, err := s.Get("nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreDeleteIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	s := NewFileStore(path)
	require.NoError(t, s.Put(Record{ID: "acc-1", ServerURL: "https://forge.example.com"}))

	require.NoError(t, s.Delete("acc-1"))
	require.NoError(t, s.Delete("acc-1"))

	records, err := s.List()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "trailing slash", in: "https://Forge.Example.com/Org/", want: "https://forge.example.com/Org"},
		{name: "already canonical", in: "https://forge.example.com/org", want: "https://forge.example.com/org"},
		{name: "query stripped", in: "https://forge.example.com/org?x=1", want: "https://forge.example.com/org"},
		{name: "empty", in: "  ", wantErr: true},
		{name: "no scheme", in: "forge.example.com/org", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeServerURL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
