package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/forgelabs/forgecred/pkg/account"
	"github.com/forgelabs/forgecred/pkg/store"
)

func TestWriteObjectJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteObject(buf, FormatJSON, map[string]int{"count": 42}))

	var result map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, 42, result["count"])
}

func TestWriteObjectYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteObject(buf, FormatYAML, struct {
		Name string `yaml:"name"`
	}{"test"}))

	var result map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "test", result["name"])
}

func TestWriteObjectUnknownFormat(t *testing.T) {
	err := WriteObject(&bytes.Buffer{}, Format("csv"), nil)
	require.ErrorContains(t, err, "unknown output format")
}

func TestWriteObjectTableNeedsTypedWriter(t *testing.T) {
	err := WriteObject(&bytes.Buffer{}, FormatTable, nil)
	require.ErrorContains(t, err, "no table writer")
}

func TestWriteAccountsDispatch(t *testing.T) {
	rows := []AccountRow{{
		Record: store.Record{ID: "acc-1", ServerURL: "https://forge.example.com/org"},
		State:  account.StateValid,
	}}

	table := &bytes.Buffer{}
	require.NoError(t, WriteAccounts(table, FormatTable, rows))
	assert.Contains(t, table.String(), "SERVER")
	assert.Contains(t, table.String(), "acc-1")

	asJSON := &bytes.Buffer{}
	require.NoError(t, WriteAccounts(asJSON, FormatJSON, rows))
	var decoded []AccountRow
	require.NoError(t, json.Unmarshal(asJSON.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "acc-1", decoded[0].Record.ID)
	assert.Equal(t, account.StateValid, decoded[0].State)

	require.ErrorContains(t, WriteAccounts(&bytes.Buffer{}, Format("csv"), rows), "unknown output format")
}

func TestWriteAccountTable(t *testing.T) {
	buf := &bytes.Buffer{}
	WriteAccountTable(buf, []AccountRow{
		{
			Record: store.Record{
				ID:          "acc-1",
				ServerURL:   "https://forge.example.com/org",
				DisplayName: "Example",
				ExpiresAt:   time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC),
			},
			State: account.StateValid,
		},
		{
			Record: store.Record{ID: "acc-2", ServerURL: "https://other.example.com"},
			State:  account.StateUnknown,
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[0], "STATE")
	assert.Contains(t, lines[1], "acc-1")
	assert.Contains(t, lines[1], "valid")
	assert.Contains(t, lines[1], "2026-08-25T13:00:00Z")
	assert.Contains(t, lines[2], "unknown")
	// Zero times render as a dash.
	assert.Contains(t, lines[2], "-")
}
