package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/forgelabs/forgecred/pkg/account"
	"github.com/forgelabs/forgecred/pkg/store"
)

// AccountRow pairs a stored record with its derived credential state.
type AccountRow struct {
	Record store.Record      `json:"record" yaml:"record"`
	State  account.AuthState `json:"state" yaml:"state"`
}

// WriteAccounts renders account rows in the requested format.
func WriteAccounts(w io.Writer, format Format, rows []AccountRow) error {
	if format == FormatTable {
		WriteAccountTable(w, rows)
		return nil
	}
	return WriteObject(w, format, rows)
}

func WriteAccountTable(w io.Writer, rows []AccountRow) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSERVER\tNAME\tSTATE\tEXPIRES\tLAST_REFRESHED")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Record.ID, row.Record.ServerURL, row.Record.DisplayName,
			string(row.State), formatTime(row.Record.ExpiresAt), formatTime(row.Record.LastRefreshed))
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
