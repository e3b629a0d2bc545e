package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"expenses/internal/config"
	"expenses/internal/core"
	ports "expenses/internal/sheets"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type fakeSheets struct {
	mu    sync.Mutex
	calls []recordedCall
	fail  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body})
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := newClient(context.Background(), Options{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:        " abc ",
		GoogleApplicationCredsFile: "/etc/sa.json",
	}

	o := OptionsFromConfig(cfg)
	assert.Equal(t, "abc", o.SpreadsheetID)
	assert.Equal(t, "/etc/sa.json", o.CredentialsFile)

	o.defaults()
	assert.Equal(t, "Journal", o.JournalSheet)
	assert.Equal(t, "Summary", o.SummarySheet)

	cfg.GoogleServiceAccountFile = "/run/secrets/sa.json"
	assert.Equal(t, "/run/secrets/sa.json", OptionsFromConfig(cfg).CredentialsFile)
}

func TestClient_AppendJournal(t *testing.T) {
	c, fake := newTestClient(t)
	rows := []ports.JournalRow{
		{Timestamp: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Event: "transaction.created", Amount: "1.20"},
		{Timestamp: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), Event: "transaction.deleted"},
	}

	require.NoError(t, c.AppendJournal(context.Background(), rows))
	require.Len(t, fake.calls, 1)

	call := fake.calls[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.True(t, strings.HasSuffix(call.path, "/v4/spreadsheets/sheet-1/values/Journal!A:H:append"), call.path)
	assert.Contains(t, call.query, "insertDataOption=INSERT_ROWS")
	values, ok := call.body["values"].([]any)
	require.True(t, ok)
	assert.Len(t, values, 2)
}

func TestClient_AppendJournalEmptyIsNoop(t *testing.T) {
	c, fake := newTestClient(t)
	require.NoError(t, c.AppendJournal(context.Background(), nil))
	assert.Empty(t, fake.calls)
}

func TestClient_WriteSummary(t *testing.T) {
	c, fake := newTestClient(t)
	summary := core.Summary{
		Items:  []core.SummaryGroup{{CategoryName: "Food", Count: 1, Total: decimal.RequireFromString("50000")}},
		Totals: core.SummaryTotals{GrandTotal: decimal.RequireFromString("50000"), TxCount: 1},
	}

	require.NoError(t, c.WriteSummary(context.Background(), summary, time.Now()))
	require.Len(t, fake.calls, 2)
	assert.True(t, strings.HasSuffix(fake.calls[0].path, "/values/Summary!A:C:clear"), fake.calls[0].path)
	assert.Equal(t, http.MethodPut, fake.calls[1].method)
	assert.True(t, strings.HasSuffix(fake.calls[1].path, "/values/Summary!A1:C4"), fake.calls[1].path)
}

func TestClient_ErrorsAreWrapped(t *testing.T) {
	c, fake := newTestClient(t)
	fake.fail = true

	err := c.AppendJournal(context.Background(), []ports.JournalRow{{Event: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append to sheet Journal")

	err = c.WriteSummary(context.Background(), core.Summary{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear sheet Summary")
}

func TestClient_NilService(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.AppendJournal(context.Background(), []ports.JournalRow{{}}))
	assert.Error(t, c.WriteSummary(context.Background(), core.Summary{}, time.Now()))
}
