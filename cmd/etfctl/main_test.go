package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/aristath/etfmonitor/internal/server"
)

const testWeights = "name,weight\nA,0.5\nB,0.3\nC,0.2\n"

const testPrices = `DATE,A,B,C
2026-01-01,10,20,30
2026-01-02,11,21,29
2026-01-03,12,,31
`

// startBackend runs the real API over an in-memory snapshot store
func startBackend(t *testing.T) string {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.DevMode = true
	cfg.UploadDir = t.TempDir()
	cfg.DatabasePath = fmt.Sprintf("file:etfctl_%d?mode=memory&cache=shared", time.Now().UnixNano())

	db, err := database.New(database.Config{Path: cfg.DatabasePath, Name: "snapshot"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	manager := events.NewManager(events.NewBus(zerolog.Nop()), zerolog.Nop())
	processor := ingest.NewProcessor(ingest.NewStager(cfg.UploadDir, cfg.MaxUploadBytes), zerolog.Nop())
	service := holdings.NewService(holdings.NewRepository(db.Conn(), zerolog.Nop()), processor, manager, zerolog.Nop())
	require.NoError(t, service.Init())

	srv := server.New(server.Config{
		Log:          zerolog.Nop(),
		DB:           db,
		Config:       cfg,
		Service:      service,
		EventManager: manager,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, apiURL string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&errOut)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--api-url", apiURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	weights := filepath.Join(dir, "weights.csv")
	prices := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(weights, []byte(testWeights), 0o644))
	require.NoError(t, os.WriteFile(prices, []byte(testPrices), 0o644))
	return weights, prices
}

func uploaded(t *testing.T) string {
	t.Helper()
	apiURL := startBackend(t)
	weights, prices := writeFiles(t)
	out, err := run(t, apiURL, "upload", weights, prices)
	require.NoError(t, err)
	assert.Contains(t, out, "3 holdings")
	return apiURL
}

// firstColumn returns the first field of every row after the header
func firstColumn(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var names []string
	for _, line := range lines[1:] {
		names = append(names, strings.Fields(line)[0])
	}
	return names
}

func TestUploadMissingFile(t *testing.T) {
	apiURL := startBackend(t)
	weights, _ := writeFiles(t)

	_, err := run(t, apiURL, "upload", weights, filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "failed to open prices file")

	_, err = run(t, apiURL, "upload", weights)
	assert.Error(t, err)
}

func TestComposition(t *testing.T) {
	apiURL := uploaded(t)

	out, err := run(t, apiURL, "composition")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, firstColumn(out))
	assert.Contains(t, out, "50.00%")

	out, err = run(t, apiURL, "composition", "--sort", "name", "--direction", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, firstColumn(out))

	_, err = run(t, apiURL, "composition", "--sort", "ticker")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTopHoldings(t *testing.T) {
	apiURL := uploaded(t)

	out, err := run(t, apiURL, "--json", "top", "--n", "2", "--date", "2026-01-02")
	require.NoError(t, err)
	var top []domain.RankedHolding
	require.NoError(t, json.Unmarshal([]byte(out), &top))
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Name)
	assert.Equal(t, "C", top[1].Name)

	_, err = run(t, apiURL, "top", "--n", "21")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = run(t, apiURL, "top", "--date", "02/01/2026")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPriceChanges(t *testing.T) {
	apiURL := uploaded(t)

	out, err := run(t, apiURL, "changes", "--date", "2026-01-02")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"A", "up", "+1.00"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"C", "down", "-1.00"}, strings.Fields(lines[3]))

	// no earlier point on the first date
	out, err = run(t, apiURL, "changes", "--date", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "-", "-"}, strings.Fields(strings.Split(out, "\n")[1]))
}

func TestPerformanceRange(t *testing.T) {
	apiURL := uploaded(t)

	out, err := run(t, apiURL, "performance", "--range", "1D")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-02", "2026-01-03"}, firstColumn(out))

	_, err = run(t, apiURL, "performance", "--range", "2W")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSnapshot(t *testing.T) {
	apiURL := startBackend(t)

	out, err := run(t, apiURL, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshot loaded")

	weights, prices := writeFiles(t)
	_, err = run(t, apiURL, "upload", weights, prices)
	require.NoError(t, err)

	out, err = run(t, apiURL, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-01 to 2026-01-03")
}

func TestInspect(t *testing.T) {
	apiURL := uploaded(t)

	out, err := run(t, apiURL, "--json", "inspect", "--date", "2026-01-02", "--n", "2", "--sort", "name")
	require.NoError(t, err)

	var st dashboard.State
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "2026-01-02", st.ResolvedDate)
	assert.Equal(t, "hovering", st.Hover)
	require.Len(t, st.TopHoldings, 2)
	assert.Equal(t, "B", st.TopHoldings[0].Name)
	assert.Equal(t, domain.SortByName, st.Sort.Key)
	assert.Equal(t, "A", st.Rows[0].Name)
	assert.Len(t, st.Performance, 3, "hover never narrows the performance window")
}

func TestUnreachableBackend(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "--timeout", "1s", "composition")
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestHelpExamplesParse(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})

	var examples int
	for _, line := range strings.Split(root.Long, "\n") {
		if !strings.HasPrefix(line, "  etfctl ") {
			continue
		}
		fields := strings.Fields(line)
		examples++
		cmd, rest, err := root.Find(fields[1:])
		require.NoError(t, err, line)
		assert.NoError(t, cmd.ParseFlags(rest), line)
	}
	assert.Equal(t, 4, examples)
}
