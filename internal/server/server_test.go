package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const testWeights = "name,weight\nA,0.5\nB,0.3\nC,0.2\n"

const testPrices = `DATE,A,B,C
2026-01-01,10,20,30
2026-01-02,11,21,29
2026-01-03,12,,31
`

type testEnv struct {
	server  *Server
	http    *httptest.Server
	service *holdings.Service
	bus     *events.Bus
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.DevMode = true
	cfg.UploadDir = t.TempDir()
	cfg.DatabasePath = fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())

	db, err := database.New(database.Config{Path: cfg.DatabasePath, Name: "snapshot"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	bus := events.NewBus(zerolog.Nop())
	manager := events.NewManager(bus, zerolog.Nop())
	processor := ingest.NewProcessor(ingest.NewStager(cfg.UploadDir, cfg.MaxUploadBytes), zerolog.Nop())
	service := holdings.NewService(holdings.NewRepository(db.Conn(), zerolog.Nop()), processor, manager, zerolog.Nop())
	require.NoError(t, service.Init())

	s := New(Config{
		Log:          zerolog.Nop(),
		DB:           db,
		Config:       cfg,
		Service:      service,
		EventManager: manager,
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: s, http: ts, service: service, bus: bus}
}

func (e *testEnv) upload(t *testing.T) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range map[string]string{"weights_file": testWeights, "prices_file": testPrices} {
		part, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.http.URL+"/api/upload-process", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHealth(t *testing.T) {
	env := setupServer(t)

	status, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
}

func TestRoutesMountedUnderAPI(t *testing.T) {
	env := setupServer(t)
	env.upload(t)

	status, body := env.get(t, "/api/top-holdings?n=2")
	assert.Equal(t, http.StatusOK, status)
	var top []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &top))
	require.Len(t, top, 2)
	assert.Equal(t, "C", top[0]["name"])

	status, _ = env.get(t, "/api/top-holdings?n=21")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	env := setupServer(t)

	req, err := http.NewRequest(http.MethodGet, env.http.URL+"/api/composition", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsFollowUploads(t *testing.T) {
	env := setupServer(t)
	env.upload(t)

	// a rejected upload
	resp, err := http.Post(env.http.URL+"/api/upload-process", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()

	status, body := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `etfmonitor_uploads_total{result="ok"} 1`)
	assert.Contains(t, body, "etfmonitor_snapshot_holdings 3")
	assert.Contains(t, body, "etfmonitor_snapshot_dates 3")
	assert.Contains(t, body, `etfmonitor_http_requests_total{method="POST",route="/api/upload-process",status="200"} 1`)
}

func TestSystemStatus(t *testing.T) {
	env := setupServer(t)
	env.upload(t)

	status, body := env.get(t, "/api/system/status")
	require.Equal(t, http.StatusOK, status)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.SnapshotReady)
	assert.Equal(t, 3, resp.Snapshot.Holdings)
	assert.Equal(t, "2026-01-03", resp.Snapshot.LastDate)
	assert.True(t, resp.Database.Healthy)
	assert.Equal(t, "snapshot", resp.Database.Name)
}

func TestEventsStream(t *testing.T) {
	env := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.http.URL+"/api/events/stream?types=SNAPSHOT_REPLACED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var event map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(data), &event))
				return event
			}
		}
	}

	assert.Equal(t, "connected", readEvent()["type"])

	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(events.SnapshotReplaced) > 0
	}, time.Second, 5*time.Millisecond)
	env.upload(t)

	event := readEvent()
	assert.Equal(t, "SNAPSHOT_REPLACED", event["type"])
	assert.Equal(t, "holdings", event["module"])
	data := event["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["holdings"])
}

func TestDashboardSocket(t *testing.T) {
	env := setupServer(t)
	env.upload(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/dashboard/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// waitFor reads until a message satisfies match
	waitFor := func(match func(serverMessage) bool) serverMessage {
		for {
			var msg serverMessage
			require.NoError(t, wsjson.Read(ctx, conn, &msg))
			if match(msg) {
				return msg
			}
		}
	}

	msg := waitFor(func(m serverMessage) bool {
		return m.View == dashboard.ViewTopHoldings && len(m.State.TopHoldings) > 0
	})
	assert.Equal(t, "C", msg.State.TopHoldings[0].Name)
	assert.Equal(t, "2026-01-03", msg.State.ResolvedDate)

	require.NoError(t, wsjson.Write(ctx, conn, clientMessage{Type: "pointer_move", Date: "2026-01-02"}))
	msg = waitFor(func(m serverMessage) bool {
		return m.View == dashboard.ViewTopHoldings && m.State.ResolvedDate == "2026-01-02" && len(m.State.TopHoldings) > 0 && m.State.TopHoldings[0].Name == "B"
	})
	assert.Equal(t, "hovering", msg.State.Hover)

	require.NoError(t, wsjson.Write(ctx, conn, clientMessage{Type: "sort", Key: "name"}))
	msg = waitFor(func(m serverMessage) bool { return m.View == dashboard.ViewComposition })
	assert.Equal(t, "asc", string(msg.State.Sort.Direction))
	assert.Equal(t, "A", msg.State.Rows[0].Name)

	require.NoError(t, wsjson.Write(ctx, conn, clientMessage{Type: "top_n", N: 99}))
	msg = waitFor(func(m serverMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "top N")

	require.NoError(t, wsjson.Write(ctx, conn, clientMessage{Type: "zoom"}))
	msg = waitFor(func(m serverMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "unknown message type")

	status, body := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "etfmonitor_dashboard_sessions 1")
}

func TestDashboardSocketRefreshesOnUpload(t *testing.T) {
	env := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/dashboard/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// empty snapshot first
	for {
		var msg serverMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.View == dashboard.ViewComposition {
			assert.Empty(t, msg.State.Rows)
			break
		}
	}

	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(events.SnapshotReplaced) > 1
	}, time.Second, 5*time.Millisecond)
	env.upload(t)

	for {
		var msg serverMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.View == dashboard.ViewComposition && len(msg.State.Rows) == 3 {
			break
		}
	}
}
