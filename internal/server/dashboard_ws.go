package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// clientMessage is one dashboard interaction sent by the browser
type clientMessage struct {
	Type  string `json:"type"`
	Date  string `json:"date,omitempty"`
	Key   string `json:"key,omitempty"`
	N     int    `json:"n,omitempty"`
	Range string `json:"range,omitempty"`
}

// serverMessage is either an applied view update or a rejected message
type serverMessage struct {
	Type  string           `json:"type"`
	View  dashboard.View   `json:"view,omitempty"`
	State *dashboard.State `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

// DashboardSocket runs one dashboard session per websocket connection
type DashboardSocket struct {
	service      *holdings.Service
	bus          *events.Bus
	metrics      *Metrics
	topN         int
	writeTimeout time.Duration
	log          zerolog.Logger
}

// NewDashboardSocket creates the websocket handler
func NewDashboardSocket(service *holdings.Service, bus *events.Bus, metrics *Metrics, topN int, log zerolog.Logger) *DashboardSocket {
	return &DashboardSocket{
		service:      service,
		bus:          bus,
		metrics:      metrics,
		topN:         topN,
		writeTimeout: 5 * time.Second,
		log:          log.With().Str("component", "dashboard_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/dashboard/ws
func (h *DashboardSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opts := dashboard.Options{TopN: h.topN, Logger: h.log}
	if h.metrics != nil {
		opts.OnDiscard = h.metrics.ObserveDiscard
		h.metrics.DashboardSessions.Inc()
		defer h.metrics.DashboardSessions.Dec()
	}
	session := dashboard.NewSession(ctx, dashboard.NewLocalBackend(h.service), opts)
	defer session.Close()

	out := make(chan serverMessage, 32)
	enqueue := func(msg serverMessage) {
		select {
		case out <- msg:
		case <-ctx.Done():
		}
	}

	unsubscribe := session.Subscribe(func(view dashboard.View, st dashboard.State) {
		enqueue(serverMessage{Type: "view", View: view, State: &st})
	})
	defer unsubscribe()

	// uploads made through the REST API reach every open dashboard
	if h.bus != nil {
		stop := h.bus.Subscribe(events.SnapshotReplaced, func(*events.Event) { session.Refresh() })
		defer stop()
	}

	// conn allows one concurrent writer
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-out:
				wctx, wcancel := context.WithTimeout(ctx, h.writeTimeout)
				err := wsjson.Write(wctx, conn, msg)
				wcancel()
				if err != nil {
					h.log.Debug().Err(err).Msg("Websocket write failed")
					cancel()
					return
				}
			}
		}
	}()

	h.log.Info().Msg("Dashboard session opened")
	session.Refresh()

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				h.log.Debug().Err(err).Msg("Websocket read ended")
			}
			break
		}
		if err := h.apply(session, msg); err != nil {
			enqueue(serverMessage{Type: "error", Error: err.Error()})
		}
	}

	cancel()
	<-writerDone
	h.log.Info().Msg("Dashboard session closed")
}

func (h *DashboardSocket) apply(session *dashboard.Session, msg clientMessage) error {
	switch msg.Type {
	case "pointer_move":
		return session.PointerMove(msg.Date)
	case "pointer_leave":
		session.PointerLeave()
	case "select":
		return session.Select(msg.Date)
	case "sort":
		key, err := domain.ParseSortKey(msg.Key)
		if err != nil {
			return err
		}
		session.Sort(key)
	case "top_n":
		return session.SetTopN(msg.N)
	case "range":
		r, err := domain.ParseTimeRange(msg.Range)
		if err != nil {
			return err
		}
		session.SetRange(r)
	case "refresh":
		session.Refresh()
	default:
		return fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidArgument, msg.Type)
	}
	return nil
}
