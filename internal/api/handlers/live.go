package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/events"
	"github.com/narvanalabs/matchday/internal/models"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveReadLimit  = 512

	// EventConnected is the first frame on a live connection. Its payload is
	// the caller's view of the activity.
	EventConnected events.Type = "connected"
)

// LiveHandler streams activity change events over a websocket so clients can
// refresh their views without polling.
type LiveHandler struct {
	engine   *engine.Service
	broker   *events.Broker
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler creates a new live update handler.
func NewLiveHandler(eng *engine.Service, broker *events.Broker, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		engine: eng,
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// liveSession tracks what one viewer may see while the connection is open.
type liveSession struct {
	conn       *websocket.Conn
	viewerID   string
	activityID string

	mu       sync.Mutex
	activity *models.Activity
}

// setActivity replaces the cached activity unless a is older. Events queued
// before the initial view was loaded can carry a stale copy.
func (s *liveSession) setActivity(a *models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activity != nil && a.Version < s.activity.Version {
		return
	}
	s.activity = a
}

func (s *liveSession) currentActivity() *models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activity
}

// Stream handles GET /v1/activities/{activityID}/live.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityID")
	viewerID := middleware.GetUserID(r.Context())
	log := requestLog(r, h.logger)

	// The request context is not cancelled when a hijacked connection drops,
	// so the read pump owns cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// Subscribe before loading the view so nothing published in between is lost.
	sub := h.broker.Subscribe(ctx, activityID)

	view, err := h.engine.View(ctx, activityID, viewerID)
	if err != nil {
		WriteDomainError(w, r, h.logger, "failed to load activity for live stream", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("failed to upgrade live connection", "error", err)
		return
	}
	defer conn.Close()

	session := &liveSession{
		conn:       conn,
		viewerID:   viewerID,
		activityID: activityID,
		activity:   view.Activity,
	}

	log.Info("live stream started", "subscriber_id", sub.ID)
	defer log.Info("live stream closed", "subscriber_id", sub.ID)

	go h.readPump(conn, log, cancel)

	if err := h.write(conn, &events.Event{
		Type:       EventConnected,
		ActivityID: activityID,
		Payload:    view,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case event, ok := <-sub.Ch:
			if !ok {
				return
			}
			out := h.filter(ctx, session, event)
			if out == nil {
				continue
			}
			if err := h.write(conn, out); err != nil {
				log.Debug("live write failed", "error", err)
				return
			}
		}
	}
}

// readPump discards client frames and cancels the stream once the peer goes away.
func (h *LiveHandler) readPump(conn *websocket.Conn, log *slog.Logger, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(liveReadLimit)
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("live read ended", "error", err)
			}
			return
		}
	}
}

func (h *LiveHandler) write(conn *websocket.Conn, event *events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(event)
}

// filter decides what the viewer receives for event. Chat messages only reach
// members with chat access. Request payloads only reach the organizer and the
// respondent; other viewers get the bare notification.
func (h *LiveHandler) filter(ctx context.Context, s *liveSession, event *events.Event) *events.Event {
	switch event.Type {
	case events.TypeActivityStatusChanged:
		if a, ok := event.Payload.(*models.Activity); ok {
			s.setActivity(a)
		}
	case events.TypeRequestAccepted:
		if a, err := h.engine.GetActivity(ctx, s.activityID); err == nil {
			s.setActivity(a)
		}
	}

	activity := s.currentActivity()
	switch event.Type {
	case events.TypeMessagePosted:
		if !engine.CanChat(activity, s.viewerID) {
			return nil
		}
	case events.TypeRequestSubmitted, events.TypeRequestAccepted, events.TypeRequestRejected:
		req, _ := event.Payload.(*models.JoinRequest)
		if activity.IsOrganizer(s.viewerID) || (req != nil && req.RespondentID == s.viewerID) {
			return event
		}
		stripped := *event
		stripped.Payload = nil
		return &stripped
	}
	return event
}
