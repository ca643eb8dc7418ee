package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/auth"
	"github.com/xavierca1/prospect-crm/internal/infra/http/middleware"
)

// SessionService is the auth surface the handlers need. *auth.Service
// satisfies it.
type SessionService interface {
	SignOut(token string) error
	Broker() *auth.Broker
}

type SessionHandler struct {
	sessions  SessionService
	notices   *NoticeHub
	logger    *zap.Logger
	keepAlive time.Duration
}

func NewSessionHandler(sessions SessionService, notices *NoticeHub, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		sessions:  sessions,
		notices:   notices,
		logger:    logger,
		keepAlive: 25 * time.Second,
	}
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
		return
	}
	if err := h.sessions.SignOut(session.AccessToken); err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams the caller's own repository notices and session events
// until the client goes away or the session ends.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", err.Error())
		return
	}

	notices, stopNotices := h.notices.Subscribe(session.User.ID)
	defer stopNotices()
	sessionEvents, stopSessions := h.sessions.Broker().Subscribe()
	defer stopSessions()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	if err := sse.WriteComment("connected"); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			if err := sse.WriteEvent("notice", n); err != nil {
				return
			}
		case e, ok := <-sessionEvents:
			if !ok {
				return
			}
			if e.User.ID != session.User.ID {
				continue
			}
			if err := sse.WriteEvent("session", e); err != nil {
				return
			}
			if e.Type == auth.SignedOut {
				h.logger.Debug("closing event stream after sign-out", zap.String("user_id", e.User.ID))
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
