package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	chatService "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/pkg/utils"
)

// DefaultHeartbeat is the interval between keep-alive events.
const DefaultHeartbeat = 8 * time.Second

var errStreamingUnsupported = errors.New("streaming unsupported")

// Handler pushes conversation events to the browser via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
}

// New creates a new stream handler.
func New(chatSvc *chatService.Service, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handler{chatSvc: chatSvc, heartbeat: heartbeat}
}

// StreamResponse represents a non-message stream frame.
type StreamResponse struct {
	Event     string              `json:"event"`
	SessionID string              `json:"sessionId,omitempty"`
	State     *conversation.State `json:"state,omitempty"`
	Time      string              `json:"time,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// RegisterRoutes mounts the stream endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		ctrl, err := h.chatSvc.Controller(sessionID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		if err := h.HandleStreamRequest(r.Context(), w, ctrl); err != nil {
			log.Printf("[stream] error handling request: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
		}
	})
}

// HandleStreamRequest streams one conversation until the client leaves or
// the session ends. The first frame carries the transcript so far; later
// frames may repeat messages already in it, clients dedupe by id.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, ctrl *conversation.Controller) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamingUnsupported
	}

	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)

	sessionID := ctrl.SessionID()
	state := ctrl.Snapshot()
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "status",
		SessionID: sessionID,
		State:     &state,
	})
	log.Printf("[stream] opened session=%s", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[stream] client left session=%s", sessionID)
			return nil
		case evt, ok := <-events:
			if !ok {
				utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", SessionID: sessionID})
				log.Printf("[stream] session=%s ended", sessionID)
				return nil
			}
			utils.SendSSEChunk(w, flusher, evt)
		case t := <-ticker.C:
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:     "heartbeat",
				SessionID: sessionID,
				Time:      t.UTC().Format(time.RFC3339),
			})
		}
	}
}
