package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	chatservice "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 提供双向的实时聊天通道
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
}

// ActionMessage 点击消息上的交互
type ActionMessage struct {
	MessageID int64  `json:"messageId"`
	ActionID  string `json:"actionId"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connWriter serializes writes; gorilla connections allow one concurrent writer.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) writeJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}

func (w *connWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.Controller(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writer := &connWriter{conn: conn}
	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	h.send(writer, "connected", sessionID, ctrl.Snapshot())

	go h.pingLoop(ctx, writer)
	go h.forwardEvents(ctx, cancel, conn, writer, sessionID, events)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(writer, "session mismatch")
			continue
		}

		h.handleMessage(ctx, writer, ctrl, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, writer *connWriter, ctrl *conversation.Controller, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(writer, "invalid text payload")
			return
		}
		turn, err := ctrl.Submit(ctx, payload.Text)
		if err != nil {
			h.sendError(writer, err.Error())
			return
		}
		h.send(writer, "turn", ctrl.SessionID(), turn)
	case "action":
		var payload ActionMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(writer, "invalid action payload")
			return
		}
		if err := ctrl.Activate(payload.MessageID, payload.ActionID); err != nil {
			h.sendError(writer, err.Error())
		}
	default:
		h.sendError(writer, "unsupported message type: "+msg.Type)
	}
}

// forwardEvents relays controller events until the session ends, then closes
// the socket so the read loop exits.
func (h *WebSocketHandler) forwardEvents(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, writer *connWriter, sessionID string, events <-chan conversation.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				h.send(writer, "end", sessionID, nil)
				cancel()
				_ = conn.Close()
				return
			}
			if err := writer.writeJSON(outgoingMessage{
				Type:      "event",
				SessionID: sessionID,
				Data:      evt,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("[websocket] forward event failed: %v", err)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(writer *connWriter, kind, sessionID string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := writer.writeJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
}

func (h *WebSocketHandler) sendError(writer *connWriter, message string) {
	h.send(writer, "error", "", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, writer *connWriter) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writer.ping(); err != nil {
				return
			}
		}
	}
}
