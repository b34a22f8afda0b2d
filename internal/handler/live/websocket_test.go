package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/mannmitra/backend/internal/model/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	chatservice "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/response"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*httptest.Server, *chatservice.Service, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	gen := response.NewGenerator(response.WithProbability(0))
	chatSvc := chatservice.NewService(chatservice.Options{}, mock, gen, nil, nil)

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc).RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc, mock
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) []frame {
	t.Helper()
	var seen []frame
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read err after %d frames: %v", len(seen), err)
		}
		seen = append(seen, f)
		if match(f) {
			return seen
		}
	}
}

func eventMessage(t *testing.T, f frame) *chat.Message {
	t.Helper()
	if f.Type != "event" {
		return nil
	}
	var evt conversation.Event
	if err := json.Unmarshal(f.Data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return evt.Message
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _, _ := setup(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func TestWebSocketCrisisTurn(t *testing.T) {
	srv, chatSvc, mock := setup(t)
	session, _ := chatSvc.CreateSession(context.Background(), "", "")
	conn := dial(t, srv, session.ID)

	first := readUntil(t, conn, func(f frame) bool { return true })
	if first[0].Type != "connected" {
		t.Fatalf("expected connected frame, got %s", first[0].Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "I want to end my life"}}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	var cardID int64
	events := 0
	turnSeen := false
	readUntil(t, conn, func(f frame) bool {
		if f.Type == "turn" {
			turnSeen = true
		}
		if msg := eventMessage(t, f); msg != nil {
			events++
			if msg.Card != nil {
				cardID = msg.ID
			}
		}
		return turnSeen && events == 3
	})
	if cardID == 0 {
		t.Fatal("crisis card was not pushed")
	}

	mock.Add(conversation.DefaultCrisisPromptDelay)
	readUntil(t, conn, func(f frame) bool {
		msg := eventMessage(t, f)
		return msg != nil && msg.Category == chat.CategoryMoodPrompt
	})

	if err := conn.WriteJSON(map[string]any{"type": "action", "data": map[string]any{"messageId": cardID, "actionId": chat.ActionTryBreathing}}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	frames := readUntil(t, conn, func(f frame) bool { return f.Type == "event" })
	var evt conversation.Event
	if err := json.Unmarshal(frames[len(frames)-1].Data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Type != conversation.EventLaunch || evt.Tool != "Breathing Exercise" {
		t.Fatalf("unexpected launch event: %+v", evt)
	}
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	srv, chatSvc, _ := setup(t)
	session, _ := chatSvc.CreateSession(context.Background(), "", "")
	conn := dial(t, srv, session.ID)
	readUntil(t, conn, func(f frame) bool { return f.Type == "connected" })

	_ = conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "  "}})
	readUntil(t, conn, func(f frame) bool { return f.Type == "error" })

	_ = conn.WriteJSON(map[string]any{"type": "audio"})
	readUntil(t, conn, func(f frame) bool { return f.Type == "error" })

	_ = conn.WriteJSON(map[string]any{"type": "text", "sessionId": "other", "data": map[string]string{"text": "hi"}})
	readUntil(t, conn, func(f frame) bool { return f.Type == "error" })
}

func TestWebSocketClosesWhenSessionEnds(t *testing.T) {
	srv, chatSvc, _ := setup(t)
	session, _ := chatSvc.CreateSession(context.Background(), "", "")
	conn := dial(t, srv, session.ID)
	readUntil(t, conn, func(f frame) bool { return f.Type == "connected" })

	if err := chatSvc.EndSession(context.Background(), session.ID); err != nil {
		t.Fatalf("EndSession err: %v", err)
	}
	readUntil(t, conn, func(f frame) bool { return f.Type == "end" })
}
