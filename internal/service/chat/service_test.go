package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	chat "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/response"
)

func newService() (*chat.Service, *clock.Mock) {
	mock := clock.NewMock()
	gen := response.NewGenerator(response.WithProbability(0))
	return chat.NewService(chat.Options{Locale: response.LocaleEnglish}, mock, gen, nil, nil), mock
}

func TestServiceGetSession(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.UserID != "anon" {
		t.Fatalf("expected default user anon, got %s", got.UserID)
	}
	if got.Locale != response.LocaleEnglish {
		t.Fatalf("expected default locale, got %s", got.Locale)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, "missing", "hi"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceSendMessageAndTranscript(t *testing.T) {
	svc, mock := newService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "u1", "hindi")
	turn, err := svc.SendMessage(ctx, session.ID, "I feel sad")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if turn.Branch != conversation.BranchSentiment {
		t.Fatalf("unexpected branch %s", turn.Branch)
	}

	mock.Add(time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		transcript, err := svc.LoadTranscript(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadTranscript err: %v", err)
		}
		if len(transcript) == 2 {
			if transcript[1].Text != response.Base("sad") {
				t.Fatalf("unexpected reply %q", transcript[1].Text)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("reply never arrived")
}

func TestServiceEndSession(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "", "")
	ctrl, err := svc.Controller(session.ID)
	if err != nil {
		t.Fatalf("Controller err: %v", err)
	}

	if err := svc.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession err: %v", err)
	}
	if _, err := ctrl.Submit(ctx, "hello"); !errors.Is(err, conversation.ErrClosed) {
		t.Fatalf("expected closed controller, got %v", err)
	}
	if err := svc.EndSession(ctx, session.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
