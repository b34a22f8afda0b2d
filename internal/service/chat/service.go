package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/zhouzirui/mannmitra/backend/internal/model/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Options carries the defaults applied to every new session.
type Options struct {
	Locale            string
	UserID            string
	Location          *time.Location
	ReplyDelay        time.Duration
	CrisisPromptDelay time.Duration
	MoodPromptAfter   int
}

type sessionEntry struct {
	session    chat.Session
	controller *conversation.Controller
}

// Service keeps live conversations in memory. Transcripts are never persisted.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionEntry
	opts      Options
	clock     clock.Clock
	responder conversation.Responder
	recorder  conversation.MoodRecorder
	launcher  conversation.Launcher
}

// NewService wires the collaborators shared by all sessions.
func NewService(opts Options, clk clock.Clock, responder conversation.Responder, recorder conversation.MoodRecorder, launcher conversation.Launcher) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		sessions:  make(map[string]*sessionEntry),
		opts:      opts,
		clock:     clk,
		responder: responder,
		recorder:  recorder,
		launcher:  launcher,
	}
}

// CreateSession starts a new conversation. Empty arguments use the service defaults.
func (s *Service) CreateSession(_ context.Context, userID, locale string) (chat.Session, error) {
	if userID == "" {
		userID = s.opts.UserID
	}
	if userID == "" {
		userID = wellness.DefaultUserID
	}
	if locale == "" {
		locale = s.opts.Locale
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Locale:    locale,
		CreatedAt: s.clock.Now().UTC(),
	}

	controller := conversation.New(conversation.Config{
		SessionID:         session.ID,
		UserID:            userID,
		Locale:            locale,
		Location:          s.opts.Location,
		ReplyDelay:        s.opts.ReplyDelay,
		CrisisPromptDelay: s.opts.CrisisPromptDelay,
		MoodPromptAfter:   s.opts.MoodPromptAfter,
	}, s.clock, s.responder, s.recorder, s.launcher)

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session, controller: controller}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return entry.session, nil
}

// Controller returns the live conversation for a session.
func (s *Service) Controller(sessionID string) (*conversation.Controller, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.controller, nil
}

// SendMessage submits user text to the session's conversation.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (conversation.TurnResult, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return conversation.TurnResult{}, err
	}
	return entry.controller.Submit(ctx, text)
}

// LoadTranscript returns the messages of a session in display order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	entry, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.controller.Messages(), nil
}

// EndSession tears down a conversation; pending follow-ups are dropped.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	entry.controller.Close()
	return nil
}

// Shutdown ends every session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for id, entry := range s.sessions {
		entries = append(entries, entry)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.controller.Close()
		entry.controller.WaitRecordings()
	}
}

func (s *Service) lookup(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}
