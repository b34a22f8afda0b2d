package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zhouzirui/mannmitra/backend/internal/analysis/triage"
	"github.com/zhouzirui/mannmitra/backend/internal/model/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrClosed          = errors.New("conversation closed")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotActionable   = errors.New("message has no such action")
)

const (
	empatheticReply   = "I hear your pain, and I care. You're not alone. Let's get you support."
	crisisMoodPrompt  = "Would you like me to log this in your mood calendar so we can track your recovery together?"
	dailyMoodPrompt   = "Would you like to log your mood for today?"
	crisisMoodNote    = "Crisis detected in chat"
	copingSuggestText = "You might find the %s helpful. Click to try it."
	helplineHeading   = "Crisis helpline numbers:"
)

// Branch names the path a turn took through the pipeline.
type Branch string

const (
	BranchCrisis    Branch = "crisis"
	BranchCoping    Branch = "coping"
	BranchSentiment Branch = "sentiment"
)

// Responder produces the supportive reply for a sentiment.
type Responder interface {
	Respond(sentiment triage.Sentiment, locale string) string
}

// MoodRecorder persists mood entries. Implemented by the gateway client.
type MoodRecorder interface {
	SaveMood(ctx context.Context, entry wellness.MoodEntry) error
}

// Launcher opens a self-help tool when the user clicks an actionable message.
type Launcher interface {
	Launch(sessionID, userID string, tool triage.Tool)
}

// Config tunes a Controller. Zero values fall back to the defaults below.
type Config struct {
	SessionID         string
	UserID            string
	Locale            string
	Location          *time.Location
	ReplyDelay        time.Duration
	CrisisPromptDelay time.Duration
	MoodPromptAfter   int
	RecordTimeout     time.Duration
}

const (
	DefaultReplyDelay        = 1000 * time.Millisecond
	DefaultCrisisPromptDelay = 2000 * time.Millisecond
	DefaultMoodPromptAfter   = 5
	DefaultRecordTimeout     = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.UserID == "" {
		c.UserID = wellness.DefaultUserID
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.ReplyDelay <= 0 {
		c.ReplyDelay = DefaultReplyDelay
	}
	if c.CrisisPromptDelay <= 0 {
		c.CrisisPromptDelay = DefaultCrisisPromptDelay
	}
	if c.MoodPromptAfter <= 0 {
		c.MoodPromptAfter = DefaultMoodPromptAfter
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = DefaultRecordTimeout
	}
	return c
}

// TurnResult summarises what a submitted message did synchronously.
// Delayed follow-ups arrive later through subscribers.
type TurnResult struct {
	Classification triage.Result  `json:"classification"`
	Branch         Branch         `json:"branch"`
	Appended       []chat.Message `json:"appended"`
}

// State is a snapshot of the conversation.
type State struct {
	Messages      []chat.Message `json:"messages"`
	ExchangeCount int            `json:"exchangeCount"`
}

// followUp owns its timer; once applied it is dropped together with it.
type followUp struct {
	due   time.Time
	seq   uint64
	apply func()
	timer *clock.Timer
}

// Controller owns one session's transcript and runs the triage pipeline for
// every submitted message. It is safe for concurrent use.
type Controller struct {
	cfg       Config
	clock     clock.Clock
	responder Responder
	recorder  MoodRecorder
	launcher  Launcher

	mu            sync.Mutex
	messages      []chat.Message
	exchangeCount int
	lastID        int64
	seq           uint64
	pending       []*followUp
	closed        bool
	hub           hub
	recordings    sync.WaitGroup
}

// New creates a controller. recorder and launcher may be nil.
func New(cfg Config, clk clock.Clock, responder Responder, recorder MoodRecorder, launcher Launcher) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		cfg:       cfg.withDefaults(),
		clock:     clk,
		responder: responder,
		recorder:  recorder,
		launcher:  launcher,
		messages:  make([]chat.Message, 0, 16),
		hub:       newHub(),
	}
}

// SessionID returns the session the controller belongs to.
func (c *Controller) SessionID() string {
	return c.cfg.SessionID
}

// Submit runs one user turn. Blank input is rejected without touching state.
func (c *Controller) Submit(ctx context.Context, text string) (TurnResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return TurnResult{}, ErrClosed
	}

	start := len(c.messages)
	c.appendLocked(chat.Message{Sender: chat.SenderUser, Text: trimmed, Category: chat.CategoryNormal})

	result := triage.Classify(trimmed)
	turn := TurnResult{Classification: result}

	switch {
	case result.Crisis:
		turn.Branch = BranchCrisis
		c.handleCrisisLocked(ctx)
	case result.HasCopingTrigger():
		turn.Branch = BranchCoping
		c.suggestCopingLocked(result.CopingTool)
	default:
		turn.Branch = BranchSentiment
		c.replyLocked(result.Sentiment)
	}

	turn.Appended = append([]chat.Message(nil), c.messages[start:]...)
	return turn, nil
}

func (c *Controller) handleCrisisLocked(ctx context.Context) {
	date := c.clock.Now().In(c.cfg.Location).Format(time.DateOnly)
	c.recordCrisis(ctx, date)

	c.appendLocked(chat.Message{
		Sender:   chat.SenderAssistant,
		Text:     empatheticReply,
		Category: chat.CategoryNormal,
	})
	c.appendLocked(chat.Message{
		Sender:   chat.SenderSystem,
		Category: chat.CategoryCrisisCard,
		Card:     chat.DefaultCrisisCard(),
	})

	c.scheduleLocked(c.cfg.CrisisPromptDelay, func() {
		c.appendLocked(c.moodPrompt(crisisMoodPrompt))
	})
}

// recordCrisis writes the crisis mood entry in the background. Failures are
// logged and never reach the conversation.
func (c *Controller) recordCrisis(ctx context.Context, date string) {
	if c.recorder == nil {
		return
	}

	entry := wellness.MoodEntry{
		UserID: c.cfg.UserID,
		Date:   date,
		Mood:   wellness.MoodCrisis,
		Note:   crisisMoodNote,
	}
	base := context.WithoutCancel(ctx)

	c.recordings.Add(1)
	go func() {
		defer c.recordings.Done()
		recordCtx, cancel := context.WithTimeout(base, c.cfg.RecordTimeout)
		defer cancel()

		if err := c.recorder.SaveMood(recordCtx, entry); err != nil {
			log.Printf("[conversation] session=%s failed to save crisis mood: %v", c.cfg.SessionID, err)
			return
		}
		log.Printf("[conversation] session=%s crisis mood saved for %s", c.cfg.SessionID, date)
	}()
}

func (c *Controller) suggestCopingLocked(tool triage.Tool) {
	c.appendLocked(chat.Message{
		Sender:   chat.SenderSystem,
		Text:     fmt.Sprintf(copingSuggestText, tool),
		Category: chat.CategoryCopingSuggestion,
		Tool:     string(tool),
		Action:   c.launchAction(tool),
	})
}

func (c *Controller) replyLocked(sentiment triage.Sentiment) {
	var reply string
	if c.responder != nil {
		reply = c.responder.Respond(sentiment, c.cfg.Locale)
	}

	c.scheduleLocked(c.cfg.ReplyDelay, func() {
		c.appendLocked(chat.Message{
			Sender:       chat.SenderAssistant,
			Text:         reply,
			Category:     chat.CategoryNormal,
			QuickActions: toolNames(triage.QuickActions(reply)),
		})
		c.exchangeCount++
		if c.exchangeCount == c.cfg.MoodPromptAfter {
			c.appendLocked(c.moodPrompt(dailyMoodPrompt))
		}
	})
}

func (c *Controller) moodPrompt(text string) chat.Message {
	return chat.Message{
		Sender:   chat.SenderSystem,
		Text:     text,
		Category: chat.CategoryMoodPrompt,
		Tool:     string(triage.MoodTracker),
		Action:   c.launchAction(triage.MoodTracker),
	}
}

// Activate runs the interaction attached to a message. actionID selects a
// crisis card button and is ignored for plain clickable messages.
func (c *Controller) Activate(messageID int64, actionID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	msg, ok := c.findLocked(messageID)
	c.mu.Unlock()
	if !ok {
		return ErrMessageNotFound
	}

	if msg.Card != nil {
		switch actionID {
		case chat.ActionCallNow:
			c.launch(triage.CrisisHelpline)
			return nil
		case chat.ActionTryBreathing:
			c.launch(triage.BreathingExercise)
			return nil
		default:
			return ErrNotActionable
		}
	}

	if msg.Action == nil {
		return ErrNotActionable
	}
	msg.Action()
	return nil
}

func (c *Controller) launchAction(tool triage.Tool) func() {
	return func() { c.launch(tool) }
}

func (c *Controller) launch(tool triage.Tool) {
	c.mu.Lock()
	if !c.closed {
		if tool == triage.CrisisHelpline {
			c.appendLocked(helplineMessage())
		}
		c.hub.publish(Event{Type: EventLaunch, SessionID: c.cfg.SessionID, Tool: string(tool)})
	}
	c.mu.Unlock()

	if c.launcher != nil {
		c.launcher.Launch(c.cfg.SessionID, c.cfg.UserID, tool)
	}
}

// Messages returns a copy of the transcript in display order.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

// ExchangeCount returns the number of completed assistant replies.
func (c *Controller) ExchangeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeCount
}

// Snapshot returns the current conversation state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Messages:      append([]chat.Message(nil), c.messages...),
		ExchangeCount: c.exchangeCount,
	}
}

// Subscribe registers for transcript events. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	ch, id := c.hub.add()
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.hub.remove(id)
	}
}

// Close discards pending follow-ups and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, f := range c.pending {
		f.timer.Stop()
	}
	c.pending = nil
	c.hub.closeAll()
}

// WaitRecordings blocks until in-flight crisis writes finish.
func (c *Controller) WaitRecordings() {
	c.recordings.Wait()
}

func (c *Controller) appendLocked(msg chat.Message) {
	msg.ID = c.nextIDLocked()
	msg.SessionID = c.cfg.SessionID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = c.clock.Now().UTC()
	}
	c.messages = append(c.messages, msg)
	c.hub.publish(Event{Type: EventMessage, SessionID: c.cfg.SessionID, Message: &msg})
}

// nextIDLocked derives ids from the clock but never repeats or goes backwards.
func (c *Controller) nextIDLocked() int64 {
	id := c.clock.Now().UnixMilli()
	if len(c.messages) > 0 && id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

func (c *Controller) findLocked(id int64) (chat.Message, bool) {
	idx := sort.Search(len(c.messages), func(i int) bool { return c.messages[i].ID >= id })
	if idx < len(c.messages) && c.messages[idx].ID == id {
		return c.messages[idx], true
	}
	return chat.Message{}, false
}

func (c *Controller) scheduleLocked(delay time.Duration, apply func()) {
	c.seq++
	f := &followUp{
		due:   c.clock.Now().Add(delay),
		seq:   c.seq,
		apply: apply,
	}
	f.timer = c.clock.AfterFunc(delay, c.drain)
	c.pending = append(c.pending, f)
}

// drain applies every follow-up that is due, ordered by due time and then by
// scheduling order, so concurrent timer firings cannot reorder appends.
func (c *Controller) drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	sort.SliceStable(c.pending, func(i, j int) bool {
		if !c.pending[i].due.Equal(c.pending[j].due) {
			return c.pending[i].due.Before(c.pending[j].due)
		}
		return c.pending[i].seq < c.pending[j].seq
	})

	now := c.clock.Now()
	n := 0
	for n < len(c.pending) && !c.pending[n].due.After(now) {
		n++
	}
	due := c.pending[:n]
	c.pending = append([]*followUp(nil), c.pending[n:]...)

	for _, f := range due {
		f.apply()
	}
}

// helplineMessage lists the verified numbers, one per line.
func helplineMessage() chat.Message {
	lines := []string{helplineHeading}
	for _, h := range chat.DefaultCrisisCard().Helplines {
		lines = append(lines, fmt.Sprintf("%s: %s", h.Name, h.Number))
	}
	return chat.Message{
		Sender:   chat.SenderSystem,
		Text:     strings.Join(lines, "\n"),
		Category: chat.CategoryHelpline,
		Tool:     string(triage.CrisisHelpline),
	}
}

func toolNames(tools []triage.Tool) []string {
	if len(tools) == 0 {
		return nil
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = string(tool)
	}
	return names
}
