package tools

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zhouzirui/mannmitra/backend/internal/analysis/triage"
	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
)

// Recorder is the persistence surface a launch writes to.
type Recorder interface {
	LogCrisisRequest(ctx context.Context, userID string) error
	LogActivity(ctx context.Context, entry wellness.WellnessActivity) error
}

// Launcher handles tool launches requested from the chat. The client opens the
// tool itself after receiving the launch event; the server side only keeps
// records: every launch lands in the user's wellness progress, and helpline
// calls are also logged as crisis requests.
type Launcher struct {
	rec      Recorder
	clock    clock.Clock
	location *time.Location
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewLauncher creates a Launcher. rec may be nil; clk and loc default to the
// wall clock and UTC.
func NewLauncher(rec Recorder, clk clock.Clock, loc *time.Location, timeout time.Duration) *Launcher {
	if clk == nil {
		clk = clock.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Launcher{rec: rec, clock: clk, location: loc, timeout: timeout}
}

// Launch implements conversation.Launcher.
func (l *Launcher) Launch(sessionID, userID string, tool triage.Tool) {
	log.Printf("[tools] session=%s user=%s launching %s", sessionID, userID, tool)

	if l.rec == nil {
		return
	}

	activity := wellness.WellnessActivity{
		UserID:   userID,
		Activity: string(tool),
		Date:     l.clock.Now().In(l.location).Format(time.DateOnly),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.rec.LogActivity(ctx, activity); err != nil {
			log.Printf("[tools] session=%s failed to log activity %s: %v", sessionID, tool, err)
		}
		if tool != triage.CrisisHelpline {
			return
		}
		if err := l.rec.LogCrisisRequest(ctx, userID); err != nil {
			log.Printf("[tools] session=%s failed to log crisis request: %v", sessionID, err)
		}
	}()
}

// Wait blocks until background writes finish.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
