package tools

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/zhouzirui/mannmitra/backend/internal/analysis/triage"
	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
)

type fakeRecorder struct {
	mu         sync.Mutex
	users      []string
	activities []wellness.WellnessActivity
	err        error
}

func (f *fakeRecorder) LogCrisisRequest(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return f.err
}

func (f *fakeRecorder) LogActivity(_ context.Context, entry wellness.WellnessActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, entry)
	return f.err
}

func TestLaunchLogsHelplineCalls(t *testing.T) {
	rec := &fakeRecorder{}
	launcher := NewLauncher(rec, nil, nil, 0)

	launcher.Launch("s-1", "u1", triage.BreathingExercise)
	launcher.Launch("s-1", "u1", triage.CrisisHelpline)
	launcher.Wait()

	if len(rec.users) != 1 || rec.users[0] != "u1" {
		t.Fatalf("expected one crisis request for u1, got %v", rec.users)
	}
}

func TestLaunchRecordsEveryToolAsActivity(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 9, 14, 20, 0, 0, 0, time.UTC))

	rec := &fakeRecorder{}
	launcher := NewLauncher(rec, mock, kolkata, 0)

	launcher.Launch("s-1", "u1", triage.BreathingExercise)
	launcher.Launch("s-1", "u1", triage.GuidedMeditation)
	launcher.Launch("s-1", "u1", triage.CrisisHelpline)
	launcher.Wait()

	if len(rec.activities) != 3 {
		t.Fatalf("expected 3 activities, got %+v", rec.activities)
	}
	seen := map[string]bool{}
	for _, a := range rec.activities {
		if a.UserID != "u1" || a.Date != "2025-09-15" {
			t.Fatalf("unexpected activity %+v", a)
		}
		seen[a.Activity] = true
	}
	for _, tool := range []triage.Tool{triage.BreathingExercise, triage.GuidedMeditation, triage.CrisisHelpline} {
		if !seen[string(tool)] {
			t.Fatalf("missing activity for %s: %+v", tool, rec.activities)
		}
	}
}

func TestLaunchSwallowsRecorderErrors(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("offline")}
	launcher := NewLauncher(rec, nil, nil, 0)

	launcher.Launch("s-1", "u1", triage.CrisisHelpline)
	launcher.Wait()

	if len(rec.activities) != 1 || len(rec.users) != 1 {
		t.Fatalf("a failed activity write must not skip the crisis log: %+v %v", rec.activities, rec.users)
	}

	NewLauncher(nil, nil, nil, 0).Launch("s-2", "u2", triage.CrisisHelpline)
}
