package gateway_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mannmitra/backend/internal/gateway"
	wellnesshandler "github.com/zhouzirui/mannmitra/backend/internal/handler/wellness"
	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
	"github.com/zhouzirui/mannmitra/backend/internal/storage"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	store, err := storage.Open(storage.Config{Type: storage.TypeSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("storage.Open err: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		wellnesshandler.New(store).RegisterRoutes(api)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *gateway.Client {
	t.Helper()
	client, err := gateway.NewClient(gateway.Config{BaseURL: baseURL + "/api", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	return client
}

func TestJournalRoundTrip(t *testing.T) {
	srv := newServer(t)
	client := newClient(t, srv.URL)
	ctx := context.Background()

	if err := client.SaveJournal(ctx, "2025-09-14", "slept well, felt calm"); err != nil {
		t.Fatalf("SaveJournal err: %v", err)
	}
	got, err := client.GetJournal(ctx, "2025-09-14")
	if err != nil {
		t.Fatalf("GetJournal err: %v", err)
	}
	if got != "slept well, felt calm" {
		t.Fatalf("unexpected content %q", got)
	}

	empty, err := client.GetJournal(ctx, "2025-09-15")
	if err != nil {
		t.Fatalf("GetJournal unwritten err: %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty content, got %q", empty)
	}
}

func TestMoodAndAffirmations(t *testing.T) {
	srv := newServer(t)
	client := newClient(t, srv.URL)
	ctx := context.Background()

	for _, date := range []string{"2025-09-02", "2025-09-04", "2025-09-03"} {
		if err := client.SaveMood(ctx, wellness.MoodEntry{UserID: "u1", Date: date, Mood: "happy"}); err != nil {
			t.Fatalf("SaveMood err: %v", err)
		}
	}
	moods, err := client.GetMoods(ctx, "u1")
	if err != nil {
		t.Fatalf("GetMoods err: %v", err)
	}
	if len(moods) != 3 || moods[0].Date != "2025-09-04" {
		t.Fatalf("unexpected moods: %+v", moods)
	}

	for _, date := range []string{"2025-09-01", "2025-09-01", "2025-09-05"} {
		if err := client.SaveAffirmation(ctx, wellness.Affirmation{UserID: "u1", Date: date, Affirmation: "I am enough"}); err != nil {
			t.Fatalf("SaveAffirmation err: %v", err)
		}
	}
	streak, err := client.GetAffirmationStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAffirmationStreak err: %v", err)
	}
	if streak != 2 {
		t.Fatalf("expected streak 2, got %d", streak)
	}
	items, err := client.GetAffirmations(ctx, "u1", "2025-09-01")
	if err != nil {
		t.Fatalf("GetAffirmations err: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 affirmations, got %d", len(items))
	}
}

func TestChatHistoryAndLogs(t *testing.T) {
	srv := newServer(t)
	client := newClient(t, srv.URL)
	ctx := context.Background()

	if err := client.AppendChat(ctx, wellness.ChatExchange{UserID: "u1", Message: "hi", Response: "hello"}); err != nil {
		t.Fatalf("AppendChat err: %v", err)
	}
	history, err := client.GetChatHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("GetChatHistory err: %v", err)
	}
	if len(history) != 1 || history[0].Timestamp.IsZero() {
		t.Fatalf("unexpected history: %+v", history)
	}

	if err := client.LogCrisisRequest(ctx, "u1"); err != nil {
		t.Fatalf("LogCrisisRequest err: %v", err)
	}
	if err := client.LogBreathing(ctx, wellness.BreathingLog{UserID: "u1", Duration: 90, Date: "2025-09-14"}); err != nil {
		t.Fatalf("LogBreathing err: %v", err)
	}
}

func TestClientValidatesBeforeSending(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	ctx := context.Background()

	if err := client.SaveMood(ctx, wellness.MoodEntry{Mood: "sad"}); !errors.Is(err, gateway.ErrDateRequired) {
		t.Fatalf("expected ErrDateRequired, got %v", err)
	}
	if err := client.SaveMood(ctx, wellness.MoodEntry{Date: "2025-09-14"}); !errors.Is(err, gateway.ErrMoodRequired) {
		t.Fatalf("expected ErrMoodRequired, got %v", err)
	}
	if _, err := client.GetJournal(ctx, ""); !errors.Is(err, gateway.ErrDateRequired) {
		t.Fatalf("expected ErrDateRequired, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("invalid calls must not reach the server, got %d hits", hits)
	}
}

func TestClientSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"disk full"}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	err := client.SaveMood(context.Background(), wellness.MoodEntry{Date: "2025-09-14", Mood: wellness.MoodCrisis})

	var statusErr *gateway.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError || statusErr.Message != "disk full" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestDemoModeSkipsNetwork(t *testing.T) {
	client, err := gateway.NewClient(gateway.Config{DemoMode: true})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	ctx := context.Background()

	if err := client.SaveMood(ctx, wellness.MoodEntry{Date: "2025-09-14", Mood: wellness.MoodCrisis}); err != nil {
		t.Fatalf("demo SaveMood err: %v", err)
	}
	moods, err := client.GetMoods(ctx, "anon")
	if err != nil {
		t.Fatalf("demo GetMoods err: %v", err)
	}
	if len(moods) != len(wellness.DemoMoods()) {
		t.Fatalf("expected demo moods, got %d", len(moods))
	}
	if content, err := client.GetJournal(ctx, "2025-09-14"); err != nil || content != "" {
		t.Fatalf("demo journal should be empty, got %q, %v", content, err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := gateway.NewClient(gateway.Config{}); err == nil {
		t.Fatal("expected error without base url")
	}
}

func TestProgressCommunityAndGroupJournal(t *testing.T) {
	srv := newServer(t)
	client := newClient(t, srv.URL)
	ctx := context.Background()

	if err := client.LogActivity(ctx, wellness.WellnessActivity{Activity: "breathing", Date: "2025-09-14"}); err != nil {
		t.Fatalf("LogActivity err: %v", err)
	}
	progress, err := client.GetActivities(ctx, wellness.DefaultUserID)
	if err != nil {
		t.Fatalf("GetActivities err: %v", err)
	}
	if len(progress) != 1 || progress[0].Activity != "breathing" {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	if err := client.CreatePost(ctx, wellness.CommunityPost{Title: "hello", Content: "first week done"}); err != nil {
		t.Fatalf("CreatePost err: %v", err)
	}
	posts, err := client.GetPosts(ctx)
	if err != nil {
		t.Fatalf("GetPosts err: %v", err)
	}
	if len(posts) != 1 || posts[0].Likes != 0 {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if err := client.LikePost(ctx, posts[0].ID); err != nil {
		t.Fatalf("LikePost err: %v", err)
	}
	posts, err = client.GetPosts(ctx)
	if err != nil || posts[0].Likes != 1 {
		t.Fatalf("expected 1 like, got %+v, %v", posts, err)
	}

	var statusErr *gateway.StatusError
	if err := client.LikePost(ctx, posts[0].ID+100); !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}

	if err := client.SaveGroupJournal(ctx, wellness.GroupJournalEntry{GroupID: "g1", Content: "shared page", Date: "2025-09-14"}); err != nil {
		t.Fatalf("SaveGroupJournal err: %v", err)
	}
	entries, err := client.GetGroupJournal(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGroupJournal err: %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "shared page" {
		t.Fatalf("unexpected group journal: %+v", entries)
	}
}

func TestCommunityCallsValidateBeforeSending(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	ctx := context.Background()

	if err := client.LogActivity(ctx, wellness.WellnessActivity{Date: "2025-09-14"}); !errors.Is(err, gateway.ErrActivityRequired) {
		t.Fatalf("expected ErrActivityRequired, got %v", err)
	}
	if err := client.CreatePost(ctx, wellness.CommunityPost{Title: "t"}); !errors.Is(err, gateway.ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
	if err := client.LikePost(ctx, 0); !errors.Is(err, gateway.ErrPostRequired) {
		t.Fatalf("expected ErrPostRequired, got %v", err)
	}
	if err := client.SaveGroupJournal(ctx, wellness.GroupJournalEntry{Date: "2025-09-14"}); !errors.Is(err, gateway.ErrGroupRequired) {
		t.Fatalf("expected ErrGroupRequired, got %v", err)
	}
	if _, err := client.GetGroupJournal(ctx, ""); !errors.Is(err, gateway.ErrGroupRequired) {
		t.Fatalf("expected ErrGroupRequired, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("invalid calls must not reach the server, got %d hits", hits)
	}
}
