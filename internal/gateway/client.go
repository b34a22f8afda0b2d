package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
	"github.com/zhouzirui/mannmitra/backend/pkg/utils"
)

var (
	ErrUserRequired        = errors.New("user id is required")
	ErrDateRequired        = errors.New("date is required")
	ErrMoodRequired        = errors.New("mood is required")
	ErrAffirmationRequired = errors.New("affirmation is required")
	ErrActivityRequired    = errors.New("activity is required")
	ErrContentRequired     = errors.New("content is required")
	ErrGroupRequired       = errors.New("group id is required")
	ErrPostRequired        = errors.New("post id is required")
)

// StatusError is returned when the persistence service answers with a non-2xx code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.Code)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.Code, e.Message)
}

// Config 描述持久化服务客户端的配置。
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	DemoMode bool
}

// Client talks to the wellness persistence service over HTTP. It never
// retries; callers decide how to treat failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	demo       bool
}

// NewClient builds a Client. In demo mode no request ever leaves the process.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if !cfg.DemoMode {
		if base == "" {
			return nil, fmt.Errorf("gateway base url is required outside demo mode")
		}
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("invalid gateway base url %q: %w", base, err)
		}
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		demo:       cfg.DemoMode,
	}, nil
}

// DemoMode reports whether the client short-circuits all I/O.
func (c *Client) DemoMode() bool {
	return c.demo
}

type successResponse struct {
	Success bool `json:"success"`
}

// SaveMood appends a mood entry.
func (c *Client) SaveMood(ctx context.Context, entry wellness.MoodEntry) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(entry.Mood) == "" {
		return ErrMoodRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode saveMood user=%s date=%s mood=%s", entry.UserID, entry.Date, entry.Mood)
		return nil
	}
	return c.post(ctx, "/mood", entry)
}

// GetMoods returns the user's mood history, newest date first.
func (c *Client) GetMoods(ctx context.Context, userID string) ([]wellness.MoodEntry, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if c.demo {
		return wellness.DemoMoods(), nil
	}

	var payload struct {
		Entries []wellness.MoodEntry `json:"entries"`
	}
	if err := c.get(ctx, "/mood/"+url.PathEscape(userID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

// SaveJournal upserts the journal page for a date.
func (c *Client) SaveJournal(ctx context.Context, date, content string) error {
	if strings.TrimSpace(date) == "" {
		return ErrDateRequired
	}
	if c.demo {
		log.Printf("[gateway] demo mode saveJournal date=%s", date)
		return nil
	}
	return c.post(ctx, "/journals", wellness.JournalEntry{Date: date, Content: content})
}

// GetJournal returns the journal content for a date; empty when none exists.
func (c *Client) GetJournal(ctx context.Context, date string) (string, error) {
	if strings.TrimSpace(date) == "" {
		return "", ErrDateRequired
	}
	if c.demo {
		return "", nil
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := c.get(ctx, "/journals/"+url.PathEscape(date), nil, &payload); err != nil {
		return "", err
	}
	return payload.Content, nil
}

// SaveAffirmation appends an affirmation for a user and date.
func (c *Client) SaveAffirmation(ctx context.Context, item wellness.Affirmation) error {
	if strings.TrimSpace(item.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(item.Affirmation) == "" {
		return ErrAffirmationRequired
	}
	if item.UserID == "" {
		item.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode saveAffirmation user=%s date=%s", item.UserID, item.Date)
		return nil
	}
	return c.post(ctx, "/affirmations", item)
}

// GetAffirmations lists a user's affirmations for one date.
func (c *Client) GetAffirmations(ctx context.Context, userID, date string) ([]wellness.Affirmation, error) {
	if strings.TrimSpace(date) == "" {
		return nil, ErrDateRequired
	}
	if userID == "" {
		userID = wellness.DefaultUserID
	}
	if c.demo {
		return nil, nil
	}

	var payload struct {
		Affirmations []wellness.Affirmation `json:"affirmations"`
	}
	query := url.Values{"userId": []string{userID}}
	if err := c.get(ctx, "/affirmations/"+url.PathEscape(date), query, &payload); err != nil {
		return nil, err
	}
	return payload.Affirmations, nil
}

// GetAffirmationStreak returns the number of distinct dates with an affirmation.
func (c *Client) GetAffirmationStreak(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserRequired
	}
	if c.demo {
		return 0, nil
	}

	var payload struct {
		Streak int `json:"streak"`
	}
	if err := c.get(ctx, "/affirmations/streak/"+url.PathEscape(userID), nil, &payload); err != nil {
		return 0, err
	}
	return payload.Streak, nil
}

// AppendChat stores one message/response pair.
func (c *Client) AppendChat(ctx context.Context, exchange wellness.ChatExchange) error {
	if exchange.UserID == "" {
		exchange.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode appendChat user=%s", exchange.UserID)
		return nil
	}
	return c.post(ctx, "/chat", exchange)
}

// GetChatHistory returns stored exchanges, newest first.
func (c *Client) GetChatHistory(ctx context.Context, userID string) ([]wellness.ChatExchange, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if c.demo {
		return nil, nil
	}

	var payload struct {
		History []wellness.ChatExchange `json:"history"`
	}
	if err := c.get(ctx, "/chat/"+url.PathEscape(userID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.History, nil
}

// LogCrisisRequest records that the user asked for crisis support.
func (c *Client) LogCrisisRequest(ctx context.Context, userID string) error {
	if userID == "" {
		userID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode logCrisisRequest user=%s", userID)
		return nil
	}
	return c.post(ctx, "/crisis", wellness.CrisisRequest{UserID: userID})
}

// LogBreathing records a finished breathing exercise.
func (c *Client) LogBreathing(ctx context.Context, entry wellness.BreathingLog) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode logBreathing user=%s duration=%ds", entry.UserID, entry.Duration)
		return nil
	}
	return c.post(ctx, "/breathing", entry)
}

// LogActivity records a wellness activity such as a launched tool.
func (c *Client) LogActivity(ctx context.Context, entry wellness.WellnessActivity) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(entry.Activity) == "" {
		return ErrActivityRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode logActivity user=%s activity=%s", entry.UserID, entry.Activity)
		return nil
	}
	return c.post(ctx, "/wellness", entry)
}

// GetActivities returns the user's wellness progress, newest date first.
func (c *Client) GetActivities(ctx context.Context, userID string) ([]wellness.WellnessActivity, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if c.demo {
		return []wellness.WellnessActivity{}, nil
	}

	var payload struct {
		Progress []wellness.WellnessActivity `json:"progress"`
	}
	if err := c.get(ctx, "/wellness/"+url.PathEscape(userID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Progress, nil
}

// CreatePost publishes a community post. The server assigns the timestamp.
func (c *Client) CreatePost(ctx context.Context, post wellness.CommunityPost) error {
	if strings.TrimSpace(post.Content) == "" {
		return ErrContentRequired
	}
	if post.UserID == "" {
		post.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode createPost user=%s title=%q", post.UserID, post.Title)
		return nil
	}
	return c.post(ctx, "/community", post)
}

// GetPosts returns every community post, newest first.
func (c *Client) GetPosts(ctx context.Context) ([]wellness.CommunityPost, error) {
	if c.demo {
		return []wellness.CommunityPost{}, nil
	}

	var payload struct {
		Posts []wellness.CommunityPost `json:"posts"`
	}
	if err := c.get(ctx, "/community", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Posts, nil
}

// LikePost adds one like to a community post.
func (c *Client) LikePost(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrPostRequired
	}
	if c.demo {
		log.Printf("[gateway] demo mode likePost id=%d", id)
		return nil
	}
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/community/%d/like", id), nil)
}

// SaveGroupJournal appends a page to a group's shared journal.
func (c *Client) SaveGroupJournal(ctx context.Context, entry wellness.GroupJournalEntry) error {
	if strings.TrimSpace(entry.GroupID) == "" {
		return ErrGroupRequired
	}
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	if c.demo {
		log.Printf("[gateway] demo mode saveGroupJournal group=%s user=%s", entry.GroupID, entry.UserID)
		return nil
	}
	return c.post(ctx, "/group-journals", entry)
}

// GetGroupJournal returns a group's journal pages, newest date first.
func (c *Client) GetGroupJournal(ctx context.Context, groupID string) ([]wellness.GroupJournalEntry, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, ErrGroupRequired
	}
	if c.demo {
		return []wellness.GroupJournalEntry{}, nil
	}

	var payload struct {
		Entries []wellness.GroupJournalEntry `json:"entries"`
	}
	if err := c.get(ctx, "/group-journals/"+url.PathEscape(groupID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.send(ctx, http.MethodPost, path, body)
}

// send issues a write and expects {"success": true} back. A nil body sends none.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var result successResponse
	if err := c.do(req, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("gateway %s: success flag not set", path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload utils.ErrorBody
		_ = json.Unmarshal(body, &payload)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
