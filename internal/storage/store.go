package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
)

var (
	ErrDateRequired        = errors.New("date is required")
	ErrMoodRequired        = errors.New("mood is required")
	ErrAffirmationRequired = errors.New("affirmation is required")
	ErrUserRequired        = errors.New("user id is required")
	ErrActivityRequired    = errors.New("activity is required")
	ErrContentRequired     = errors.New("content is required")
	ErrGroupRequired       = errors.New("group id is required")
	ErrPostNotFound        = errors.New("post not found")
)

// Store types accepted by Open.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects the database backend.
type Config struct {
	Type string
	DSN  string
}

// Store persists wellness records through GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Type) {
	case "", TypeSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "journals.db"
		}
		dialector = sqlite.Open(dsn)
	case TypePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}

	store, err := New(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// New wraps an existing GORM handle, migrating tables and seeding the
// recommendation catalog.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	if err := db.AutoMigrate(
		&wellness.MoodEntry{},
		&wellness.JournalEntry{},
		&wellness.Affirmation{},
		&wellness.ChatExchange{},
		&wellness.CrisisRequest{},
		&wellness.BreathingLog{},
		&wellness.Recommendation{},
		&wellness.WellnessActivity{},
		&wellness.CommunityPost{},
		&wellness.GroupJournalEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	seed := wellness.SeedRecommendations()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to seed recommendations: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveMood inserts a mood entry.
func (s *Store) SaveMood(ctx context.Context, entry wellness.MoodEntry) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(entry.Mood) == "" {
		return ErrMoodRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	entry.ID = 0

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

// MoodsByUser lists a user's moods, newest date first.
func (s *Store) MoodsByUser(ctx context.Context, userID string) ([]wellness.MoodEntry, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	entries := make([]wellness.MoodEntry, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	return entries, nil
}

// SaveJournal writes the page for a date, replacing any earlier content.
func (s *Store) SaveJournal(ctx context.Context, date, content string) error {
	if strings.TrimSpace(date) == "" {
		return ErrDateRequired
	}

	entry := wellness.JournalEntry{Date: date, Content: content}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upsert journal: %w", err)
	}
	return nil
}

// Journal returns the content for a date, or "" when nothing was written.
func (s *Store) Journal(ctx context.Context, date string) (string, error) {
	if strings.TrimSpace(date) == "" {
		return "", ErrDateRequired
	}

	var entries []wellness.JournalEntry
	if err := s.db.WithContext(ctx).Where("date = ?", date).Limit(1).Find(&entries).Error; err != nil {
		return "", fmt.Errorf("query journal: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].Content, nil
}

// SaveAffirmation appends an affirmation.
func (s *Store) SaveAffirmation(ctx context.Context, item wellness.Affirmation) error {
	if strings.TrimSpace(item.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(item.Affirmation) == "" {
		return ErrAffirmationRequired
	}
	if item.UserID == "" {
		item.UserID = wellness.DefaultUserID
	}
	item.ID = 0

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return fmt.Errorf("insert affirmation: %w", err)
	}
	return nil
}

// Affirmations lists a user's affirmations on a date.
func (s *Store) Affirmations(ctx context.Context, userID, date string) ([]wellness.Affirmation, error) {
	if userID == "" {
		userID = wellness.DefaultUserID
	}

	items := make([]wellness.Affirmation, 0)
	err := s.db.WithContext(ctx).
		Where("date = ? AND user_id = ?", date, userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query affirmations: %w", err)
	}
	return items, nil
}

// AffirmationStreak counts the distinct dates a user saved an affirmation on.
func (s *Store) AffirmationStreak(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserRequired
	}

	var dates []string
	err := s.db.WithContext(ctx).
		Model(&wellness.Affirmation{}).
		Where("user_id = ?", userID).
		Distinct("date").
		Pluck("date", &dates).Error
	if err != nil {
		return 0, fmt.Errorf("query affirmation streak: %w", err)
	}
	return len(dates), nil
}

// AppendChat stores an exchange stamped with the server time.
func (s *Store) AppendChat(ctx context.Context, exchange wellness.ChatExchange) (wellness.ChatExchange, error) {
	if exchange.UserID == "" {
		exchange.UserID = wellness.DefaultUserID
	}
	exchange.ID = 0
	exchange.Timestamp = s.now()

	if err := s.db.WithContext(ctx).Create(&exchange).Error; err != nil {
		return wellness.ChatExchange{}, fmt.Errorf("insert chat exchange: %w", err)
	}
	return exchange, nil
}

// ChatHistory lists a user's exchanges, newest first.
func (s *Store) ChatHistory(ctx context.Context, userID string) ([]wellness.ChatExchange, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	history := make([]wellness.ChatExchange, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	return history, nil
}

// LogCrisisRequest records a crisis support request.
func (s *Store) LogCrisisRequest(ctx context.Context, userID string) error {
	if userID == "" {
		userID = wellness.DefaultUserID
	}

	req := wellness.CrisisRequest{UserID: userID, Timestamp: s.now()}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return fmt.Errorf("insert crisis request: %w", err)
	}
	log.Printf("[storage] crisis request logged for user=%s", userID)
	return nil
}

// LogBreathing records a breathing session.
func (s *Store) LogBreathing(ctx context.Context, entry wellness.BreathingLog) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	entry.ID = 0

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert breathing log: %w", err)
	}
	return nil
}

// Recommendations returns the catalog rows for a mood.
func (s *Store) Recommendations(ctx context.Context, mood string) ([]wellness.Recommendation, error) {
	items := make([]wellness.Recommendation, 0)
	if err := s.db.WithContext(ctx).Where("mood = ?", mood).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	return items, nil
}

// LogActivity records a wellness activity for a date.
func (s *Store) LogActivity(ctx context.Context, entry wellness.WellnessActivity) error {
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(entry.Activity) == "" {
		return ErrActivityRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	entry.ID = 0

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert wellness activity: %w", err)
	}
	return nil
}

// ActivitiesByUser lists a user's activities, newest date first.
func (s *Store) ActivitiesByUser(ctx context.Context, userID string) ([]wellness.WellnessActivity, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	items := make([]wellness.WellnessActivity, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query wellness activities: %w", err)
	}
	return items, nil
}

// CreatePost publishes a community post stamped with the server time.
func (s *Store) CreatePost(ctx context.Context, post wellness.CommunityPost) (wellness.CommunityPost, error) {
	if strings.TrimSpace(post.Content) == "" {
		return wellness.CommunityPost{}, ErrContentRequired
	}
	if post.UserID == "" {
		post.UserID = wellness.DefaultUserID
	}
	post.ID = 0
	post.Likes = 0
	post.Timestamp = s.now()

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return wellness.CommunityPost{}, fmt.Errorf("insert community post: %w", err)
	}
	return post, nil
}

// Posts lists every community post, newest first.
func (s *Store) Posts(ctx context.Context) ([]wellness.CommunityPost, error) {
	posts := make([]wellness.CommunityPost, 0)
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("query community posts: %w", err)
	}
	return posts, nil
}

// LikePost increments a post's like counter atomically.
func (s *Store) LikePost(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&wellness.CommunityPost{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("like community post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// SaveGroupJournal appends a page to a group's shared journal.
func (s *Store) SaveGroupJournal(ctx context.Context, entry wellness.GroupJournalEntry) error {
	if strings.TrimSpace(entry.GroupID) == "" {
		return ErrGroupRequired
	}
	if strings.TrimSpace(entry.Date) == "" {
		return ErrDateRequired
	}
	if entry.UserID == "" {
		entry.UserID = wellness.DefaultUserID
	}
	entry.ID = 0

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("insert group journal: %w", err)
	}
	return nil
}

// GroupJournal lists a group's pages, newest date first.
func (s *Store) GroupJournal(ctx context.Context, groupID string) ([]wellness.GroupJournalEntry, error) {
	if groupID == "" {
		return nil, ErrGroupRequired
	}

	entries := make([]wellness.GroupJournalEntry, 0)
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("date DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query group journal: %w", err)
	}
	return entries, nil
}
