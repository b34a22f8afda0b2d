package wellness

import "time"

// ChatExchange 记录一次用户消息与回复。
type ChatExchange struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID    string    `gorm:"type:varchar(64);index" json:"userId"`
	Message   string    `gorm:"type:text" json:"message"`
	Response  string    `gorm:"type:text" json:"response"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (ChatExchange) TableName() string { return "chat_history" }

// CrisisRequest 记录一次用户主动请求危机支持。
type CrisisRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID    string    `gorm:"type:varchar(64);index" json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (CrisisRequest) TableName() string { return "crisis_requests" }

// BreathingLog 记录一次呼吸练习，Duration 单位为秒。
type BreathingLog struct {
	ID       uint   `gorm:"primaryKey" json:"id,omitempty"`
	UserID   string `gorm:"type:varchar(64);index" json:"userId"`
	Duration int    `json:"duration"`
	Date     string `gorm:"type:varchar(32)" json:"date"`
}

func (BreathingLog) TableName() string { return "breathing_logs" }

// Recommendation 是按心情分类的推荐内容。
type Recommendation struct {
	ID      uint   `gorm:"primaryKey" json:"id,omitempty"`
	Type    string `gorm:"type:varchar(32);uniqueIndex:idx_recommendation" json:"type"`
	Content string `gorm:"type:varchar(255);uniqueIndex:idx_recommendation" json:"content"`
	Mood    string `gorm:"type:varchar(32);index;uniqueIndex:idx_recommendation" json:"mood"`
}

func (Recommendation) TableName() string { return "recommendations" }

// SeedRecommendations 返回初始推荐目录。
func SeedRecommendations() []Recommendation {
	return []Recommendation{
		{Type: "song", Content: "Happy Song - Artist", Mood: "happy"},
		{Type: "video", Content: "Motivational Video", Mood: "happy"},
		{Type: "exercise", Content: "Calm Breathing", Mood: "stressed"},
		{Type: "song", Content: "Relaxing Music", Mood: "stressed"},
		{Type: "video", Content: "Nature Documentary", Mood: "relaxed"},
		{Type: "exercise", Content: "Gentle Yoga", Mood: "relaxed"},
		{Type: "song", Content: "Uplifting Tune", Mood: "low"},
		{Type: "video", Content: "Inspirational Story", Mood: "low"},
	}
}

// WellnessActivity 记录用户完成或打开的一项练习，例如呼吸练习、冥想。
type WellnessActivity struct {
	ID       uint   `gorm:"primaryKey" json:"id,omitempty"`
	UserID   string `gorm:"type:varchar(64);index" json:"userId"`
	Activity string `gorm:"type:varchar(128)" json:"activity"`
	Date     string `gorm:"type:varchar(32);index" json:"date"`
}

func (WellnessActivity) TableName() string { return "wellness_progress" }
