package wellness

// MoodCrisis is the mood recorded when the chat detects crisis language.
const MoodCrisis = "crisis"

// DefaultUserID is used when callers do not identify the user.
const DefaultUserID = "anon"

// MoodEntry 是一条心情日历记录，date 为 YYYY-MM-DD。
type MoodEntry struct {
	ID     uint   `gorm:"primaryKey" json:"id,omitempty"`
	UserID string `gorm:"type:varchar(64);index" json:"userId"`
	Date   string `gorm:"type:varchar(32);index" json:"date"`
	Mood   string `gorm:"type:varchar(64)" json:"mood"`
	Note   string `gorm:"type:text" json:"note,omitempty"`
}

// TableName 沿用原有表名。
func (MoodEntry) TableName() string { return "mood_entries" }

// DemoMoods 在演示模式下代替真实的心情记录。
func DemoMoods() []MoodEntry {
	return []MoodEntry{
		{UserID: DefaultUserID, Date: "2025-09-03", Mood: "😌 Relaxed"},
		{UserID: DefaultUserID, Date: "2025-09-02", Mood: "😟 Stressed"},
		{UserID: DefaultUserID, Date: "2025-09-01", Mood: "😊 Happy"},
	}
}
