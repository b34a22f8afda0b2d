package wellness

// JournalEntry is the single journal page stored for a calendar date.
type JournalEntry struct {
	ID      uint   `gorm:"primaryKey" json:"id,omitempty"`
	Date    string `gorm:"type:varchar(32);uniqueIndex" json:"date"`
	Content string `gorm:"type:text" json:"content"`
}

func (JournalEntry) TableName() string { return "journals" }

// Affirmation is an append-only record of an affirmation a user chose on a date.
type Affirmation struct {
	ID          uint   `gorm:"primaryKey" json:"id,omitempty"`
	UserID      string `gorm:"type:varchar(64);index" json:"userId"`
	Date        string `gorm:"type:varchar(32);index" json:"date"`
	Affirmation string `gorm:"type:text" json:"affirmation"`
}

func (Affirmation) TableName() string { return "affirmations" }
