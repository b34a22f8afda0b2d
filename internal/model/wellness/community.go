package wellness

import "time"

// CommunityPost 是匿名社区里的一条帖子。
type CommunityPost struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID    string    `gorm:"type:varchar(64);index" json:"userId"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
}

func (CommunityPost) TableName() string { return "community_posts" }

// GroupJournalEntry 是小组共享日记中的一页。
type GroupJournalEntry struct {
	ID      uint   `gorm:"primaryKey" json:"id,omitempty"`
	GroupID string `gorm:"type:varchar(64);index" json:"groupId"`
	UserID  string `gorm:"type:varchar(64)" json:"userId"`
	Content string `gorm:"type:text" json:"content"`
	Date    string `gorm:"type:varchar(32)" json:"date"`
}

func (GroupJournalEntry) TableName() string { return "group_journals" }
