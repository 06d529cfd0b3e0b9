package chat

import (
	"time"
)

// User represents a registered chat participant.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Message represents a chat message in the append-only log. The log assigns
// IDs via the auto-increment primary key; ID order is arrival order.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"not null;index;type:text" json:"username"`
	Content   string    `gorm:"not null;type:text" json:"content"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// ClockTime renders the message timestamp as hour:minute for display.
func (m Message) ClockTime() string {
	return m.Timestamp.Format("15:04")
}

// Claims are the authenticated identity attached to a session token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
