package rate

import "time"

// LoginAttempt is one row of the append-only attempt log.
type LoginAttempt struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	UserID      *string   `gorm:"size:64;index"`
	Username    string    `gorm:"size:255;not null;index:ix_login_attempts_lookup,priority:1"`
	IP          string    `gorm:"column:ip_address;size:45;not null;index:ix_login_attempts_lookup,priority:2"`
	Success     bool      `gorm:"not null;index:ix_login_attempts_lookup,priority:3"`
	AttemptedAt time.Time `gorm:"not null;index:ix_login_attempts_lookup,priority:4;index:ix_login_attempts_attempted_at"`
	UserAgent   string    `gorm:"type:text"`
}

// TableName pins the table name.
func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// Attempt describes one resolved authentication attempt to be recorded.
type Attempt struct {
	// UserID is nil when the username did not resolve to a user, and on
	// attempts refused by the lockout, which never look the user up.
	UserID    *string
	Username  string
	IP        string
	UserAgent string
	Success   bool
}
