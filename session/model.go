package session

import "time"

// EndReason records why an inactive session stopped being usable.
type EndReason string

const (
	// EndNone is stored on active rows.
	EndNone EndReason = ""
	// EndExpired is set by the janitor once expires_at has passed.
	EndExpired EndReason = "expired"
	// EndLogout is set by an explicit logout.
	EndLogout EndReason = "logout"
	// EndSuperseded is set when a newer login of the same user replaced the session.
	EndSuperseded EndReason = "superseded"
	// EndRevoked is set by administrative invalidation.
	EndRevoked EndReason = "revoked"
)

// Session is one server-side login session. Rows are never deleted; a session
// that is no longer usable only has IsActive set to false and stays as audit trail.
type Session struct {
	ID           string     `gorm:"primaryKey;size:36"`
	UserID       string     `gorm:"size:64;not null;index"`
	Token        string     `gorm:"column:session_token;size:64;not null;uniqueIndex"`
	CreatedAt    time.Time  `gorm:"not null"`
	LastActivity time.Time  `gorm:"not null"`
	ExpiresAt    time.Time  `gorm:"not null;index"`
	IsActive     bool       `gorm:"not null;index"`
	IP           string     `gorm:"column:ip_address;size:45"`
	UserAgent    string     `gorm:"type:text"`
	EndedAt      *time.Time `gorm:"index"`
	EndReason    EndReason  `gorm:"size:16;not null"`

	// Superseded is the number of sessions the creating login deactivated.
	Superseded int64 `gorm:"-"`
}

// TableName pins the table name used by migrations and raw index DDL.
func (Session) TableName() string {
	return "user_sessions"
}

// State is the lifecycle state of a session. Expired and Invalidated are both
// terminal and only differ for audit purposes.
type State uint8

const (
	// StateActive means the session can still be validated.
	StateActive State = iota
	// StateExpired means expires_at passed before anything ended the session.
	StateExpired
	// StateInvalidated means logout, supersession or an administrative action ended it.
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// StateAt classifies the session at the given instant. An active row whose
// expiry has passed is expired even before the janitor marks it.
func (s *Session) StateAt(now time.Time) State {
	if s.IsActive {
		if s.ExpiresAt.After(now) {
			return StateActive
		}
		return StateExpired
	}
	if s.EndReason == EndExpired {
		return StateExpired
	}
	return StateInvalidated
}
