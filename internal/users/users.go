// Package users is a gorm-backed [goSession.UserProvider] for deployments that
// do not bring their own user table.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = errors.New("username already taken")

// User is one account row.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	Email        string `gorm:"size:255"`
	PasswordHash string `gorm:"type:text;not null"`
	Active       bool   `gorm:"not null"`
	Admin        bool   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// Store implements goSession.UserProvider and goSession.PasswordHashUpdater.
type Store struct {
	db *gorm.DB
}

// NewStore wraps db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NewUser describes an account to create.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Admin        bool
}

// Create inserts a user and returns its generated ID.
func (s *Store) Create(ctx context.Context, in NewUser) (string, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.PasswordHash == "" {
		return "", errors.New("username and password hash are required")
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: in.PasswordHash,
		Active:       in.Active,
		Admin:        in.Admin,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return u.ID, nil
}

// GetUserByIdentifier looks a user up by exact username.
func (s *Store) GetUserByIdentifier(ctx context.Context, username string) (goSession.UserRecord, error) {
	return s.first(ctx, "username = ?", username)
}

// GetUserByID looks a user up by ID.
func (s *Store) GetUserByID(ctx context.Context, userID string) (goSession.UserRecord, error) {
	return s.first(ctx, "id = ?", userID)
}

// UpdatePasswordHash replaces the stored hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Update("password_hash", newHash)
	if res.Error != nil {
		return fmt.Errorf("update password hash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

// SetActive flips the verified flag.
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	res := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("update active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

func (s *Store) first(ctx context.Context, query string, arg string) (goSession.UserRecord, error) {
	var u User
	err := s.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return goSession.UserRecord{}, goSession.ErrUserNotFound
	}
	if err != nil {
		return goSession.UserRecord{}, fmt.Errorf("load user: %w", err)
	}
	return goSession.UserRecord{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Active,
		Admin:        u.Admin,
	}, nil
}
