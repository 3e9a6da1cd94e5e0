package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// DefaultTokenTTL is how long a teacher session lives without a new login
const DefaultTokenTTL = 24 * time.Hour

// TeacherStore is the part of the store the auth manager needs
type TeacherStore interface {
	CreateTeacher(ctx context.Context, teacher *types.Teacher) error
	GetTeacher(ctx context.Context, teacherID int64) (*types.Teacher, error)
	GetTeacherByUsername(ctx context.Context, username string) (*types.Teacher, error)
	CountTeachers(ctx context.Context) (int, error)
}

// Session is an issued teacher token
type Session struct {
	Token     string         `json:"token"`
	Teacher   *types.Teacher `json:"teacher"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Manager issues opaque teacher tokens. Tokens live in memory only and are
// lost on restart.
type Manager struct {
	store    TeacherStore
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	sessions map[string]*Session // token -> session
	mu       sync.RWMutex
}

// NewManager creates an auth manager. A non-positive ttl selects DefaultTokenTTL.
func NewManager(store TeacherStore, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With("component", "auth"),
		sessions: make(map[string]*Session),
	}
}

// HashPassword returns a bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureDefaultTeacher seeds an admin account when no teacher exists yet
func (m *Manager) EnsureDefaultTeacher(ctx context.Context, username, password string) error {
	count, err := m.store.CountTeachers(ctx)
	if err != nil {
		return fmt.Errorf("failed to count teachers: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	teacher := &types.Teacher{
		Username:     username,
		Name:         "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := m.store.CreateTeacher(ctx, teacher); err != nil {
		return fmt.Errorf("failed to create default teacher: %w", err)
	}

	m.logger.Warn("created default teacher account, change its password", "username", username)
	return nil
}

// Login checks the credentials and issues a new token
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	teacher, err := m.store.GetTeacherByUsername(ctx, username)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up teacher: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(password)); err != nil {
		m.logger.Info("teacher login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:     uuid.New().String(),
		Teacher:   teacher,
		ExpiresAt: m.now().Add(m.ttl),
	}

	m.PurgeExpired()
	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()

	m.logger.Info("teacher logged in", "username", username)
	return session, nil
}

// Verify returns the teacher owning token
func (m *Manager) Verify(token string) (*types.Teacher, error) {
	m.mu.RLock()
	session, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidToken
	}
	if !m.now().Before(session.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, ErrInvalidToken
	}
	return session.Teacher, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// RevokeTeacher ends every session of teacherID and returns how many there were
func (m *Manager) RevokeTeacher(teacherID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	revoked := 0
	for token, session := range m.sessions {
		if session.Teacher.ID == teacherID {
			delete(m.sessions, token)
			revoked++
		}
	}
	if revoked > 0 {
		m.logger.Info("teacher sessions revoked", "teacher_id", teacherID, "sessions", revoked)
	}
	return revoked
}

// PurgeExpired drops every expired token and returns how many were removed
func (m *Manager) PurgeExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, session := range m.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}
