package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/pkg/database"
)

// sessionModel is the persisted shape of a chat session, keyed by session id
// with standard creation/update timestamps.
type sessionModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	StudentID        string `gorm:"index;not null"`
	VolunteerID      string `gorm:"index"`
	ScreeningID      string
	RiskLevel        string
	Status           string `gorm:"index"`
	Messages         MessageList
	Escalated        bool
	EscalationReason string
	VolunteerNotes   string
	StartTime        *time.Time
	EndTime          *time.Time
	Duration         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (sessionModel) TableName() string { return "chat_sessions" }

// gormStore implements SessionStore on top of GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a SessionStore backed by the given database config and
// runs the schema migration.
func NewGormStore(cfg *database.Config) (SessionStore, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, &sessionModel{}); err != nil {
		return nil, err
	}
	return &gormStore{db: db}, nil
}

// NewGormStoreWithDB wraps an already-open GORM handle. Used by tests.
func NewGormStoreWithDB(db *gorm.DB) (SessionStore, error) {
	if err := database.AutoMigrate(db, &sessionModel{}); err != nil {
		return nil, err
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Create(ctx context.Context, session *domain.ChatSession) error {
	m := toModel(session)
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return &domain.PersistenceError{Op: "create", Err: err}
	}
	session.CreatedAt = m.CreatedAt
	session.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *gormStore) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	var m sessionModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return fromModel(&m), nil
}

func (s *gormStore) Update(ctx context.Context, session *domain.ChatSession) error {
	m := toModel(session)
	res := s.db.WithContext(ctx).Model(&sessionModel{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"volunteer_id":      m.VolunteerID,
		"status":            m.Status,
		"messages":          m.Messages,
		"escalated":         m.Escalated,
		"escalation_reason": m.EscalationReason,
		"volunteer_notes":   m.VolunteerNotes,
		"start_time":        m.StartTime,
		"end_time":          m.EndTime,
		"duration":          m.Duration,
	})
	if res.Error != nil {
		return &domain.PersistenceError{Op: "update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Resource: "session", ID: session.ID}
	}
	return nil
}

func (s *gormStore) AppendMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m sessionModel
		if err := tx.First(&m, "id = ?", sessionID).Error; err != nil {
			return err
		}
		m.Messages = append(m.Messages, msg)
		return tx.Model(&sessionModel{}).Where("id = ?", sessionID).
			Update("messages", m.Messages).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.NotFoundError{Resource: "session", ID: sessionID}
	}
	if err != nil {
		return &domain.PersistenceError{Op: "append_message", Err: err}
	}
	return nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(sess *domain.ChatSession) *sessionModel {
	return &sessionModel{
		ID:               sess.ID,
		StudentID:        sess.StudentID,
		VolunteerID:      sess.VolunteerID,
		ScreeningID:      sess.ScreeningID,
		RiskLevel:        string(sess.RiskLevel),
		Status:           string(sess.Status),
		Messages:         MessageList(sess.Messages),
		Escalated:        sess.Escalated,
		EscalationReason: sess.EscalationReason,
		VolunteerNotes:   sess.VolunteerNotes,
		StartTime:        sess.StartTime,
		EndTime:          sess.EndTime,
		Duration:         sess.Duration,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	}
}

func fromModel(m *sessionModel) *domain.ChatSession {
	return &domain.ChatSession{
		ID:               m.ID,
		StudentID:        m.StudentID,
		VolunteerID:      m.VolunteerID,
		ScreeningID:      m.ScreeningID,
		RiskLevel:        domain.RiskLevel(m.RiskLevel),
		Status:           domain.Status(m.Status),
		Messages:         []domain.Message(m.Messages),
		Escalated:        m.Escalated,
		EscalationReason: m.EscalationReason,
		VolunteerNotes:   m.VolunteerNotes,
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		Duration:         m.Duration,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
