// Package sqlite implements the durable key-value substrate on an embedded
// sqlite file, the client-resident deployment.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketdesk/internal/adapter/store"
	"ticketdesk/internal/domain/ticket"
	"ticketdesk/internal/domain/user"
	apperrors "ticketdesk/pkg/errors"
)

// Store implements store.Store using GORM over an embedded sqlite database.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// kvRecord is the database schema for the key-value table. Values are JSON
// documents: a ticket sequence for partition keys, a user for the session key.
type kvRecord struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"not null;column:value"`
}

// TableName specifies the table name for the kvRecord model.
func (kvRecord) TableName() string {
	return "kv_records"
}

// New creates a sqlite-backed store and ensures the schema exists.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&kvRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Load returns the stored partition for userID, or an empty sequence when
// nothing has been saved yet.
func (s *Store) Load(ctx context.Context, userID string) ([]ticket.Ticket, error) {
	key := store.PartitionKey(userID)

	var record kvRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug("partition not stored yet", zap.String("user_id", userID))
			return []ticket.Ticket{}, nil
		}
		s.log.Error("failed to load partition", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to load partition %s", key), err)
	}

	var tickets []ticket.Ticket
	if err := json.Unmarshal([]byte(record.Value), &tickets); err != nil {
		s.log.Error("failed to decode partition", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode partition %s", key), err)
	}
	if err := store.VerifyOwnership(userID, tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []ticket.Ticket{}
	}
	return tickets, nil
}

// Save overwrites the entire partition for userID with an upsert on the
// partition key.
func (s *Store) Save(ctx context.Context, userID string, tickets []ticket.Ticket) error {
	if err := store.VerifyOwnership(userID, tickets); err != nil {
		return err
	}

	data, err := json.Marshal(ticket.Clone(tickets))
	if err != nil {
		return apperrors.NewInternalError("failed to encode partition", err)
	}

	record := kvRecord{Key: store.PartitionKey(userID), Value: string(data)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&record).Error; err != nil {
		s.log.Error("failed to save partition", zap.String("user_id", userID), zap.Error(err))
		return apperrors.NewInternalError(fmt.Sprintf("failed to save partition %s", record.Key), err)
	}

	s.log.Debug("partition saved", zap.String("user_id", userID), zap.Int("tickets", len(tickets)))
	return nil
}

// LoadSession returns the recorded user, or nil when no session is stored.
func (s *Store) LoadSession(ctx context.Context) (*user.User, error) {
	var record kvRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", store.SessionKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.log.Error("failed to load session record", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to load session record", err)
	}

	var u user.User
	if err := json.Unmarshal([]byte(record.Value), &u); err != nil {
		s.log.Error("failed to decode session record", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to decode session record", err)
	}
	return &u, nil
}

// SaveSession records u as the active user.
func (s *Store) SaveSession(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("cannot save nil session user")
	}

	data, err := json.Marshal(u)
	if err != nil {
		return apperrors.NewInternalError("failed to encode session record", err)
	}

	record := kvRecord{Key: store.SessionKey, Value: string(data)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&record).Error; err != nil {
		s.log.Error("failed to save session record", zap.String("user_id", u.ID), zap.Error(err))
		return apperrors.NewInternalError("failed to save session record", err)
	}
	return nil
}

// ClearSession removes the session record.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&kvRecord{}, "key = ?", store.SessionKey).Error; err != nil {
		s.log.Error("failed to clear session record", zap.Error(err))
		return apperrors.NewInternalError("failed to clear session record", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
