package infrastructure

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	sqlitestore "ticketdesk/internal/adapter/store/sqlite"
	"ticketdesk/internal/config"
	"ticketdesk/pkg/logger"
)

// NewSQLiteStore opens the embedded sqlite database and wraps it in the
// key-value store.
func NewSQLiteStore(cfg *config.Config, l *zap.Logger) (*sqlitestore.Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Store.Path), &gorm.Config{
		Logger: logger.NewGormLogger(l, cfg.Logger.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", cfg.Store.Path, err)
	}

	s, err := sqlitestore.New(db, l)
	if err != nil {
		return nil, err
	}

	l.Info("sqlite store opened", zap.String("path", cfg.Store.Path))
	return s, nil
}
