package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/freshharvest/market-backend/pkg/config"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type sqliteRecord struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt time.Time
}

func (sqliteRecord) TableName() string { return "kv_entries" }

// SQLite is a Store persisted to a local SQLite file via GORM.
type SQLite struct {
	conn *gorm.DB
	logg *logger.Logger
}

// NewSQLite opens (or creates) the SQLite database at the configured path
// and migrates the key-value table.
func NewSQLite(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*SQLite, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	if err := conn.WithContext(ctx).AutoMigrate(&sqliteRecord{}); err != nil {
		return nil, fmt.Errorf("migrating kv table: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "sqlite storage opened")
	}

	return &SQLite{conn: conn, logg: logg}, nil
}

func (s *SQLite) Get(ctx context.Context, key string, dest any) (bool, error) {
	var record sqliteRecord
	err := s.conn.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read kv entry")
	}
	if err := json.Unmarshal([]byte(record.Value), dest); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", key), "dropping corrupt kv entry")
		}
		return false, nil
	}
	return true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode kv entry")
	}
	record := sqliteRecord{Key: key, Value: string(raw), UpdatedAt: time.Now().UTC()}
	if err := s.conn.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write kv entry")
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if err := s.conn.WithContext(ctx).Delete(&sqliteRecord{}, "key = ?", key).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete kv entry")
	}
	return nil
}

func (s *SQLite) Has(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := s.conn.WithContext(ctx).Model(&sqliteRecord{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "count kv entry")
	}
	return count > 0, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if err := s.conn.WithContext(ctx).Where("1 = 1").Delete(&sqliteRecord{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear kv entries")
	}
	return nil
}

func (s *SQLite) ClearPrefix(ctx context.Context, prefix string) error {
	if err := s.conn.WithContext(ctx).Where("key LIKE ?", prefix+"%").Delete(&sqliteRecord{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear kv prefix")
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
