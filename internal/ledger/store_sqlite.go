package ledger

import (
	"context"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// kvEntry is one row of the key/value table. Values are stored as text.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLiteStore keeps the counter in a SQLite key/value table.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens or creates the database at path. Use ":memory:" for
// a throwaway database.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), slowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open").Context("path", path).Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "get-sql-db").Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, dbError(err, "migrate").Build()
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (int, bool, error) {
	var entry kvEntry
	result := s.db.WithContext(ctx).Where(&kvEntry{Key: CounterKey}).Limit(1).Find(&entry)
	if result.Error != nil {
		return 0, false, dbError(result.Error, "load").Build()
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	n, err := strconv.Atoi(entry.Value)
	if err != nil {
		return 0, false, errors.New(err).
			Category(errors.CategoryFileParsing).
			Component(componentName).
			Context("key", CounterKey).
			Build()
	}
	return n, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, n int) error {
	entry := kvEntry{Key: CounterKey, Value: strconv.Itoa(n)}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return dbError(err, "save").Context("count", n).Build()
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	return sqlDB.Close()
}

func dbError(err error, op string) *errors.ErrorBuilder {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Component(componentName).
		Context("operation", op)
}
