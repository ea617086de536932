package ledger

import (
	"context"

	"github.com/sirekapreview/reviewer/internal/conf"
	"github.com/sirekapreview/reviewer/internal/errors"
	"github.com/sirekapreview/reviewer/internal/logger"
)

// Store persists the contribution counter.
type Store interface {
	// Load returns the stored value and whether one was present.
	Load(ctx context.Context) (n int, found bool, err error)
	Save(ctx context.Context, n int) error
	Close() error
}

// NewStoreFromSettings opens the store selected by ledger.backend.
func NewStoreFromSettings(settings *conf.Settings, log logger.Logger) (Store, error) {
	if settings.Ledger.Backend == conf.LedgerBackendMemory {
		return NewMemoryStore(), nil
	}

	path, err := settings.LedgerPath()
	if err != nil {
		return nil, err
	}

	switch settings.Ledger.Backend {
	case conf.LedgerBackendSQLite:
		return NewSQLiteStore(path, log)
	case conf.LedgerBackendFile, "":
		return NewFileStore(path), nil
	default:
		return nil, errors.Newf("unknown ledger backend %q", settings.Ledger.Backend).
			Category(errors.CategoryConfiguration).
			Component(componentName).
			Build()
	}
}
