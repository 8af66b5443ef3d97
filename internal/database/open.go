package database

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options selects and configures a Store backend
type Options struct {
	Driver  string // "file" or "postgres"
	DataDir string
	DSN     string
	Fs      afero.Fs
}

// Open builds the Store named by opts.Driver
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Driver {
	case "", "file":
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFileStore(fs, opts.DataDir, logger)
	case "postgres":
		return OpenPostgres(ctx, opts.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
