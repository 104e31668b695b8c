package prefstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// dataVersion reads PRAGMA data_version, which changes when another
// connection commits to the database file.
func dataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// Watch polls db every interval and calls onChange when another process
// has written to it. It blocks until ctx is done.
func Watch(ctx context.Context, db *sql.DB, interval time.Duration, logger *slog.Logger, onChange func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}

	last, err := dataVersion(ctx, db)
	if err != nil {
		logger.Warn("prefstore: initial data_version failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v, err := dataVersion(ctx, db)
			if err != nil {
				logger.Debug("prefstore: data_version failed", "error", err)
				continue
			}
			if v != last {
				last = v
				onChange()
			}
		}
	}
}
