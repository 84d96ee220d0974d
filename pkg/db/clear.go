package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const clearLogPrefix = "db:clear"

// ClearAuditLog deletes records. A zero before truncates the whole table;
// otherwise only records created before it are removed. Schema is preserved.
func ClearAuditLog(ctx context.Context, db Querier, before time.Time) (int64, error) {
	if before.IsZero() {
		slog.Info(fmt.Sprintf("%s - Truncating dispatch_log", clearLogPrefix))
		if _, err := db.Exec(ctx, `TRUNCATE TABLE dispatch_log`); err != nil {
			return 0, fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
		}
		return 0, nil
	}

	tag, err := db.Exec(ctx, `DELETE FROM dispatch_log WHERE created < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - delete failed: %w", clearLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Removed %d records older than %s", clearLogPrefix, tag.RowsAffected(), before.UTC().Format(time.RFC3339)))
	return tag.RowsAffected(), nil
}
