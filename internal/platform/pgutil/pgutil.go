package pgutil

import (
	"errors"
	"hash/fnv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AdvisoryXactLock takes a transaction-scoped Postgres advisory lock keyed by
// namespace:key. The lock releases at commit or rollback.
func AdvisoryXactLock(tx *gorm.DB, namespace, key string) error {
	if tx == nil || namespace == "" || key == "" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", AdvisoryKey64(namespace, key)).Error
}

func AdvisoryKey64(namespace, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// IsUniqueViolation reports whether err is a Postgres 23505 on the given
// constraint (any constraint when empty).
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			if strings.TrimSpace(constraint) == "" {
				return true
			}
			return strings.EqualFold(strings.TrimSpace(pgErr.ConstraintName), strings.TrimSpace(constraint))
		}
	}

	// Fallback: string match (covers wrapped errors that lose type info).
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "sqlstate 23505") {
		if strings.TrimSpace(constraint) == "" {
			return true
		}
		return strings.Contains(msg, strings.ToLower(strings.TrimSpace(constraint)))
	}
	return false
}
