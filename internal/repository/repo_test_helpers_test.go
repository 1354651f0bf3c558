package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "sqlmock.New")
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var userCols = []string{"id", "first_name", "last_name", "username", "email", "password_hash",
	"role_id", "is_verified", "verification_token", "profile_picture", "created_at", "updated_at"}

func aliceRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow(int64(1), "Alice", "Liddell", "alice", "alice@x.com", "hash",
			int64(2), false, "123456", "https://example.com/default-profile.jpg", now, now)
}
