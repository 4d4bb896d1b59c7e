// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_Ping(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	d := &Database{DB: sqlx.NewDb(sqlDB, "sqlmock")}
	assert.Same(t, sqlDB, d.SQL())

	mock.ExpectPing()
	require.NoError(t, d.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = d.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database: connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped", err: fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKeyError(tt.err))
		})
	}
}

func TestWithJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), withJitter(0))

	base := time.Hour
	for i := 0; i < 100; i++ {
		got := withJitter(base)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/7)
	}
}
