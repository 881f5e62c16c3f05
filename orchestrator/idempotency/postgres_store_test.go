// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT response, created_at, expires_at FROM idempotency_keys WHERE key = \\$1 AND tenant_id = \\$2 AND expires_at > \\$3").
		WithArgs("k", "t", now).
		WillReturnRows(sqlmock.NewRows([]string{"response", "created_at", "expires_at"}).
			AddRow([]byte(`{"content":"hi"}`), now.Add(-time.Hour), now.Add(time.Hour)))

	rec, err := store.Get(context.Background(), "k", "t", now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"hi"}`, string(rec.Response))
	assert.Equal(t, now.Add(time.Hour), rec.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT response").WillReturnError(sql.ErrNoRows)

	_, err = NewPostgresStore(db).Get(context.Background(), "k", "t", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO idempotency_keys (.+) ON CONFLICT \\(key, tenant_id\\) DO UPDATE").
		WithArgs("k", "t", `{"v":1}`, created, created.Add(DefaultTTL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewPostgresStore(db).Put(context.Background(), &Record{
		Key: "k", TenantID: "t", Response: []byte(`{"v":1}`),
		CreatedAt: created, ExpiresAt: created.Add(DefaultTTL),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM idempotency_keys WHERE expires_at <= \\$1").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewPostgresStore(db).DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
