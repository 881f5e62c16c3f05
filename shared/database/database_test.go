// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalbridge/platform/shared/logger"
)

func quietOptions(waits *[]time.Duration) Options {
	return Options{
		MaxAttempts: 3,
		Logger:      logger.NewWithWriter("test", io.Discard),
		Sleep: func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
}

func TestConnectRetriesUntilPingSucceeds(t *testing.T) {
	var mocks []sqlmock.Sqlmock
	var dbs []*sql.DB
	for i := 0; i < 2; i++ {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		dbs = append(dbs, db)
		mocks = append(mocks, mock)
	}
	mocks[0].ExpectPing().WillReturnError(errors.New("dial tcp: lookup db: no such host"))
	mocks[0].ExpectClose()
	mocks[1].ExpectPing()

	calls := 0
	var waits []time.Duration
	db, err := connect(context.Background(), func() (*sql.DB, error) {
		db := dbs[calls]
		calls++
		return db, nil
	}, quietOptions(&waits))

	require.NoError(t, err)
	assert.Same(t, dbs[1], db)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, waits)
	for _, m := range mocks {
		assert.NoError(t, m.ExpectationsWereMet())
	}
}

func TestConnectGivesUp(t *testing.T) {
	var waits []time.Duration
	_, err := connect(context.Background(), func() (*sql.DB, error) {
		return nil, errors.New("bad driver")
	}, quietOptions(&waits))

	require.Error(t, err)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.ErrorContains(t, err, "bad driver")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
}

func TestConnectStopsOnCancelledSleep(t *testing.T) {
	opts := quietOptions(new([]time.Duration))
	opts.Sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	_, err := connect(context.Background(), func() (*sql.DB, error) {
		return nil, errors.New("refused")
	}, opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	_, err := Open(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attempt_ledger").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t, EnsureSchema(context.Background(), db), "permission denied")
}

func TestSchemaCoversRepositories(t *testing.T) {
	for _, table := range []string{"attempt_ledger", "usage_events", "idempotency_keys"} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema(), "PRIMARY KEY (key, tenant_id)")
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}
