// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalbridge/platform/orchestrator/config"
	"vocalbridge/platform/orchestrator/idempotency"
	"vocalbridge/platform/orchestrator/llm"
	"vocalbridge/platform/orchestrator/message"
	"vocalbridge/platform/shared/logger"
)

func testApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	opts = append([]Option{
		WithLogger(logger.NewWithWriter("test", io.Discard)),
		WithAdapters(
			llm.NewMockAdapter("vendorA", "hello from A", 100, 50),
			llm.NewMockAdapter("vendorB", "hello from B", 100, 50),
		),
	}, opts...)
	app, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func testRequest(key string) message.Request {
	return message.Request{
		TenantID: "tenant-1",
		Agent: message.Agent{
			ID: "agent-1", TenantID: "tenant-1",
			PrimaryProvider: "vendorA", FallbackProvider: "vendorB",
		},
		SessionID:      "session-1",
		UserMessage:    "hi",
		IdempotencyKey: key,
	}
}

func TestNewInMemory(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()

	assert.Nil(t, app.DB)
	assert.NoError(t, app.Ledger.Ping(ctx))
	assert.Equal(t, []string{"vendorA", "vendorB"}, app.Registry.Names())

	resp, err := app.Handler.HandleMessage(ctx, testRequest("k1"))
	require.NoError(t, err)
	assert.Equal(t, "hello from A", resp.Content)

	replay, err := app.Handler.HandleMessage(ctx, testRequest("k1"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)

	attempts, err := app.Ledger.Attempts(ctx, "tenant-1", resp.CorrelationID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)

	deleted, err := app.Sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestNewUsesInjectedStore(t *testing.T) {
	store := idempotency.NewMemoryStore()
	app := testApp(t, WithIdempotencyStore(store))

	_, err := app.Handler.HandleMessage(context.Background(), testRequest("k1"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestNewWithDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	app := testApp(t, WithDB(db))
	assert.Same(t, db, app.DB)

	mock.ExpectQuery("INSERT INTO attempt_ledger").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO usage_events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	resp, err := app.Handler.HandleMessage(context.Background(), testRequest(""))
	require.NoError(t, err)
	assert.Equal(t, "vendorA", resp.ProviderUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStoreNeedsDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Idempotency.Store = config.StorePostgres

	_, err := New(context.Background(), cfg,
		WithLogger(logger.NewWithWriter("test", io.Discard)),
		WithAdapters(llm.NewMockAdapter("vendorA", "x", 1, 1)))
	assert.Error(t, err)
}

func TestBuildAdaptersSkipsProvidersWithoutKeys(t *testing.T) {
	cfg := config.Default()
	app := &App{Config: cfg, log: logger.NewWithWriter("test", io.Discard)}

	adapters, err := app.buildAdapters(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, adapters)
}

func TestBuildAdaptersFromConfig(t *testing.T) {
	cfg := config.Default()
	p := cfg.Providers["vendorA"]
	p.APIKey = "sk-test"
	cfg.Providers["vendorA"] = p

	app := &App{Config: cfg, log: logger.NewWithWriter("test", io.Discard)}
	adapters, err := app.buildAdapters(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, "vendorA", adapters[0].Name())
}

type staticSecrets map[string]map[string]string

func (s staticSecrets) GetSecret(_ context.Context, id string) (map[string]string, error) {
	v, ok := s[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func TestBuildAdaptersResolvesSecrets(t *testing.T) {
	const arn = "arn:aws:secretsmanager:us-east-1:1:secret:openai"
	cfg := config.Default()
	p := cfg.Providers["vendorA"]
	p.APIKey = arn
	cfg.Providers["vendorA"] = p

	app := &App{Config: cfg, log: logger.NewWithWriter("test", io.Discard)}
	adapters, err := app.buildAdapters(context.Background(), staticSecrets{arn: {"api_key": "sk-from-secret"}})
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, "sk-from-secret", cfg.Providers["vendorA"].APIKey)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	app := testApp(t)
	srv := httptest.NewServer(app.NewRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, []interface{}{"vendorA", "vendorB"}, body["providers"])

	metrics, err := http.Get(srv.URL + "/prometheus")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	raw, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")

	post, err := http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	app := testApp(t, WithDB(db))
	rec := httptest.NewRecorder()
	app.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}
