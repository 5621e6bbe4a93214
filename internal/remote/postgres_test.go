package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/bsdetector/internal/model"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS validation_history").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistory_Validation(t *testing.T) {
	store, mock := newMockStore(t)

	newer := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "user_id", "claim", "verdict", "score", "mode", "created_at"}).
		AddRow("id-2", "user-1", "claim two", "false", 0.9, "voter", newer).
		AddRow("id-1", "user-1", "claim one", "true", 0.4, "professional", older)

	mock.ExpectQuery("SELECT id, user_id, claim").
		WithArgs("user-1").
		WillReturnRows(rows)

	items, err := store.ListHistory(context.Background(), "user-1", model.HistoryValidation)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "id-2", items[0].ID)
	assert.Equal(t, "user-1", items[0].UserID)
	assert.Equal(t, 0.9, items[0].Score)
	assert.Equal(t, newer.UnixMilli(), items[0].Timestamp)
	assert.Equal(t, "professional", items[1].Mode)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistory_Sentiment(t *testing.T) {
	store, mock := newMockStore(t)

	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "user_id", "topic", "overall", "positive", "neutral", "negative", "created_at"}).
		AddRow("s-1", "user-1", "taxes", "negative", 10, 20, 70, at)

	mock.ExpectQuery("SELECT id, user_id, topic").
		WithArgs("user-1").
		WillReturnRows(rows)

	items, err := store.ListHistory(context.Background(), "user-1", model.HistorySentiment)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "taxes", items[0].Topic)
	assert.Equal(t, 70, items[0].Negative)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistory_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, user_id, claim").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "claim", "verdict", "score", "mode", "created_at"}))

	items, err := store.ListHistory(context.Background(), "user-1", model.HistoryValidation)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistory_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, user_id, claim").
		WithArgs("user-1").
		WillReturnError(errors.New("connection reset"))

	_, err := store.ListHistory(context.Background(), "user-1", model.HistoryValidation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInsertHistory(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	item := model.HistoryItem{ID: "id-1", Claim: "X", Verdict: "false", Score: 0.9, Mode: "voter"}
	mock.ExpectExec("INSERT INTO validation_history").
		WithArgs("id-1", "user-1", "X", "false", 0.9, "voter", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertHistory(context.Background(), "user-1", model.HistoryValidation, item, at))

	sentiment := model.HistoryItem{ID: "s-1", Topic: "T", Overall: "neutral", Positive: 1, Neutral: 2, Negative: 3}
	mock.ExpectExec("INSERT INTO sentiment_history").
		WithArgs("s-1", "user-1", "T", "neutral", 1, 2, 3, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.InsertHistory(context.Background(), "user-1", model.HistorySentiment, sentiment, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearHistory(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM sentiment_history WHERE user_id").
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, store.ClearHistory(context.Background(), "user-1", model.HistorySentiment))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, store.ClearHistory(context.Background(), "user-1", model.HistoryType("audit")))
}

func TestListModelConfigs(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"provider", "model_id", "api_key", "base_url", "enabled", "persona"}).
		AddRow("openai", "gpt-4o", "sk-remote", "", true, "").
		AddRow("mistral", "large", "k", "", true, "")

	mock.ExpectQuery("SELECT provider, model_id").
		WithArgs("user-1").
		WillReturnRows(rows)

	configs, err := store.ListModelConfigs(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[model.ProviderOpenAI]
	assert.Equal(t, model.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-remote", cfg.APIKey)
	assert.True(t, cfg.Enabled)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertModelConfig(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO model_configs").
		WithArgs("user-1", "anthropic", "claude-3-5-haiku-20241022", "sk-ant", "", true, "terse").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertModelConfig(context.Background(), "user-1", model.ProviderConfig{
		Provider: model.ProviderAnthropic,
		ModelID:  "claude-3-5-haiku-20241022",
		APIKey:   "sk-ant",
		Enabled:  true,
		Persona:  "terse",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectedModel(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT model_id FROM model_selection").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"model_id"}).AddRow("grok-3"))

	id, ok, err := store.SelectedModel(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "grok-3", id)

	mock.ExpectQuery("SELECT model_id FROM model_selection").
		WithArgs("user-2").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err = store.SelectedModel(context.Background(), "user-2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSelectedModel(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO model_selection").
		WithArgs("user-1", "gpt-4o").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SetSelectedModel(context.Background(), "user-1", "gpt-4o"))
	require.NoError(t, mock.ExpectationsWereMet())
}
