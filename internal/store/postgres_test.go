package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixwatch/pixwatch/internal/model"
)

func newPostgresTestStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock, "fraud_cases"), mock
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newPostgresTestStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS fraud_cases").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveFraudCases(t *testing.T) {
	s, mock := newPostgresTestStore(t)
	mock.ExpectCopyFrom(pgx.Identifier{"fraud_cases"}, postgresColumns).
		WillReturnResult(2)

	n, err := s.SaveFraudCases(context.Background(), sampleCases())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveEmpty(t *testing.T) {
	s, mock := newPostgresTestStore(t)

	n, err := s.SaveFraudCases(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CopyError(t *testing.T) {
	s, mock := newPostgresTestStore(t)
	mock.ExpectCopyFrom(pgx.Identifier{"fraud_cases"}, postgresColumns).
		WillReturnError(assert.AnError)

	_, err := s.SaveFraudCases(context.Background(), sampleCases())
	require.Error(t, err)
	assert.ErrorContains(t, err, "copy fraud cases")
}

func TestPostgres_RowValues(t *testing.T) {
	cases := []model.FraudCase{
		{
			Post: model.Post{
				Text:     "golpe do pix",
				Username: "u",
				Source:   "twitter",
				Extra:    map[string]any{"k": "v"},
			},
			FraudProbability: 0.9,
		},
	}

	s, mock := newPostgresTestStore(t)
	mock.ExpectCopyFrom(pgx.Identifier{"fraud_cases"}, postgresColumns).WillReturnResult(1)

	n, err := s.SaveFraudCases(context.Background(), cases)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
