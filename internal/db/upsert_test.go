package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stateUpsert = UpsertConfig{
	Table:        "session_state",
	Columns:      []string{"key", "value", "updated_at"},
	ConflictKeys: []string{"key"},
}

func TestUpsertSQL(t *testing.T) {
	got, err := UpsertSQL(stateUpsert, 2)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "session_state" ("key", "value", "updated_at") VALUES ($1, $2, $3), ($4, $5, $6) `+
			`ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "updated_at" = EXCLUDED."updated_at"`,
		got)
}

func TestUpsertSQL_DoNothingWhenAllColumnsAreKeys(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}}, 1)
	require.NoError(t, err)
	assert.Contains(t, got, "ON CONFLICT (\"id\") DO NOTHING")
}

func TestUpsertSQL_Errors(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, 1)
	assert.ErrorContains(t, err, "no columns specified")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id"}}, 1)
	assert.ErrorContains(t, err, "no conflict keys specified")

	_, err = UpsertSQL(stateUpsert, 0)
	assert.ErrorContains(t, err, "no rows")
}

func TestUpsert_EmptyRows(t *testing.T) {
	n, err := Upsert(context.Background(), nil, stateUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpsert_RowWidthMismatch(t *testing.T) {
	_, err := Upsert(context.Background(), nil, stateUpsert, [][]any{{"credits"}})
	assert.ErrorContains(t, err, "row 0 has 1 values, want 3")
}

func TestUpsert_Commits(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "session_state"`).
		WithArgs("credits", []byte("10"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := Upsert(context.Background(), mock, stateUpsert, [][]any{{"credits", []byte("10"), "now"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "session_state"`).
		WithArgs("credits", []byte("10"), pgxmock.AnyArg()).
		WillReturnError(eris.New("disk full"))
	mock.ExpectRollback()

	_, err = Upsert(context.Background(), mock, stateUpsert, [][]any{{"credits", []byte("10"), "now"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT ON CONFLICT")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"app.session_state", `"app"."session_state"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"key", "value"`, quoteAndJoin([]string{"key", "value"}))
}
