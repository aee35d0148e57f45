package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// flexibleSQLMatcher turns a statement into a regexp that ignores whitespace
// differences.
func flexibleSQLMatcher(sql string) string {
	return strings.Join(strings.Fields(regexp.QuoteMeta(sql)), `\s+`)
}

func TestPostgresSaveAll(t *testing.T) {
	t.Run("writes the run in one transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		core, logs := observer.New(zap.ErrorLevel)
		p := NewPostgres(mockPool, zap.New(core))
		run := sampleRun()
		at := run.CrawledAt.UTC()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
			WithArgs("run-1", run.Keyword, at, 2, 1, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertSummary)).
			WithArgs("a1", "run-1", pgxmock.AnyArg(), "Mei", "", 12000, "image",
				"https://www.xiaohongshu.com/explore/a1", "", at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertSummary)).
			WithArgs("b2", "run-1", "Stove", "", "", 3, "video", "", "", at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertDetail)).
			WithArgs("a1", "run-1", "Tent", "", "", "", 0, 0, 0, 0, "",
				"https://www.xiaohongshu.com/explore/a1", "",
				[]byte("[]"), []byte("[]"), "", at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"comments"}, commentColumns).
			WillReturnResult(1)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, p.SaveAll(context.Background(), run))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, logs.All())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		p := NewPostgres(mockPool, nil)
		boom := errors.New("relation \"crawl_runs\" does not exist")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(boom)
		mockPool.ExpectRollback()

		err = p.SaveAll(context.Background(), sampleRun())
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err = NewPostgres(mockPool, nil).SaveAll(context.Background(), sampleRun())
		assert.ErrorContains(t, err, "failed to begin transaction")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresMigrate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS crawl_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, NewPostgres(mockPool, nil).Migrate(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
