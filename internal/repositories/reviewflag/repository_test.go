package reviewflag

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/models"
)

// stubConn backs a real *sql.DB with scripted rows so repository queries
// run through the full sqlx scan path without a live database.
type stubConn struct {
	rows  func() driver.Rows
	execs []string
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unexpected prepare") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("unexpected begin") }

func (c *stubConn) QueryContext(_ context.Context, _ string, _ []driver.NamedValue) (driver.Rows, error) {
	return c.rows(), nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	return driver.RowsAffected(1), nil
}

type stubRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

type stubConnector struct {
	conn *stubConn
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("unexpected open") }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newStubRepository(flagRow func() driver.Rows) (*stubConn, *Repository) {
	conn := &stubConn{rows: flagRow}
	db := sqlx.NewDb(sql.OpenDB(stubConnector{conn: conn}), "postgres")
	return conn, NewRepository(database.NewDatabaseInstance(db, testLogger()), testLogger())
}

func flagRow(status models.FlagStatus, resolvedBy any, resolvedAt any) func() driver.Rows {
	now := time.Now().UTC()
	return func() driver.Rows {
		return &stubRows{
			columns: flagColumns,
			values: [][]driver.Value{{
				"flag-1", "composer", "entity-1", models.FlagReasonPossibleDuplicate,
				string(status), []byte(`{"duplicate_ids":["dup-1"]}`),
				nil, resolvedBy, resolvedAt, now, now,
			}},
		}
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("should no-op when the flag already carries the requested status", func(t *testing.T) {
		resolvedAt := time.Now().UTC().Add(-time.Hour)
		conn, repo := newStubRepository(flagRow(models.FlagStatusResolved, "first-admin", resolvedAt))

		flag, err := repo.Resolve(ctx, "flag-1", models.FlagStatusResolved, "second-admin")
		require.NoError(t, err)

		assert.Equal(t, models.FlagStatusResolved, flag.Status)
		require.NotNil(t, flag.ResolvedBy)
		assert.Equal(t, "first-admin", *flag.ResolvedBy)
		require.NotNil(t, flag.ResolvedAt)
		assert.Equal(t, resolvedAt, *flag.ResolvedAt)
		assert.Empty(t, conn.execs, "re-applying a terminal state must not write")
	})

	t.Run("should stamp the resolver when moving an open flag to resolved", func(t *testing.T) {
		conn, repo := newStubRepository(flagRow(models.FlagStatusOpen, nil, nil))

		flag, err := repo.Resolve(ctx, "flag-1", models.FlagStatusResolved, "admin-1")
		require.NoError(t, err)

		assert.Equal(t, models.FlagStatusResolved, flag.Status)
		require.NotNil(t, flag.ResolvedBy)
		assert.Equal(t, "admin-1", *flag.ResolvedBy)
		assert.NotNil(t, flag.ResolvedAt)

		require.Len(t, conn.execs, 1)
		assert.True(t, strings.HasPrefix(conn.execs[0], "UPDATE review_flag"))
	})

	t.Run("should dismiss a resolved flag", func(t *testing.T) {
		conn, repo := newStubRepository(flagRow(models.FlagStatusResolved, "first-admin", time.Now().UTC()))

		flag, err := repo.Resolve(ctx, "flag-1", models.FlagStatusDismissed, "second-admin")
		require.NoError(t, err)

		assert.Equal(t, models.FlagStatusDismissed, flag.Status)
		require.Len(t, conn.execs, 1)
	})
}
