package host

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUsersDDL = `CREATE TABLE test_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE,
	age INTEGER,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

const insertUserSQL = "INSERT INTO test_users (name, email, age) VALUES (?, ?, ?)"

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	store, err := OpenSQLStore(context.Background(), logrus.New(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Execute(context.Background(), testUsersDDL, nil)
	require.NoError(t, err)

	return store
}

func TestSQLStore_ExecuteAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLStore(t)

	res, err := store.Execute(ctx, insertUserSQL, []TypedParam{Text("John Doe"), Text("john@example.com"), Integer(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	require.NotNil(t, res.LastInsertID)
	assert.Equal(t, int64(1), *res.LastInsertID)
	assert.NotEmpty(t, res.EngineVersion)

	qr, err := store.Query(ctx, "SELECT id, name, email, age FROM test_users WHERE age > ?", []TypedParam{Integer(25)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), qr.RowsReturned)
	require.Len(t, qr.Columns, 4)
	assert.Equal(t, "name", qr.Columns[1].Name)
	assert.Equal(t, "John Doe", qr.Rows[0]["name"])
	assert.NotEmpty(t, qr.QueryPlan)

	qr, err = store.Query(ctx, "SELECT id FROM test_users WHERE age > ?", []TypedParam{Integer(40)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), qr.RowsReturned)
	assert.NotNil(t, qr.Rows)
}

func TestSQLStore_ExecuteWithoutInsertHasNoLastID(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t)

	res, err := store.Execute(context.Background(), "CREATE TABLE other (id INTEGER)", nil)
	require.NoError(t, err)
	assert.Nil(t, res.LastInsertID)
}

func TestSQLStore_ListTables(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t)

	raw, err := store.ListTables(context.Background())
	require.NoError(t, err)

	var tables []string
	require.NoError(t, json.Unmarshal([]byte(raw), &tables))
	// AUTOINCREMENT creates sqlite_sequence, which is internal and must not be listed.
	assert.Equal(t, []string{"test_users"}, tables)
}

func TestSQLStore_DescribeTable(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t)

	info, err := store.DescribeTable(context.Background(), "test_users")
	require.NoError(t, err)
	assert.Equal(t, "test_users", info.Name)
	require.Len(t, info.Columns, 5)
	assert.True(t, info.Columns[0].PrimaryKey)
	assert.False(t, info.Columns[1].Nullable)
	require.NotNil(t, info.Columns[4].DefaultValue)
	assert.Equal(t, "CURRENT_TIMESTAMP", *info.Columns[4].DefaultValue)

	// The UNIQUE email constraint is backed by an automatic index.
	require.Len(t, info.Indexes, 1)
	assert.True(t, info.Indexes[0].Unique)
	assert.Equal(t, []string{"email"}, info.Indexes[0].Columns)

	_, err = store.DescribeTable(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNoSuchTable)
}

func TestSQLStore_Explain(t *testing.T) {
	t.Parallel()

	store := newTestSQLStore(t)

	exp, err := store.Explain(context.Background(), "SELECT * FROM test_users WHERE age > 25 ORDER BY name", nil)
	require.NoError(t, err)
	assert.Contains(t, exp.QueryPlan, "test_users")
	assert.Zero(t, exp.EstimatedCost)
	assert.NotEmpty(t, exp.EngineVersion)

	_, err = store.Explain(context.Background(), "SELECT * FROM nowhere", nil)
	require.Error(t, err)
}

func TestSQLStore_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLStore(t)

	_, err := store.Execute(ctx, insertUserSQL, []TypedParam{Text("A"), Text("a@example.com"), Integer(1)})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.QueryCountByType["CREATE"])
	assert.Equal(t, int64(1), stats.QueryCountByType["INSERT"])
	assert.Positive(t, stats.SizeBytes)
	assert.InDelta(t, stats.TotalElapsedMs/2, stats.AverageElapsedMs, 1e-9)
}

func TestSQLStore_TransactionCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLStore(t)

	tx, err := store.BeginTransaction(ctx)
	require.NoError(t, err)
	require.True(t, tx.Success)
	assert.Contains(t, tx.TransactionID, "tx_")

	_, err = store.BeginTransaction(ctx)
	require.ErrorIs(t, err, ErrTransactionActive)

	_, err = store.Execute(ctx, insertUserSQL, []TypedParam{Text("Jane Doe"), Text("jane@example.com"), Integer(28)})
	require.NoError(t, err)

	_, err = store.CommitTransaction(ctx, "tx_wrong")
	require.ErrorIs(t, err, ErrUnknownTransaction)

	res, err := store.CommitTransaction(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, tx.TransactionID, res.TransactionID)

	qr, err := store.Query(ctx, "SELECT id FROM test_users", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), qr.RowsReturned)
}

func TestSQLStore_TransactionRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLStore(t)

	tx, err := store.BeginTransaction(ctx)
	require.NoError(t, err)

	_, err = store.Execute(ctx, insertUserSQL, []TypedParam{Text("Rollback User"), Text("rollback@example.com"), Integer(99)})
	require.NoError(t, err)

	res, err := store.RollbackTransaction(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	qr, err := store.Query(ctx, "SELECT id FROM test_users", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), qr.RowsReturned)

	_, err = store.RollbackTransaction(ctx, tx.TransactionID)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestSQLStore_FileBacked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guest", "db.sqlite")

	store, err := OpenSQLStore(ctx, logrus.New(), path)
	require.NoError(t, err)

	_, err = store.Execute(ctx, testUsersDDL, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLStore(ctx, logrus.New(), path)
	require.NoError(t, err)
	defer reopened.Close()

	raw, err := reopened.ListTables(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `["test_users"]`, raw)
}
