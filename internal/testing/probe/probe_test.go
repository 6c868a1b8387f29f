package probe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/ethpandaops/storage-probe/internal/host/hosttest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func runProbe(t *testing.T, id ID, fake *hosttest.Fake) StepOutcome {
	t.Helper()

	for _, p := range Catalog() {
		if p.ID == id {
			runner := NewRunner(logrus.New(), steppingClock(5*time.Millisecond))
			return runner.Execute(context.Background(), p, fake)
		}
	}

	t.Fatalf("probe %s not in catalog", id)

	return StepOutcome{}
}

func TestRunner_Execute(t *testing.T) {
	t.Parallel()

	runner := NewRunner(logrus.New(), steppingClock(5*time.Millisecond))

	t.Run("success", func(t *testing.T) {
		outcome := runner.Execute(context.Background(), Probe{
			ID:   "ok",
			Name: "OK",
			Run: func(context.Context, host.Capability) (Details, error) {
				return Details{"k": "v"}, nil
			},
		}, hosttest.New())

		assert.Equal(t, "OK", outcome.Name)
		assert.True(t, outcome.Success)
		assert.InDelta(t, 5.0, outcome.ElapsedMs, 1e-9)
		assert.Nil(t, outcome.ErrorMessage)
		assert.Empty(t, outcome.FailureKind)
		assert.Equal(t, Details{"k": "v"}, outcome.Details)
	})

	t.Run("failure carries message and kind", func(t *testing.T) {
		outcome := runner.Execute(context.Background(), Probe{
			ID:   "bad",
			Name: "Bad",
			Run: func(context.Context, host.Capability) (Details, error) {
				return Details{"partial": "1"}, malformedFailure("failed to parse", errBoom)
			},
		}, hosttest.New())

		assert.False(t, outcome.Success)
		require.NotNil(t, outcome.ErrorMessage)
		assert.Equal(t, "failed to parse: boom", *outcome.ErrorMessage)
		assert.Equal(t, FailureMalformed, outcome.FailureKind)
		assert.Equal(t, "1", outcome.Details["partial"])
		assert.Positive(t, outcome.ElapsedMs)
	})

	t.Run("plain error counts as transport", func(t *testing.T) {
		outcome := runner.Execute(context.Background(), Probe{
			ID:   "plain",
			Name: "Plain",
			Run: func(context.Context, host.Capability) (Details, error) {
				return nil, errBoom
			},
		}, hosttest.New())

		assert.False(t, outcome.Success)
		assert.Equal(t, FailureTransport, outcome.FailureKind)
		assert.Nil(t, outcome.Details)
	})
}

func TestListTablesProbe(t *testing.T) {
	t.Parallel()

	t.Run("parses table list", func(t *testing.T) {
		fake := hosttest.New()
		fake.ListTablesFunc = func() (string, error) { return `["a","b"]`, nil }

		outcome := runProbe(t, ListTables, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "2", outcome.Details["table_count"])
		assert.Equal(t, `["a","b"]`, outcome.Details["tables_json"])
	})

	t.Run("malformed json", func(t *testing.T) {
		fake := hosttest.New()
		fake.ListTablesFunc = func() (string, error) { return `not json`, nil }

		outcome := runProbe(t, ListTables, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, FailureMalformed, outcome.FailureKind)
		assert.Contains(t, *outcome.ErrorMessage, "failed to parse tables JSON: ")
	})

	t.Run("transport error", func(t *testing.T) {
		fake := hosttest.New()
		fake.ListTablesFunc = func() (string, error) { return "", errBoom }

		outcome := runProbe(t, ListTables, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, FailureTransport, outcome.FailureKind)
		assert.Equal(t, "failed to list tables: boom", *outcome.ErrorMessage)
	})
}

func TestRelationalProbes(t *testing.T) {
	t.Parallel()

	t.Run("create table", func(t *testing.T) {
		fake := hosttest.New()

		outcome := runProbe(t, CreateTable, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "fake-1.0", outcome.Details["engine_version"])

		calls := fake.Calls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Arg, "CREATE TABLE test_users")
	})

	t.Run("describe table", func(t *testing.T) {
		fake := hosttest.New()

		outcome := runProbe(t, DescribeTable, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "test_users", outcome.Details["table_name"])
		assert.Equal(t, "1", outcome.Details["column_count"])
		assert.Equal(t, "0", outcome.Details["index_count"])
	})

	t.Run("insert without last id", func(t *testing.T) {
		fake := hosttest.New()

		var bound []host.TypedParam
		fake.ExecuteFunc = func(_ string, params []host.TypedParam) (*host.ExecResult, error) {
			bound = params
			return &host.ExecResult{RowsAffected: 1}, nil
		}

		outcome := runProbe(t, InsertData, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "none", outcome.Details["last_insert_id"])
		assert.Equal(t, "1", outcome.Details["rows_affected"])
		assert.Equal(t, []host.TypedParam{host.Text("John Doe"), host.Text("john@example.com"), host.Integer(30)}, bound)
	})

	t.Run("insert nil result is malformed", func(t *testing.T) {
		fake := hosttest.New()
		fake.ExecuteFunc = func(string, []host.TypedParam) (*host.ExecResult, error) { return nil, nil }

		outcome := runProbe(t, InsertData, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, FailureMalformed, outcome.FailureKind)
	})

	t.Run("query enhanced", func(t *testing.T) {
		fake := hosttest.New()
		fake.QueryFunc = func(_ string, params []host.TypedParam) (*host.QueryResult, error) {
			assert.Equal(t, []host.TypedParam{host.Integer(25)}, params)
			return &host.QueryResult{RowsReturned: 1, Columns: make([]host.ColumnInfo, 4), ElapsedMs: 0.25}, nil
		}

		outcome := runProbe(t, QueryEnhanced, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "1", outcome.Details["rows_returned"])
		assert.Equal(t, "4", outcome.Details["column_count"])
		assert.Equal(t, "0.25", outcome.Details["execution_time_ms"])
	})

	t.Run("explain", func(t *testing.T) {
		outcome := runProbe(t, ExplainQuery, hosttest.New())
		require.True(t, outcome.Success)
		assert.Equal(t, "0: SCAN fake", outcome.Details["query_plan"])
		assert.Equal(t, "0", outcome.Details["estimated_cost"])
	})

	t.Run("stats failure", func(t *testing.T) {
		fake := hosttest.New()
		fake.StatsFunc = func() (*host.DatabaseStats, error) { return nil, errBoom }

		outcome := runProbe(t, GetStats, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "failed to get database stats: boom", *outcome.ErrorMessage)
	})
}

func TestTransactionsProbe(t *testing.T) {
	t.Parallel()

	t.Run("commit receives the begin identifier", func(t *testing.T) {
		fake := hosttest.New()
		fake.BeginFunc = func() (*host.TransactionResult, error) {
			return &host.TransactionResult{TransactionID: "tx_42", Success: true}, nil
		}

		outcome := runProbe(t, Transactions, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "tx_42", outcome.Details["transaction_id"])
		assert.Equal(t, "true", outcome.Details["committed"])

		assert.Equal(t, []string{hosttest.OpBegin, hosttest.OpExecute, hosttest.OpCommit}, fake.Ops())
		assert.Equal(t, "tx_42", fake.Calls()[2].Arg)
	})

	t.Run("begin error makes no further calls", func(t *testing.T) {
		fake := hosttest.New()
		fake.BeginFunc = func() (*host.TransactionResult, error) { return nil, errBoom }

		outcome := runProbe(t, Transactions, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, FailureTransport, outcome.FailureKind)
		assert.Equal(t, []string{hosttest.OpBegin}, fake.Ops())
	})

	t.Run("unacknowledged begin makes no further calls", func(t *testing.T) {
		fake := hosttest.New()
		fake.BeginFunc = func() (*host.TransactionResult, error) {
			return &host.TransactionResult{Success: false}, nil
		}

		outcome := runProbe(t, Transactions, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, FailureLogical, outcome.FailureKind)
		assert.Equal(t, []string{hosttest.OpBegin}, fake.Ops())
	})

	t.Run("success equals commit acknowledgement", func(t *testing.T) {
		fake := hosttest.New()
		fake.CommitFunc = func(id string) (*host.TransactionResult, error) {
			return &host.TransactionResult{TransactionID: id, Success: false}, nil
		}

		outcome := runProbe(t, Transactions, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "false", outcome.Details["committed"])
		assert.Equal(t, FailureLogical, outcome.FailureKind)
	})

	t.Run("failed insert rolls back instead of committing", func(t *testing.T) {
		fake := hosttest.New()
		fake.ExecuteFunc = func(string, []host.TypedParam) (*host.ExecResult, error) { return nil, errBoom }

		outcome := runProbe(t, Transactions, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "failed to insert in transaction: boom", *outcome.ErrorMessage)

		assert.Equal(t, []string{hosttest.OpBegin, hosttest.OpExecute, hosttest.OpRollback}, fake.Ops())
		assert.Equal(t, "tx_fake_1", fake.Calls()[2].Arg)
	})
}

func TestTransactionRollbackProbe(t *testing.T) {
	t.Parallel()

	t.Run("always rolls back", func(t *testing.T) {
		fake := hosttest.New()

		outcome := runProbe(t, TransactionRollback, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "true", outcome.Details["rolled_back"])
		assert.NotContains(t, outcome.Details, "insert_error")

		assert.Equal(t, []string{hosttest.OpBegin, hosttest.OpExecute, hosttest.OpRollback}, fake.Ops())
		assert.Equal(t, outcome.Details["transaction_id"], fake.Calls()[2].Arg)
	})

	t.Run("insert failure does not decide the verdict", func(t *testing.T) {
		fake := hosttest.New()
		fake.ExecuteFunc = func(string, []host.TypedParam) (*host.ExecResult, error) { return nil, errBoom }

		outcome := runProbe(t, TransactionRollback, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, "boom", outcome.Details["insert_error"])
		assert.NotContains(t, fake.Ops(), hosttest.OpCommit)
	})

	t.Run("unacknowledged rollback fails", func(t *testing.T) {
		fake := hosttest.New()
		fake.RollbackFunc = func(id string) (*host.TransactionResult, error) {
			return &host.TransactionResult{TransactionID: id, Success: false}, nil
		}

		outcome := runProbe(t, TransactionRollback, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "false", outcome.Details["rolled_back"])
		assert.NotContains(t, fake.Ops(), hosttest.OpCommit)
	})

	t.Run("begin failure", func(t *testing.T) {
		fake := hosttest.New()
		fake.BeginFunc = func() (*host.TransactionResult, error) { return nil, errBoom }

		outcome := runProbe(t, TransactionRollback, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, []string{hosttest.OpBegin}, fake.Ops())
	})
}

func TestKVStoreProbe(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		fake := hosttest.New()

		outcome := runProbe(t, KVStore, fake)
		require.True(t, outcome.Success)
		assert.Equal(t, Details{
			"stored_successfully":    "true",
			"retrieved_successfully": "true",
			"values_match":           "true",
		}, outcome.Details)
	})

	t.Run("key order and whitespace do not matter", func(t *testing.T) {
		fake := hosttest.New()
		fake.KVReadFunc = func(string, string) (json.RawMessage, bool, error) {
			return json.RawMessage(`{ "timestamp": 1699123456.0, "message": "Hello from KV store!" }`), true, nil
		}

		outcome := runProbe(t, KVStore, fake)
		assert.True(t, outcome.Success)
	})

	t.Run("absent after store", func(t *testing.T) {
		fake := hosttest.New()
		fake.KVReadFunc = func(string, string) (json.RawMessage, bool, error) { return nil, false, nil }

		outcome := runProbe(t, KVStore, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "value not found after storing", *outcome.ErrorMessage)
		assert.Equal(t, FailureLogical, outcome.FailureKind)
	})

	t.Run("mismatch", func(t *testing.T) {
		fake := hosttest.New()
		fake.KVReadFunc = func(string, string) (json.RawMessage, bool, error) {
			return json.RawMessage(`{"message":"other","timestamp":1699123456}`), true, nil
		}

		outcome := runProbe(t, KVStore, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "Retrieved value doesn't match stored value", *outcome.ErrorMessage)
		assert.Equal(t, "false", outcome.Details["values_match"])
	})

	t.Run("store error", func(t *testing.T) {
		fake := hosttest.New()
		fake.KVStoreFunc = func(string, string, json.RawMessage) error { return errBoom }

		outcome := runProbe(t, KVStore, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "failed to store KV value: boom", *outcome.ErrorMessage)
		assert.Equal(t, []string{hosttest.OpKVStore}, fake.Ops())
	})

	t.Run("read error", func(t *testing.T) {
		fake := hosttest.New()
		fake.KVReadFunc = func(string, string) (json.RawMessage, bool, error) { return nil, false, errBoom }

		outcome := runProbe(t, KVStore, fake)
		require.False(t, outcome.Success)
		assert.Equal(t, "failed to read KV value: boom", *outcome.ErrorMessage)
	})
}
