// Package hosttest provides a scriptable in-memory host.Capability for tests.
package hosttest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethpandaops/storage-probe/internal/host"
)

// Operation names recorded in Call.Op.
const (
	OpExecute       = "execute"
	OpQuery         = "query"
	OpListTables    = "list_tables"
	OpDescribeTable = "describe_table"
	OpExplain       = "explain"
	OpStats         = "stats"
	OpBegin         = "begin"
	OpCommit        = "commit"
	OpRollback      = "rollback"
	OpKVStore       = "kv_store"
	OpKVRead        = "kv_read"
)

// Call is one recorded capability invocation. Arg holds the SQL text, table name,
// transaction identifier or key, depending on the operation.
type Call struct {
	Op  string
	Arg string
}

// Fake answers every call with a plausible success unless the matching hook is set.
type Fake struct {
	ExecuteFunc    func(sql string, params []host.TypedParam) (*host.ExecResult, error)
	QueryFunc      func(sql string, params []host.TypedParam) (*host.QueryResult, error)
	ListTablesFunc func() (string, error)
	DescribeFunc   func(name string) (*host.TableInfo, error)
	ExplainFunc    func(sql string) (*host.QueryExplanation, error)
	StatsFunc      func() (*host.DatabaseStats, error)
	BeginFunc      func() (*host.TransactionResult, error)
	CommitFunc     func(id string) (*host.TransactionResult, error)
	RollbackFunc   func(id string) (*host.TransactionResult, error)
	KVStoreFunc    func(keyspace, key string, value json.RawMessage) error
	KVReadFunc     func(keyspace, key string) (json.RawMessage, bool, error)

	mu    sync.Mutex
	calls []Call
	txSeq int
	kv    map[string]json.RawMessage
}

// New returns a Fake with default behaviour.
func New() *Fake {
	return &Fake{kv: make(map[string]json.RawMessage)}
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Call, len(f.calls))
	copy(out, f.calls)

	return out
}

// Ops returns the recorded operation names in order.
func (f *Fake) Ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}

	return ops
}

func (f *Fake) record(op, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Arg: arg})
}

// Execute records the statement and returns ExecuteFunc's result or one affected row.
func (f *Fake) Execute(_ context.Context, sql string, params []host.TypedParam) (*host.ExecResult, error) {
	f.record(OpExecute, sql)
	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(sql, params)
	}

	id := int64(1)
	return &host.ExecResult{RowsAffected: 1, LastInsertID: &id, EngineVersion: "fake-1.0"}, nil
}

// Query records the statement and returns QueryFunc's result or a single row.
func (f *Fake) Query(_ context.Context, sql string, params []host.TypedParam) (*host.QueryResult, error) {
	f.record(OpQuery, sql)
	if f.QueryFunc != nil {
		return f.QueryFunc(sql, params)
	}

	return &host.QueryResult{
		Rows:          []map[string]interface{}{{"id": int64(1)}},
		Columns:       []host.ColumnInfo{{Name: "id", Type: "INTEGER"}},
		RowsReturned:  1,
		ElapsedMs:     0.5,
		EngineVersion: "fake-1.0",
	}, nil
}

// ListTables returns ListTablesFunc's result or an empty JSON array.
func (f *Fake) ListTables(_ context.Context) (string, error) {
	f.record(OpListTables, "")
	if f.ListTablesFunc != nil {
		return f.ListTablesFunc()
	}

	return "[]", nil
}

// DescribeTable returns DescribeFunc's result or a one-column table.
func (f *Fake) DescribeTable(_ context.Context, name string) (*host.TableInfo, error) {
	f.record(OpDescribeTable, name)
	if f.DescribeFunc != nil {
		return f.DescribeFunc(name)
	}

	return &host.TableInfo{
		Name:    name,
		Columns: []host.ColumnInfo{{Name: "id", Type: "INTEGER", PrimaryKey: true}},
		Indexes: []host.IndexInfo{},
	}, nil
}

// Explain returns ExplainFunc's result or a single-step scan plan.
func (f *Fake) Explain(_ context.Context, sql string, _ []host.TypedParam) (*host.QueryExplanation, error) {
	f.record(OpExplain, sql)
	if f.ExplainFunc != nil {
		return f.ExplainFunc(sql)
	}

	return &host.QueryExplanation{QueryPlan: "0: SCAN fake", EngineVersion: "fake-1.0"}, nil
}

// Stats returns StatsFunc's result or fixed statistics.
func (f *Fake) Stats(_ context.Context) (*host.DatabaseStats, error) {
	f.record(OpStats, "")
	if f.StatsFunc != nil {
		return f.StatsFunc()
	}

	return &host.DatabaseStats{QueryCountByType: map[string]int64{}, EngineVersion: "fake-1.0"}, nil
}

// BeginTransaction returns BeginFunc's result or a new tx_fake_N identifier.
func (f *Fake) BeginTransaction(_ context.Context) (*host.TransactionResult, error) {
	f.record(OpBegin, "")
	if f.BeginFunc != nil {
		return f.BeginFunc()
	}

	f.mu.Lock()
	f.txSeq++
	id := fmt.Sprintf("tx_fake_%d", f.txSeq)
	f.mu.Unlock()

	return &host.TransactionResult{TransactionID: id, Success: true}, nil
}

// CommitTransaction returns CommitFunc's result or an acknowledgement.
func (f *Fake) CommitTransaction(_ context.Context, id string) (*host.TransactionResult, error) {
	f.record(OpCommit, id)
	if f.CommitFunc != nil {
		return f.CommitFunc(id)
	}

	return &host.TransactionResult{TransactionID: id, Success: true}, nil
}

// RollbackTransaction returns RollbackFunc's result or an acknowledgement.
func (f *Fake) RollbackTransaction(_ context.Context, id string) (*host.TransactionResult, error) {
	f.record(OpRollback, id)
	if f.RollbackFunc != nil {
		return f.RollbackFunc(id)
	}

	return &host.TransactionResult{TransactionID: id, Success: true}, nil
}

// KVStore returns KVStoreFunc's error or stores the value in memory.
func (f *Fake) KVStore(_ context.Context, keyspace, key string, value json.RawMessage) error {
	f.record(OpKVStore, key)
	if f.KVStoreFunc != nil {
		return f.KVStoreFunc(keyspace, key, value)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[keyspace+"/"+key] = append(json.RawMessage(nil), value...)

	return nil
}

// KVRead returns KVReadFunc's result or the in-memory value.
func (f *Fake) KVRead(_ context.Context, keyspace, key string) (json.RawMessage, bool, error) {
	f.record(OpKVRead, key)
	if f.KVReadFunc != nil {
		return f.KVReadFunc(keyspace, key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[keyspace+"/"+key]

	return v, ok, nil
}

// Compile-time interface compliance check
var _ host.Capability = (*Fake)(nil)
