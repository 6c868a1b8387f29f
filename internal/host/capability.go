// Package host defines the storage capability boundary exercised by the probe suite
// and ships an in-process reference implementation backed by SQLite and badger.
package host

import (
	"context"
	"encoding/json"
)

// Capability is the set of relational and key-value operations a host exposes to a guest.
// Implementations may block; callers issue one call at a time.
type Capability interface {
	Execute(ctx context.Context, sql string, params []TypedParam) (*ExecResult, error)
	Query(ctx context.Context, sql string, params []TypedParam) (*QueryResult, error)
	// ListTables returns the table names serialized as a JSON array.
	ListTables(ctx context.Context) (string, error)
	DescribeTable(ctx context.Context, name string) (*TableInfo, error)
	Explain(ctx context.Context, sql string, params []TypedParam) (*QueryExplanation, error)
	Stats(ctx context.Context) (*DatabaseStats, error)

	BeginTransaction(ctx context.Context) (*TransactionResult, error)
	CommitTransaction(ctx context.Context, transactionID string) (*TransactionResult, error)
	RollbackTransaction(ctx context.Context, transactionID string) (*TransactionResult, error)

	KVStore(ctx context.Context, keyspace, key string, value json.RawMessage) error
	// KVRead returns found=false when the key is absent.
	KVRead(ctx context.Context, keyspace, key string) (value json.RawMessage, found bool, err error)
}

// ExecResult is returned by statements that do not produce rows.
type ExecResult struct {
	RowsAffected  int64   `json:"rowsAffected"`
	LastInsertID  *int64  `json:"lastInsertRowid,omitempty"`
	EngineVersion string  `json:"sqliteVersion"`
	ElapsedMs     float64 `json:"executionTimeMs"`
}

// QueryResult is returned by row-producing statements.
type QueryResult struct {
	Rows          []map[string]interface{} `json:"data"`
	Columns       []ColumnInfo             `json:"columns"`
	RowsReturned  int64                    `json:"rowsReturned"`
	ElapsedMs     float64                  `json:"executionTimeMs"`
	QueryPlan     string                   `json:"queryPlan,omitempty"`
	EngineVersion string                   `json:"sqliteVersion"`
}

// ColumnInfo describes a single result or table column.
type ColumnInfo struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Nullable      bool    `json:"nullable"`
	PrimaryKey    bool    `json:"primaryKey"`
	AutoIncrement bool    `json:"autoIncrement"`
	DefaultValue  *string `json:"defaultValue,omitempty"`
}

// IndexInfo describes a table index.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableInfo is the structure of a single table.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
	Indexes []IndexInfo  `json:"indexes"`
}

// QueryExplanation is the host's plan and estimate for a statement.
type QueryExplanation struct {
	QueryPlan     string  `json:"queryPlan"`
	EstimatedCost float64 `json:"estimatedCost"`
	EstimatedRows int64   `json:"estimatedRows"`
	EngineVersion string  `json:"sqliteVersion"`
}

// DatabaseStats are aggregate statistics kept by the host.
type DatabaseStats struct {
	TotalQueries     int64            `json:"totalQueries"`
	TotalElapsedMs   float64          `json:"totalExecutionTimeMs"`
	AverageElapsedMs float64          `json:"averageExecutionTimeMs"`
	P99ElapsedMs     float64          `json:"p99ExecutionTimeMs"`
	QueryCountByType map[string]int64 `json:"queryCountByType"`
	SizeBytes        int64            `json:"databaseSizeBytes"`
	EngineVersion    string           `json:"sqliteVersion"`
}

// TransactionResult acknowledges a transaction boundary call.
type TransactionResult struct {
	TransactionID string `json:"transactionId"`
	Success       bool   `json:"success"`
}
