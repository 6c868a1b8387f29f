package host

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
	"github.com/sirupsen/logrus"
)

const (
	memoryPragmas = `
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = MEMORY;
		PRAGMA synchronous = FULL;
		PRAGMA temp_store = MEMORY;
		PRAGMA cache_size = -64000;`

	filePragmas = `
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA cache_size = -64000;
		PRAGMA busy_timeout = 30000;`

	listTablesSQL = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
)

// SQLStore is the relational half of the reference host, backed by a single SQLite connection.
// At most one transaction is open at a time; while it is open every statement runs inside it.
type SQLStore struct {
	log     logrus.FieldLogger
	path    string
	version string
	stats   *queryStats

	mu   sync.Mutex
	db   *sqlx.DB
	tx   *sqlx.Tx
	txID string
}

// OpenSQLStore opens the database at path, or a private in-memory database when path is empty.
func OpenSQLStore(ctx context.Context, log logrus.FieldLogger, path string) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:storage-probe-%s?mode=memory&cache=shared", uuid.NewString())
	pragmas := memoryPragmas

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}

		dsn = "file:" + path
		pragmas = filePragmas
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single long-lived connection keeps the in-memory database and any open transaction alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite pragmas: %w", err)
	}

	var version string
	if err := db.GetContext(ctx, &version, "SELECT sqlite_version()"); err != nil {
		version = "unknown"
	}

	s := &SQLStore{
		log:     log.WithField("component", "sqlstore"),
		path:    path,
		version: version,
		stats:   newQueryStats(),
		db:      db,
	}

	s.log.WithFields(logrus.Fields{
		"path":    displayPath(path),
		"version": version,
	}).Debug("sqlite store opened")

	return s, nil
}

// Close rolls back any open transaction and closes the database.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx, s.txID = nil, ""
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing sqlite database: %w", err)
	}

	return nil
}

// ext returns the open transaction when there is one. Callers hold s.mu.
func (s *SQLStore) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}

	return s.db
}

// Execute runs a statement that produces no rows.
func (s *SQLStore) Execute(ctx context.Context, query string, params []TypedParam) (*ExecResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	res, err := s.ext().ExecContext(ctx, query, bindAll(params)...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}

	result := &ExecResult{
		RowsAffected:  affected,
		EngineVersion: s.version,
	}

	if statementType(query) == "INSERT" {
		if id, idErr := res.LastInsertId(); idErr == nil {
			result.LastInsertID = &id
		}
	}

	result.ElapsedMs = elapsedMs(start)
	s.stats.record(query, result.ElapsedMs)

	return result, nil
}

// Query runs a row-producing statement and returns every row.
func (s *SQLStore) Query(ctx context.Context, query string, params []TypedParam) (*QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	args := bindAll(params)

	var plan string
	if statementType(query) == "SELECT" {
		if steps, err := s.queryPlan(ctx, query, args); err == nil {
			plan = strings.Join(steps, " -> ")
		}
	}

	rows, err := s.ext().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	columns := make([]ColumnInfo, 0, len(colTypes))
	for _, ct := range colTypes {
		declType := ct.DatabaseTypeName()
		if declType == "" {
			declType = "UNKNOWN"
		}

		nullable, ok := ct.Nullable()
		columns = append(columns, ColumnInfo{
			Name:     ct.Name(),
			Type:     declType,
			Nullable: nullable || !ok,
		})
	}

	result := &QueryResult{
		Rows:          make([]map[string]interface{}, 0),
		Columns:       columns,
		QueryPlan:     plan,
		EngineVersion: s.version,
	}

	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		for k, v := range row {
			row[k] = jsonValue(v)
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	result.RowsReturned = int64(len(result.Rows))
	result.ElapsedMs = elapsedMs(start)
	s.stats.record(query, result.ElapsedMs)

	return result, nil
}

// ListTables returns the user table names as a JSON array.
func (s *SQLStore) ListTables(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]string, 0)
	if err := sqlx.SelectContext(ctx, s.ext(), &tables, listTablesSQL); err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}

	b, err := json.Marshal(tables)
	if err != nil {
		return "", fmt.Errorf("encoding table list: %w", err)
	}

	return string(b), nil
}

// DescribeTable returns the columns and indexes of a table.
func (s *SQLStore) DescribeTable(ctx context.Context, name string) (*TableInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	colRows, err := s.pragmaRows(ctx, "table_info", name)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", name, err)
	}

	if len(colRows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
	}

	info := &TableInfo{
		Name:    name,
		Columns: make([]ColumnInfo, 0, len(colRows)),
		Indexes: make([]IndexInfo, 0),
	}

	for _, row := range colRows {
		col := ColumnInfo{
			Name:       asString(row["name"]),
			Type:       asString(row["type"]),
			Nullable:   !asBool(row["notnull"]),
			PrimaryKey: asBool(row["pk"]),
		}

		if row["dflt_value"] != nil {
			def := asString(row["dflt_value"])
			col.DefaultValue = &def
		}

		info.Columns = append(info.Columns, col)
	}

	idxRows, err := s.pragmaRows(ctx, "index_list", name)
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %s: %w", name, err)
	}

	for _, row := range idxRows {
		idxName := asString(row["name"])

		idxCols, err := s.pragmaRows(ctx, "index_info", idxName)
		if err != nil {
			return nil, fmt.Errorf("reading index %s: %w", idxName, err)
		}

		idx := IndexInfo{
			Name:    idxName,
			Columns: make([]string, 0, len(idxCols)),
			Unique:  asBool(row["unique"]),
		}

		for _, c := range idxCols {
			idx.Columns = append(idx.Columns, asString(c["name"]))
		}

		info.Indexes = append(info.Indexes, idx)
	}

	return info, nil
}

// Explain returns the query plan for a statement. SQLite does not expose cost or row
// estimates, so both are reported as zero.
func (s *SQLStore) Explain(ctx context.Context, query string, params []TypedParam) (*QueryExplanation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, err := s.queryPlan(ctx, query, bindAll(params))
	if err != nil {
		return nil, fmt.Errorf("explaining query: %w", err)
	}

	return &QueryExplanation{
		QueryPlan:     strings.Join(steps, "\n"),
		EngineVersion: s.version,
	}, nil
}

// Stats returns the accumulated query statistics and the database size.
func (s *SQLStore) Stats(ctx context.Context) (*DatabaseStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pageCount, pageSize int64
	if err := sqlx.GetContext(ctx, s.ext(), &pageCount, "PRAGMA page_count"); err != nil {
		return nil, fmt.Errorf("reading page count: %w", err)
	}

	if err := sqlx.GetContext(ctx, s.ext(), &pageSize, "PRAGMA page_size"); err != nil {
		return nil, fmt.Errorf("reading page size: %w", err)
	}

	total, totalMs, avgMs, byType := s.stats.snapshot()

	return &DatabaseStats{
		TotalQueries:     total,
		TotalElapsedMs:   totalMs,
		AverageElapsedMs: avgMs,
		P99ElapsedMs:     s.stats.p99Ms(),
		QueryCountByType: byType,
		SizeBytes:        pageCount * pageSize,
		EngineVersion:    s.version,
	}, nil
}

// BeginTransaction opens the single transaction slot.
func (s *SQLStore) BeginTransaction(ctx context.Context) (*TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, fmt.Errorf("beginning transaction: %w", ErrTransactionActive)
	}

	// The transaction outlives this call, so it must not be bound to the caller's context.
	tx, err := s.db.BeginTxx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	s.tx = tx
	s.txID = "tx_" + uuid.NewString()

	s.log.WithField("transaction_id", s.txID).Debug("transaction started")

	return &TransactionResult{TransactionID: s.txID, Success: true}, nil
}

// CommitTransaction commits the open transaction named by id.
func (s *SQLStore) CommitTransaction(_ context.Context, id string) (*TransactionResult, error) {
	return s.finish(id, "commit", func(tx *sqlx.Tx) error { return tx.Commit() })
}

// RollbackTransaction rolls back the open transaction named by id.
func (s *SQLStore) RollbackTransaction(_ context.Context, id string) (*TransactionResult, error) {
	return s.finish(id, "rollback", func(tx *sqlx.Tx) error { return tx.Rollback() })
}

func (s *SQLStore) finish(id, action string, fn func(*sqlx.Tx) error) (*TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil || id != s.txID {
		return nil, fmt.Errorf("%s transaction %q: %w", action, id, ErrUnknownTransaction)
	}

	tx := s.tx
	s.tx, s.txID = nil, ""

	if err := fn(tx); err != nil {
		return nil, fmt.Errorf("%s transaction %q: %w", action, id, err)
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": id,
		"action":         action,
	}).Debug("transaction finished")

	return &TransactionResult{TransactionID: id, Success: true}, nil
}

// queryPlan runs EXPLAIN QUERY PLAN and renders each step as "id: detail". Callers hold s.mu.
func (s *SQLStore) queryPlan(ctx context.Context, query string, args []interface{}) ([]string, error) {
	rows, err := s.ext().QueryxContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]string, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}

		steps = append(steps, fmt.Sprintf("%s: %s", asString(row["id"]), asString(row["detail"])))
	}

	return steps, rows.Err()
}

// pragmaRows reads a table-valued PRAGMA into generic rows. Callers hold s.mu.
func (s *SQLStore) pragmaRows(ctx context.Context, pragma, arg string) ([]map[string]interface{}, error) {
	query := fmt.Sprintf("PRAGMA %s('%s')", pragma, strings.ReplaceAll(arg, "'", "''"))

	rows, err := s.ext().QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}

		out = append(out, row)
	}

	return out, rows.Err()
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
}

// jsonValue converts driver values into JSON-friendly ones.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return val
	}
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case []byte:
		return string(val) == "1"
	case string:
		return val == "1"
	default:
		return false
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(in-memory)"
	}

	return path
}
