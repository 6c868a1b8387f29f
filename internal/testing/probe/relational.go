package probe

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ethpandaops/storage-probe/internal/host"
)

const (
	testTable = "test_users"

	createTableSQL = `CREATE TABLE test_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		age INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	insertUserSQL  = "INSERT INTO test_users (name, email, age) VALUES (?, ?, ?)"
	queryUsersSQL  = "SELECT id, name, email, age FROM test_users WHERE age > ?"
	explainUserSQL = "SELECT * FROM test_users WHERE age > 25 ORDER BY name"

	minQueryAge = 25
)

func userParams(name, email string, age int64) []host.TypedParam {
	return []host.TypedParam{host.Text(name), host.Text(email), host.Integer(age)}
}

func runListTables(ctx context.Context, c host.Capability) (Details, error) {
	raw, err := c.ListTables(ctx)
	if err != nil {
		return nil, transportFailure("failed to list tables", err)
	}

	var tables []string
	if err := json.Unmarshal([]byte(raw), &tables); err != nil {
		return nil, malformedFailure("failed to parse tables JSON", err)
	}

	return Details{
		"tables_json": raw,
		"table_count": strconv.Itoa(len(tables)),
	}, nil
}

func runCreateTable(ctx context.Context, c host.Capability) (Details, error) {
	res, err := c.Execute(ctx, createTableSQL, nil)
	if err != nil {
		return nil, transportFailure("failed to create table", err)
	}

	if res == nil {
		return nil, malformedFailure("failed to create table", errEmptyResponse)
	}

	return Details{
		"rows_affected":  strconv.FormatInt(res.RowsAffected, 10),
		"engine_version": res.EngineVersion,
	}, nil
}

func runDescribeTable(ctx context.Context, c host.Capability) (Details, error) {
	info, err := c.DescribeTable(ctx, testTable)
	if err != nil {
		return nil, transportFailure("failed to describe table", err)
	}

	if info == nil {
		return nil, malformedFailure("failed to describe table", errEmptyResponse)
	}

	return Details{
		"table_name":   info.Name,
		"column_count": strconv.Itoa(len(info.Columns)),
		"index_count":  strconv.Itoa(len(info.Indexes)),
	}, nil
}

func runInsertData(ctx context.Context, c host.Capability) (Details, error) {
	res, err := c.Execute(ctx, insertUserSQL, userParams("John Doe", "john@example.com", 30))
	if err != nil {
		return nil, transportFailure("failed to insert data", err)
	}

	if res == nil {
		return nil, malformedFailure("failed to insert data", errEmptyResponse)
	}

	lastID := "none"
	if res.LastInsertID != nil {
		lastID = strconv.FormatInt(*res.LastInsertID, 10)
	}

	return Details{
		"rows_affected":  strconv.FormatInt(res.RowsAffected, 10),
		"last_insert_id": lastID,
	}, nil
}

func runQueryEnhanced(ctx context.Context, c host.Capability) (Details, error) {
	res, err := c.Query(ctx, queryUsersSQL, []host.TypedParam{host.Integer(minQueryAge)})
	if err != nil {
		return nil, transportFailure("failed to query data", err)
	}

	if res == nil {
		return nil, malformedFailure("failed to query data", errEmptyResponse)
	}

	return Details{
		"rows_returned":     strconv.FormatInt(res.RowsReturned, 10),
		"column_count":      strconv.Itoa(len(res.Columns)),
		"execution_time_ms": formatFloat(res.ElapsedMs),
	}, nil
}

func runExplainQuery(ctx context.Context, c host.Capability) (Details, error) {
	exp, err := c.Explain(ctx, explainUserSQL, nil)
	if err != nil {
		return nil, transportFailure("failed to explain query", err)
	}

	if exp == nil {
		return nil, malformedFailure("failed to explain query", errEmptyResponse)
	}

	return Details{
		"estimated_cost": formatFloat(exp.EstimatedCost),
		"estimated_rows": strconv.FormatInt(exp.EstimatedRows, 10),
		"engine_version": exp.EngineVersion,
		"query_plan":     exp.QueryPlan,
	}, nil
}

func runGetStats(ctx context.Context, c host.Capability) (Details, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, transportFailure("failed to get database stats", err)
	}

	if stats == nil {
		return nil, malformedFailure("failed to get database stats", errEmptyResponse)
	}

	return Details{
		"total_queries":             strconv.FormatInt(stats.TotalQueries, 10),
		"database_size_bytes":       strconv.FormatInt(stats.SizeBytes, 10),
		"average_execution_time_ms": formatFloat(stats.AverageElapsedMs),
		"engine_version":            stats.EngineVersion,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
