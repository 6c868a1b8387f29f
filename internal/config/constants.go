package config

const (
	// EnvDataDir is the base directory for persistent host state. Empty means in-memory.
	EnvDataDir = "STORAGE_PROBE_DATA_DIR"
	// EnvSQLitePath overrides the relational database file.
	EnvSQLitePath = "STORAGE_PROBE_SQLITE_PATH"
	// EnvKVPath overrides the key-value store directory.
	EnvKVPath = "STORAGE_PROBE_KV_PATH"
	// EnvHistoryPath overrides the run history directory.
	EnvHistoryPath = "STORAGE_PROBE_HISTORY_PATH"
	// EnvHistoryRetention is the number of runs kept in history.
	EnvHistoryRetention = "STORAGE_PROBE_HISTORY_RETENTION"
	// EnvReportFormat selects the report encoding (json or yaml).
	EnvReportFormat = "STORAGE_PROBE_REPORT_FORMAT"
	// EnvSuiteName overrides the report name.
	EnvSuiteName = "STORAGE_PROBE_SUITE_NAME"

	// SQLiteFile is the database file name inside the data directory.
	SQLiteFile = "db.sqlite"
	// KVDir is the key-value directory name inside the data directory.
	KVDir = "kv"
	// HistoryDir is the history directory name inside the data directory.
	HistoryDir = "history"

	// DefaultReportFormat is used when no format is configured.
	DefaultReportFormat = "json"
	// DefaultHistoryRetention is the number of runs kept when not configured.
	DefaultHistoryRetention = 500
)
