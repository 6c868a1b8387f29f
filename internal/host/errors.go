package host

import "errors"

var (
	// ErrUnknownTypeHint is returned when a parameter carries an unsupported type hint.
	ErrUnknownTypeHint = errors.New("unknown type hint")
	// ErrTransactionActive is returned by BeginTransaction while another transaction is open.
	ErrTransactionActive = errors.New("transaction already active")
	// ErrUnknownTransaction is returned when commit/rollback names a transaction that is not open.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrInvalidKeyspace is returned for empty keyspace or key names, or a keyspace containing NUL.
	ErrInvalidKeyspace = errors.New("keyspace and key must be non-empty and keyspace must not contain NUL")
	// ErrInvalidValue is returned when a KV value is not valid JSON.
	ErrInvalidValue = errors.New("value is not valid JSON")
	// ErrNoSuchTable is returned by DescribeTable for a table that does not exist.
	ErrNoSuchTable = errors.New("no such table")
	// ErrClosed is returned after the host has been closed.
	ErrClosed = errors.New("host closed")
)
