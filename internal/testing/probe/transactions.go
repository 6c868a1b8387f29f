package probe

import (
	"context"
	"strconv"

	"github.com/ethpandaops/storage-probe/internal/host"
)

// begin opens a transaction and returns its identifier. No other capability call is
// made when it fails.
func begin(ctx context.Context, c host.Capability) (string, error) {
	tx, err := c.BeginTransaction(ctx)
	if err != nil {
		return "", transportFailure("failed to begin transaction", err)
	}

	if tx == nil {
		return "", malformedFailure("failed to begin transaction", errEmptyResponse)
	}

	if !tx.Success {
		return "", notAcknowledged("failed to begin transaction")
	}

	return tx.TransactionID, nil
}

// runTransactions inserts inside a transaction and commits it. A failed insert is
// rolled back instead, so each begin gets exactly one terminating call.
func runTransactions(ctx context.Context, c host.Capability) (Details, error) {
	id, err := begin(ctx, c)
	if err != nil {
		return nil, err
	}

	details := Details{"transaction_id": id}

	if _, err := c.Execute(ctx, insertUserSQL, userParams("Jane Doe", "jane@example.com", 28)); err != nil {
		// The insert error is what gets reported; the rollback result is not consulted.
		_, _ = c.RollbackTransaction(ctx, id)
		details["committed"] = "false"

		return details, transportFailure("failed to insert in transaction", err)
	}

	res, err := c.CommitTransaction(ctx, id)
	if err != nil {
		details["committed"] = "false"
		return details, transportFailure("failed to commit transaction", err)
	}

	if res == nil {
		details["committed"] = "false"
		return details, malformedFailure("failed to commit transaction", errEmptyResponse)
	}

	details["committed"] = strconv.FormatBool(res.Success)
	if !res.Success {
		return details, notAcknowledged("failed to commit transaction")
	}

	return details, nil
}

// runTransactionRollback always ends its transaction with a rollback. The verdict is
// the rollback acknowledgement regardless of whether the insert succeeded.
func runTransactionRollback(ctx context.Context, c host.Capability) (Details, error) {
	id, err := begin(ctx, c)
	if err != nil {
		return nil, err
	}

	details := Details{"transaction_id": id}

	if _, err := c.Execute(ctx, insertUserSQL, userParams("Rollback User", "rollback@example.com", 99)); err != nil {
		details["insert_error"] = err.Error()
	}

	res, err := c.RollbackTransaction(ctx, id)
	if err != nil {
		details["rolled_back"] = "false"
		return details, transportFailure("failed to roll back transaction", err)
	}

	if res == nil {
		details["rolled_back"] = "false"
		return details, malformedFailure("failed to roll back transaction", errEmptyResponse)
	}

	details["rolled_back"] = strconv.FormatBool(res.Success)
	if !res.Success {
		return details, notAcknowledged("failed to roll back transaction")
	}

	return details, nil
}
