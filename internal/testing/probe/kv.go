package probe

import (
	"context"
	"encoding/json"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/google/go-cmp/cmp"
)

const (
	kvKeyspace = "test_kv"
	kvKey      = "test_key"
)

// kvTestValue is the document written and read back by the KV probe.
var kvTestValue = map[string]interface{}{
	"message":   "Hello from KV store!",
	"timestamp": 1699123456,
}

func runKVStore(ctx context.Context, c host.Capability) (Details, error) {
	stored, err := json.Marshal(kvTestValue)
	if err != nil {
		return nil, malformedFailure("failed to encode KV value", err)
	}

	if err := c.KVStore(ctx, kvKeyspace, kvKey, stored); err != nil {
		return nil, transportFailure("failed to store KV value", err)
	}

	details := Details{"stored_successfully": "true"}

	got, found, err := c.KVRead(ctx, kvKeyspace, kvKey)
	if err != nil {
		details["retrieved_successfully"] = "false"
		return details, transportFailure("failed to read KV value", err)
	}

	if !found {
		details["retrieved_successfully"] = "false"
		return details, logicalFailure("value not found after storing")
	}

	details["retrieved_successfully"] = "true"

	if !jsonEqual(stored, got) {
		details["values_match"] = "false"
		return details, logicalFailure("Retrieved value doesn't match stored value")
	}

	details["values_match"] = "true"

	return details, nil
}

// jsonEqual compares two JSON documents structurally. Undecodable input is never equal.
func jsonEqual(a, b json.RawMessage) bool {
	var av, bv interface{}

	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}

	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}

	return cmp.Equal(av, bv)
}
