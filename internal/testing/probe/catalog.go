package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateProbe is returned when two catalog entries share an ID.
	ErrDuplicateProbe = errors.New("duplicate probe")
	// ErrDependencyOrder is returned when an entry depends on a later or unknown entry.
	ErrDependencyOrder = errors.New("probe depends on a probe that does not run before it")
	// ErrInvalidWeight is returned for non-positive query weights.
	ErrInvalidWeight = errors.New("probe weight must be positive")
)

// Catalog returns the probe battery in execution order. Each call returns a fresh slice.
func Catalog() []Probe {
	return []Probe{
		{ID: ListTables, Name: "List Tables", Weight: 1, Run: runListTables},
		{ID: CreateTable, Name: "Create Table", Weight: 1, Run: runCreateTable},
		{ID: DescribeTable, Name: "Describe Table", Weight: 1, DependsOn: []ID{CreateTable}, Run: runDescribeTable},
		{ID: InsertData, Name: "Insert Data", Weight: 1, DependsOn: []ID{CreateTable}, Run: runInsertData},
		{ID: QueryEnhanced, Name: "Query Enhanced", Weight: 1, DependsOn: []ID{InsertData}, Run: runQueryEnhanced},
		{ID: Transactions, Name: "Transactions", Weight: 3, DependsOn: []ID{CreateTable}, Run: runTransactions},
		{ID: ExplainQuery, Name: "Query Explanation", Weight: 1, DependsOn: []ID{CreateTable}, Run: runExplainQuery},
		{ID: GetStats, Name: "Database Stats", Weight: 1, Run: runGetStats},
		{ID: TransactionRollback, Name: "Transaction Rollback", Weight: 3, DependsOn: []ID{CreateTable, Transactions}, Run: runTransactionRollback},
		{ID: KVStore, Name: "KV Store", Weight: 2, Run: runKVStore},
	}
}

// TotalWeight sums the declared query weights.
func TotalWeight(probes []Probe) int {
	total := 0
	for _, p := range probes {
		total += p.Weight
	}

	return total
}

// ValidateOrder checks that IDs are unique, weights are positive and every
// dependency refers to an entry that runs earlier.
func ValidateOrder(probes []Probe) error {
	seen := make(map[ID]struct{}, len(probes))

	for i, p := range probes {
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: %s at position %d", ErrDuplicateProbe, p.ID, i)
		}

		if p.Weight <= 0 {
			return fmt.Errorf("%w: %s has weight %d", ErrInvalidWeight, p.ID, p.Weight)
		}

		for _, dep := range p.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrDependencyOrder, p.ID, dep)
			}
		}

		seen[p.ID] = struct{}{}
	}

	return nil
}
