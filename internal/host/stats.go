package host

import (
	"strings"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds.
const hdrScaleFactor = 1e3

// queryStats tracks per-call timing for the relational store.
type queryStats struct {
	mu          sync.Mutex
	total       int64
	totalMs     float64
	countByType map[string]int64
	latency     *hdrhistogram.Histogram
}

func newQueryStats() *queryStats {
	return &queryStats{
		countByType: make(map[string]int64),
		latency:     hdrhistogram.New(1, 3600000000, 3),
	}
}

func (s *queryStats) record(sql string, elapsedMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.totalMs += elapsedMs
	s.countByType[statementType(sql)]++

	// Values beyond the histogram range are dropped from the distribution only.
	_ = s.latency.RecordValue(int64(elapsedMs * hdrScaleFactor))
}

func (s *queryStats) snapshot() (total int64, totalMs, avgMs float64, byType map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType = make(map[string]int64, len(s.countByType))
	for k, v := range s.countByType {
		byType[k] = v
	}

	if s.total > 0 {
		avgMs = s.totalMs / float64(s.total)
	}

	return s.total, s.totalMs, avgMs, byType
}

// p99Ms returns the 99th percentile call latency in milliseconds.
func (s *queryStats) p99Ms() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return float64(s.latency.ValueAtQuantile(99.0)) / hdrScaleFactor
}

// statementType classifies a statement by its leading keyword.
func statementType(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "OTHER"
	}

	switch kw := strings.ToUpper(fields[0]); kw {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "BEGIN", "COMMIT", "ROLLBACK", "PRAGMA", "EXPLAIN":
		return kw
	default:
		return "OTHER"
	}
}
