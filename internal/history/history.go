// Package history keeps an append-only log of serialized run reports.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/wal"
)

// DefaultRetention is the number of runs kept when no limit is configured.
const DefaultRetention = 500

var (
	// ErrNotFound is returned for an index outside the stored range.
	ErrNotFound = errors.New("history entry not found")
	// ErrInvalidPayload is returned when a report payload is not valid JSON.
	ErrInvalidPayload = errors.New("history payload must be valid JSON")
)

// Record is one stored run.
type Record struct {
	Index      uint64          `json:"-"`
	RecordedAt time.Time       `json:"recordedAt"`
	Report     json.RawMessage `json:"report"`
}

// Headline is the subset of a report shown in listings.
type Headline struct {
	Name           string
	Success        bool
	TotalElapsedMs float64
	Failed         int
}

// Headline decodes the listing fields from the stored report.
func (r *Record) Headline() (Headline, error) {
	var raw struct {
		Name    string `json:"testName"`
		Success bool   `json:"success"`
		Results []struct {
			Success bool `json:"success"`
		} `json:"results"`
		Summary struct {
			TotalElapsedMs float64 `json:"totalExecutionTimeMs"`
		} `json:"performanceSummary"`
	}

	if err := json.Unmarshal(r.Report, &raw); err != nil {
		return Headline{}, fmt.Errorf("decoding report %d: %w", r.Index, err)
	}

	h := Headline{Name: raw.Name, Success: raw.Success, TotalElapsedMs: raw.Summary.TotalElapsedMs}
	for _, res := range raw.Results {
		if !res.Success {
			h.Failed++
		}
	}

	return h, nil
}

// Store is a run history backed by a segmented write-ahead log.
type Store struct {
	log       logrus.FieldLogger
	mu        sync.Mutex
	wal       *wal.Log
	retention uint64
}

// Open opens (or creates) the history log in dir. A retention of 0 uses DefaultRetention.
func Open(log logrus.FieldLogger, dir string, retention uint64) (*Store, error) {
	w, err := wal.Open(dir, &wal.Options{
		NoCopy: true,
	})
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "could not open history log")
	}

	if retention == 0 {
		retention = DefaultRetention
	}

	return &Store{
		log:       log.WithField("component", "history"),
		wal:       w,
		retention: retention,
	}, nil
}

// Append stores a serialized report and returns its index.
func (s *Store) Append(recordedAt time.Time, report []byte) (uint64, error) {
	if !json.Valid(report) {
		return 0, ErrInvalidPayload
	}

	data, err := json.Marshal(Record{RecordedAt: recordedAt.UTC(), Report: report})
	if err != nil {
		return 0, fmt.Errorf("encoding history record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.wal.LastIndex()
	if err != nil {
		return 0, pkgerrors.WithMessage(err, "could not read last index")
	}

	// tidwall/wal indexes start at 1.
	index := last + 1
	if err := s.wal.Write(index, data); err != nil {
		return 0, pkgerrors.WithMessagef(err, "could not write index %d", index)
	}

	if err := s.truncate(index); err != nil {
		return index, err
	}

	s.log.WithField("index", index).Debug("recorded run")

	return index, nil
}

func (s *Store) truncate(last uint64) error {
	if last <= s.retention {
		return nil
	}

	first, err := s.wal.FirstIndex()
	if err != nil {
		return pkgerrors.WithMessage(err, "could not read first index")
	}

	keepFrom := last - s.retention + 1
	if keepFrom <= first {
		return nil
	}

	if err := s.wal.TruncateFront(keepFrom); err != nil {
		return pkgerrors.WithMessagef(err, "could not truncate history before %d", keepFrom)
	}

	return nil
}

// Get returns the record at index.
func (s *Store) Get(index uint64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(index)
}

func (s *Store) read(index uint64) (*Record, error) {
	data, err := s.wal.Read(index)
	if err != nil {
		if errors.Is(err, wal.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, index)
		}

		return nil, pkgerrors.WithMessagef(err, "could not read index %d", index)
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, pkgerrors.WithMessage(err, "error decoding history record, is the log corrupt?")
	}

	rec.Index = index

	return rec, nil
}

// Last returns up to n most recent records, newest first.
func (s *Store) Last(n int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, err := s.wal.FirstIndex()
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "could not read first index")
	}

	if first == 0 || n <= 0 {
		// Log is empty
		return []*Record{}, nil
	}

	last, err := s.wal.LastIndex()
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "could not read last index")
	}

	records := make([]*Record, 0, n)
	for i := last; i >= first && len(records) < n; i-- {
		rec, err := s.read(i)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// Close flushes and closes the log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Close(); err != nil {
		return pkgerrors.WithMessage(err, "could not close history log")
	}

	return nil
}
