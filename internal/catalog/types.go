package catalog

import "time"

// Record is one document-type row from the downloaded catalog dataset.
// EndDate is nil while the type is still registered.
type Record struct {
	OID       int64
	DocType   string
	Name      string
	StartDate time.Time
	EndDate   *time.Time
	Format    string
}

// Snapshot is one fully parsed catalog version. It is never mutated
// after construction; Manager replaces whole snapshots, so readers can
// hold one without locking.
type Snapshot struct {
	Version  string
	LoadedAt time.Time
	records  []Record
	byType   map[string][]int
}

func NewSnapshot(version string, records []Record) *Snapshot {
	s := &Snapshot{
		Version:  version,
		LoadedAt: time.Now(),
		records:  records,
		byType:   make(map[string][]int),
	}
	for i, r := range records {
		s.byType[r.DocType] = append(s.byType[r.DocType], i)
	}
	return s
}

func (s *Snapshot) Len() int { return len(s.records) }

// Records returns the full record list. Callers must not modify it.
func (s *Snapshot) Records() []Record { return s.records }

// ByType returns the records of one document type in dataset order.
func (s *Snapshot) ByType(docType string) []Record {
	idx := s.byType[docType]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = s.records[j]
	}
	return out
}
