package benchmark

import (
	"encoding/json"
	"fmt"
	"time"
)

// Polarity says which direction of a metric counts as better.
type Polarity int

const (
	// SmallerIsBetter is the "customSmallerIsBetter" tool (latencies, durations).
	SmallerIsBetter Polarity = iota + 1
	// LargerIsBetter is the "customBiggerIsBetter" tool (throughput, rates).
	LargerIsBetter
)

const (
	toolSmallerIsBetter = "customSmallerIsBetter"
	toolBiggerIsBetter  = "customBiggerIsBetter"
)

// ParsePolarity maps a wire tool name to a Polarity.
func ParsePolarity(tool string) (Polarity, error) {
	switch tool {
	case toolSmallerIsBetter:
		return SmallerIsBetter, nil
	case toolBiggerIsBetter:
		return LargerIsBetter, nil
	default:
		return 0, fmt.Errorf("unknown tool %q", tool)
	}
}

// Valid reports whether p is one of the two known polarities.
func (p Polarity) Valid() bool {
	return p == SmallerIsBetter || p == LargerIsBetter
}

// String returns the wire tool name.
func (p Polarity) String() string {
	switch p {
	case SmallerIsBetter:
		return toolSmallerIsBetter
	case LargerIsBetter:
		return toolBiggerIsBetter
	default:
		return "unknown"
	}
}

// Worse reports whether a is worse than b under this polarity.
func (p Polarity) Worse(a, b float64) bool {
	switch p {
	case SmallerIsBetter:
		return a > b
	case LargerIsBetter:
		return a < b
	default:
		panic(fmt.Sprintf("benchmark: invalid polarity %d", int(p)))
	}
}

func (p Polarity) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid polarity %d", int(p))
	}
	return json.Marshal(p.String())
}

func (p *Polarity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePolarity(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Person is a commit author or committer as reported by the VCS provider.
type Person struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Commit is the source-control revision an entry was measured at.
type Commit struct {
	Author    Person `json:"author"`
	Committer Person `json:"committer"`
	Distinct  *bool  `json:"distinct,omitempty"`
	ID        string `json:"id" validate:"required"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // ISO-8601, descriptive only
	TreeID    string `json:"tree_id,omitempty"`
	URL       string `json:"url"`
}

// Time parses Timestamp. A zero time is returned when it is empty.
func (c Commit) Time() (time.Time, error) {
	if c.Timestamp == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, c.Timestamp)
}

// Sample is one named measurement inside an entry.
type Sample struct {
	Name  string  `json:"name" validate:"required"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Extra string  `json:"extra,omitempty"`
}

// Entry is one CI run's result set for one suite.
type Entry struct {
	Commit     Commit
	RecordedAt time.Time
	Tool       Polarity
	Samples    []Sample `validate:"required,min=1,dive"`
}

type wireEntry struct {
	Commit  Commit   `json:"commit"`
	Date    int64    `json:"date"`
	Tool    Polarity `json:"tool"`
	Benches []Sample `json:"benches"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Commit:  e.Commit,
		Date:    ToMillis(e.RecordedAt),
		Tool:    e.Tool,
		Benches: e.Samples,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entry{
		Commit:     w.Commit,
		RecordedAt: FromMillis(w.Date),
		Tool:       w.Tool,
		Samples:    w.Benches,
	}
	return nil
}

// Key identifies an entry for idempotent ingestion within a suite.
func (e Entry) Key() EntryKey {
	return EntryKey{CommitID: e.Commit.ID, RecordedAt: ToMillis(e.RecordedAt)}
}

// Sample returns the sample with the given name.
func (e Entry) Sample(name string) (Sample, bool) {
	for _, s := range e.Samples {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

// SameSamples reports whether both entries carry identical tool and samples.
func (e Entry) SameSamples(other Entry) bool {
	if e.Tool != other.Tool || len(e.Samples) != len(other.Samples) {
		return false
	}
	for i := range e.Samples {
		if e.Samples[i] != other.Samples[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers cannot alias stored samples.
func (e Entry) Clone() Entry {
	out := e
	out.Samples = append([]Sample(nil), e.Samples...)
	if e.Commit.Distinct != nil {
		d := *e.Commit.Distinct
		out.Commit.Distinct = &d
	}
	return out
}

// EntryKey is the (commitId, recordedAt) dedup key. RecordedAt is epoch milliseconds,
// the resolution the wire format keeps.
type EntryKey struct {
	CommitID   string
	RecordedAt int64
}

// Series is the ordered entry list of one suite.
type Series struct {
	Suite   string
	Entries []Entry
}

// Len returns the number of entries.
func (s Series) Len() int { return len(s.Entries) }

// Index returns the position of the entry with the given key, or -1.
func (s Series) Index(key EntryKey) int {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Key() == key {
			return i
		}
	}
	return -1
}

// History is the persisted aggregate: every suite of one repository.
type History struct {
	RepoURL    string             `json:"repoUrl"`
	LastUpdate time.Time          `json:"-"`
	Entries    map[string][]Entry `json:"entries"`
}

type wireHistory struct {
	LastUpdate int64              `json:"lastUpdate"`
	RepoURL    string             `json:"repoUrl"`
	Entries    map[string][]Entry `json:"entries"`
}

func (h History) MarshalJSON() ([]byte, error) {
	entries := h.Entries
	if entries == nil {
		entries = map[string][]Entry{}
	}
	return json.Marshal(wireHistory{
		LastUpdate: ToMillis(h.LastUpdate),
		RepoURL:    h.RepoURL,
		Entries:    entries,
	})
}

func (h *History) UnmarshalJSON(data []byte) error {
	var w wireHistory
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Entries == nil {
		w.Entries = map[string][]Entry{}
	}
	*h = History{
		RepoURL:    w.RepoURL,
		LastUpdate: FromMillis(w.LastUpdate),
		Entries:    w.Entries,
	}
	return nil
}

// MaxRecordedAt returns the latest RecordedAt across all suites.
func (h History) MaxRecordedAt() time.Time {
	var max time.Time
	for _, entries := range h.Entries {
		for _, e := range entries {
			if e.RecordedAt.After(max) {
				max = e.RecordedAt
			}
		}
	}
	return max
}

// ToMillis converts t to epoch milliseconds; the zero time maps to 0.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis is the inverse of ToMillis.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
