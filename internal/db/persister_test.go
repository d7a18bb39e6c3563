package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

const repoURL = "https://github.com/occlum/occlum"

func testEntry(commit string, ms int64, tool benchmark.Polarity, samples ...benchmark.Sample) benchmark.Entry {
	return benchmark.Entry{
		Commit: benchmark.Commit{
			Author:    benchmark.Person{Name: "Qi Zheng", Username: "qzheng527"},
			ID:        commit,
			Message:   "Add benchmark",
			Timestamp: "2022-12-22T10:37:38+08:00",
			URL:       repoURL + "/commit/" + commit,
		},
		RecordedAt: benchmark.FromMillis(ms),
		Tool:       tool,
		Samples:    samples,
	}
}

func sampleRecords() []history.AppendRecord {
	return []history.AppendRecord{
		{RepoURL: repoURL, Suite: "Sysbench Benchmark", Position: 0,
			Entry:      testEntry("9e1c6a6", 1671678721461, benchmark.SmallerIsBetter, benchmark.Sample{Name: "Minimum latency", Value: 0.09, Unit: "ms"}),
			LastUpdate: benchmark.FromMillis(1671678721461)},
		{RepoURL: repoURL, Suite: "Iperf3 Benchmark", Position: 0,
			Entry:      testEntry("9e1c6a6", 1671678722000, benchmark.LargerIsBetter, benchmark.Sample{Name: "Sender Average Rate", Value: 3658, Unit: "Mbits/sec"}),
			LastUpdate: benchmark.FromMillis(1671678722000)},
		{RepoURL: repoURL, Suite: "Sysbench Benchmark", Position: 1,
			Entry:      testEntry("b7f2e81", 1671764717164, benchmark.SmallerIsBetter, benchmark.Sample{Name: "Minimum latency", Value: 0.07, Unit: "ms"}),
			LastUpdate: benchmark.FromMillis(1671764717164)},
	}
}

// persisterCase opens a persister; reopen returns a fresh handle on the same data,
// or nil when the backend does not survive Close.
type persisterCase struct {
	name   string
	open   func(t *testing.T) history.Persister
	reopen func(t *testing.T) history.Persister
	strict bool
}

func persisterCases(t *testing.T) []persisterCase {
	dir := t.TempDir()
	return []persisterCase{
		{
			name: "file json",
			open: func(t *testing.T) history.Persister {
				s, err := NewFileStore(filepath.Join(dir, "json", "data.json"))
				require.NoError(t, err)
				return s
			},
			reopen: func(t *testing.T) history.Persister {
				s, err := NewFileStore(filepath.Join(dir, "json", "data.json"))
				require.NoError(t, err)
				return s
			},
			strict: true,
		},
		{
			name: "file data.js",
			open: func(t *testing.T) history.Persister {
				s, err := NewFileStore(filepath.Join(dir, "js", "data.js"))
				require.NoError(t, err)
				return s
			},
			reopen: func(t *testing.T) history.Persister {
				s, err := NewFileStore(filepath.Join(dir, "js", "data.js"))
				require.NoError(t, err)
				return s
			},
			strict: true,
		},
		{
			name: "sqlite",
			open: func(t *testing.T) history.Persister {
				s, err := NewSQLiteStore(filepath.Join(dir, "history.db"))
				require.NoError(t, err)
				return s
			},
			reopen: func(t *testing.T) history.Persister {
				s, err := NewSQLiteStore(filepath.Join(dir, "history.db"))
				require.NoError(t, err)
				return s
			},
			strict: true,
		},
		{
			name: "badger",
			open: func(t *testing.T) history.Persister {
				s, err := NewBadgerStore(BadgerConfig{Path: filepath.Join(dir, "badger")})
				require.NoError(t, err)
				return s
			},
			reopen: func(t *testing.T) history.Persister {
				s, err := NewBadgerStore(BadgerConfig{Path: filepath.Join(dir, "badger")})
				require.NoError(t, err)
				return s
			},
			strict: true,
		},
		{
			name: "badger in memory",
			open: func(t *testing.T) history.Persister {
				s, err := NewBadgerStore(InMemoryBadgerConfig())
				require.NoError(t, err)
				return s
			},
			strict: true,
		},
		{
			name: "memory",
			open: func(t *testing.T) history.Persister {
				return NewMemoryStore(benchmark.History{})
			},
		},
	}
}

func assertSampleHistory(t *testing.T, h benchmark.History) {
	t.Helper()
	assert.Equal(t, repoURL, h.RepoURL)
	assert.Equal(t, benchmark.FromMillis(1671764717164), h.LastUpdate)
	require.Len(t, h.Entries, 2)

	sys := h.Entries["Sysbench Benchmark"]
	require.Len(t, sys, 2)
	assert.Equal(t, "9e1c6a6", sys[0].Commit.ID)
	assert.Equal(t, "b7f2e81", sys[1].Commit.ID)
	assert.Equal(t, 0.07, sys[1].Samples[0].Value)
	assert.Equal(t, "Qi Zheng", sys[1].Commit.Author.Name)

	iperf := h.Entries["Iperf3 Benchmark"]
	require.Len(t, iperf, 1)
	assert.Equal(t, benchmark.LargerIsBetter, iperf[0].Tool)
	assert.Equal(t, benchmark.FromMillis(1671678722000), iperf[0].RecordedAt)
}

func TestPersisters(t *testing.T) {
	ctx := context.Background()
	for _, tc := range persisterCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.open(t)

			h, err := p.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, h.Entries)

			for _, rec := range sampleRecords() {
				require.NoError(t, p.Append(ctx, rec))
			}

			h, err = p.Load(ctx)
			require.NoError(t, err)
			assertSampleHistory(t, h)

			if tc.strict {
				dup := sampleRecords()[0]
				assert.Error(t, p.Append(ctx, dup), "position 0 is taken")
			}

			require.NoError(t, p.Close())
			if tc.reopen == nil {
				return
			}

			p = tc.reopen(t)
			defer p.Close()
			h, err = p.Load(ctx)
			require.NoError(t, err)
			assertSampleHistory(t, h)
		})
	}
}

func TestPersisters_BackHistoryStore(t *testing.T) {
	ctx := context.Background()
	for _, tc := range persisterCases(t) {
		if tc.reopen == nil {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			s, err := history.Open(ctx, tc.open(t), history.WithRepoURL(repoURL))
			require.NoError(t, err)

			for i, v := range []float64{0.09, 0.07, 0.08} {
				e := testEntry("c"+string(rune('a'+i)), 1671678721461+int64(i)*1000, benchmark.SmallerIsBetter,
					benchmark.Sample{Name: "Minimum latency", Value: v, Unit: "ms"})
				_, err := s.Ingest(ctx, "Sysbench Benchmark", e)
				require.NoError(t, err)
			}
			require.NoError(t, s.Close())

			s, err = history.Open(ctx, tc.reopen(t))
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, repoURL, s.RepoURL())
			latest, ok := s.Latest("Sysbench Benchmark")
			require.True(t, ok)
			assert.Equal(t, "cc", latest.Commit.ID)
			assert.Equal(t, benchmark.FromMillis(1671678723461), s.LastUpdate())

			// positions continue after a reload
			res, err := s.Ingest(ctx, "Sysbench Benchmark", testEntry("cd", 1671678724461, benchmark.SmallerIsBetter,
				benchmark.Sample{Name: "Minimum latency", Value: 0.08, Unit: "ms"}))
			require.NoError(t, err)
			assert.Equal(t, 3, res.Position)
		})
	}
}
