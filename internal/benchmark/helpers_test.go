package benchmark

func newEntry(commit string, ms int64, tool Polarity, samples ...Sample) Entry {
	return Entry{
		Commit:     Commit{ID: commit, Timestamp: "2022-12-22T10:37:38+08:00"},
		RecordedAt: FromMillis(ms),
		Tool:       tool,
		Samples:    samples,
	}
}
