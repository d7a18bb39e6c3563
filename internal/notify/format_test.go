package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	text := Format(testAlert())
	lines := strings.Split(text, "\n")

	assert.Equal(t, `Performance regression in "Sysbench Benchmark" at commit 9e1c6a6`, lines[0])
	assert.Contains(t, lines[1], "/commit/9e1c6a6e")
	assert.Len(t, lines, 3, "only regressed metrics are listed")
	assert.Equal(t, "• Minimum latency: 20 ms (baseline 0.08 ± 0.01 over 5 runs)", lines[2])
}

func TestFormat_FallsBackToRepoURL(t *testing.T) {
	a := testAlert()
	a.Report.CommitURL = ""
	a.RepoURL = "https://github.com/occlum/occlum/"
	assert.Contains(t, Format(a), "https://github.com/occlum/occlum/commit/9e1c6a6e")
}
