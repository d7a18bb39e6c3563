package notify

import (
	"errors"
	"net/http"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/regression"
)

type errorTransport struct{}

func (t *errorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func testAlert() Alert {
	return Alert{
		RepoURL: "https://github.com/occlum/occlum",
		Report: regression.Report{
			Suite:      "Sysbench Benchmark",
			CommitID:   "9e1c6a6e6b0c4dd1c6d0b8a5d6f30e0b2b1c7d8e",
			CommitURL:  "https://github.com/occlum/occlum/commit/9e1c6a6e6b0c4dd1c6d0b8a5d6f30e0b2b1c7d8e",
			RecordedAt: benchmark.FromMillis(1671764717164),
			Tool:       benchmark.SmallerIsBetter,
			Alert:      true,
			Metrics: []regression.MetricResult{
				{Name: "Minimum latency", Unit: "ms", Value: 20, Outcome: regression.Regressed,
					Baseline: regression.Baseline{Mean: 0.08, StdDev: 0.01, Count: 5}},
				{Name: "Average latency", Unit: "ms", Value: 0.3, Outcome: regression.Stable,
					Baseline: regression.Baseline{Mean: 0.31, StdDev: 0.02, Count: 5}},
			},
		},
	}
}
