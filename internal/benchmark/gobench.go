package benchmark

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Regex to parse standard Go benchmark output
	// BenchmarkName-8   1000000   1000 ns/op   100 B/op   10 allocs/op
	benchRegex = regexp.MustCompile(`^(Benchmark\S+?)(?:-\d+)?\s+(\d+)\s+([\d\.]+)\s+ns/op(?:\s+([\d\.]+)\s+MB/s)?(?:\s+(\d+)\s+B/op\s+(\d+)\s+allocs/op)?`)
)

// ParseGoBench converts `go test -bench` output into smaller-is-better samples:
// one "<name>" sample in ns/op and, with -benchmem, "<name> B/op" and
// "<name> allocs/op". MB/s is dropped because it runs the other direction.
// Repeated lines for the same benchmark (-count) keep the last value.
func ParseGoBench(output string) []Sample {
	var samples []Sample
	index := make(map[string]int)
	add := func(s Sample) {
		if i, ok := index[s.Name]; ok {
			samples[i] = s
			return
		}
		index[s.Name] = len(samples)
		samples = append(samples, s)
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		matches := benchRegex.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if matches == nil {
			continue
		}
		name := matches[1]

		if val, err := strconv.ParseFloat(matches[3], 64); err == nil {
			add(Sample{Name: name, Value: val, Unit: "ns/op", Extra: "iterations=" + matches[2]})
		}

		// B/op and allocs/op (optional)
		if len(matches) > 6 && matches[5] != "" && matches[6] != "" {
			if val, err := strconv.ParseFloat(matches[5], 64); err == nil {
				add(Sample{Name: name + " B/op", Value: val, Unit: "B/op"})
			}
			if val, err := strconv.ParseFloat(matches[6], 64); err == nil {
				add(Sample{Name: name + " allocs/op", Value: val, Unit: "allocs/op"})
			}
		}
	}
	return samples
}
