package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoBench(t *testing.T) {
	output := `
goos: linux
goarch: amd64
pkg: benchtrack/internal/benchmark
cpu: Intel(R) Core(TM) i9-9900K CPU @ 3.60GHz
BenchmarkParseOutput-16    	100000000	        10.5 ns/op	       0 B/op	       0 allocs/op
BenchmarkComplex-16        	 5000000	       250.0 ns/op	      10.0 MB/s	      64 B/op	       2 allocs/op
PASS
ok  	benchtrack/internal/benchmark	1.500s
`
	samples := ParseGoBench(output)
	require.Len(t, samples, 6)

	assert.Equal(t, "BenchmarkParseOutput", samples[0].Name)
	assert.Equal(t, 10.5, samples[0].Value)
	assert.Equal(t, "ns/op", samples[0].Unit)
	assert.Equal(t, "iterations=100000000", samples[0].Extra)
	assert.Equal(t, "BenchmarkParseOutput B/op", samples[1].Name)
	assert.Equal(t, 0.0, samples[1].Value)
	assert.Equal(t, "BenchmarkParseOutput allocs/op", samples[2].Name)

	assert.Equal(t, "BenchmarkComplex", samples[3].Name)
	assert.Equal(t, 250.0, samples[3].Value)
	assert.Equal(t, 64.0, samples[4].Value)
	assert.Equal(t, 2.0, samples[5].Value)
}

func TestParseGoBench_Minimal(t *testing.T) {
	samples := ParseGoBench("BenchmarkSimple   100   200 ns/op\n")
	require.Len(t, samples, 1)
	assert.Equal(t, "BenchmarkSimple", samples[0].Name)
	assert.Equal(t, 200.0, samples[0].Value)
}

func TestParseGoBench_RepeatedCountKeepsLast(t *testing.T) {
	output := "BenchmarkA-8 10 100 ns/op\nBenchmarkA-8 10 120 ns/op\n"
	samples := ParseGoBench(output)
	require.Len(t, samples, 1)
	assert.Equal(t, 120.0, samples[0].Value)
}

func TestParseGoBench_ProducesValidEntry(t *testing.T) {
	samples := ParseGoBench("BenchmarkA-8 10 100 ns/op 8 B/op 1 allocs/op\n")
	e := newEntry("abc", 1000, SmallerIsBetter, samples...)
	assert.NoError(t, Validate("Go Benchmarks", e))
}
