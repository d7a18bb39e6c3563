package benchmark

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok := Sample{Name: "Threads Minimum latency", Value: 0.09, Unit: "ms"}

	tests := []struct {
		name      string
		suite     string
		entry     Entry
		wantField string
	}{
		{
			name:  "valid entry",
			suite: "Sysbench Benchmark",
			entry: newEntry("abc", 1000, SmallerIsBetter, ok),
		},
		{
			name:      "empty suite",
			suite:     " ",
			entry:     newEntry("abc", 1000, SmallerIsBetter, ok),
			wantField: "suite",
		},
		{
			name:      "missing commit id",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("", 1000, SmallerIsBetter, ok),
			wantField: "commit.ID",
		},
		{
			name:      "no samples",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, SmallerIsBetter),
			wantField: "benches",
		},
		{
			name:      "unknown tool",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, Polarity(0), ok),
			wantField: "tool",
		},
		{
			name:      "missing date",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 0, SmallerIsBetter, ok),
			wantField: "date",
		},
		{
			name:      "duplicate sample names",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, SmallerIsBetter, ok, ok),
			wantField: "benches[1].name",
		},
		{
			name:      "NaN value",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, SmallerIsBetter, Sample{Name: "x", Value: math.NaN()}),
			wantField: "benches[0].value",
		},
		{
			name:      "infinite value",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, SmallerIsBetter, Sample{Name: "x", Value: math.Inf(1)}),
			wantField: "benches[0].value",
		},
		{
			name:      "unnamed sample",
			suite:     "Sysbench Benchmark",
			entry:     newEntry("abc", 1000, SmallerIsBetter, Sample{Value: 1}),
			wantField: "benches[0].Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.suite, tt.entry)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidate_ZeroAndNegativeValuesAllowed(t *testing.T) {
	e := newEntry("abc", 1000, LargerIsBetter, Sample{Name: "a", Value: 0}, Sample{Name: "b", Value: -3})
	assert.NoError(t, Validate("Custom", e))
}

func TestValidate_CommitTimestampIsNotChecked(t *testing.T) {
	e := newEntry("abc", 1000, LargerIsBetter, Sample{Name: "a", Value: 1})
	e.Commit.Timestamp = "yesterday"
	assert.NoError(t, Validate("Custom", e))
}

func TestErrorTaxonomy(t *testing.T) {
	perr := &PolarityConflictError{Suite: "S", Metric: "m", Established: LargerIsBetter, Got: SmallerIsBetter}
	assert.True(t, errors.Is(perr, ErrPolarityConflict))
	assert.False(t, errors.Is(perr, ErrValidation))
	assert.Contains(t, perr.Error(), "customBiggerIsBetter")

	cause := errors.New("disk full")
	serr := &StorageError{Op: "append", Err: cause}
	assert.True(t, errors.Is(serr, ErrStorage))
	assert.True(t, errors.Is(serr, cause))
}
