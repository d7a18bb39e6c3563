package benchmark

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks an entry before it may be ingested into suite: a commit id,
// a known tool, at least one sample, unique non-empty sample names and finite values.
// commit.timestamp is descriptive and never checked.
func Validate(suite string, e Entry) error {
	if strings.TrimSpace(suite) == "" {
		return &ValidationError{Suite: suite, Field: "suite", Reason: "suite name is empty"}
	}

	if err := structValidator().Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Suite: suite, Field: fieldPath(fe), Reason: reasonFor(fe)}
		}
		return &ValidationError{Suite: suite, Reason: err.Error()}
	}

	if !e.Tool.Valid() {
		return &ValidationError{Suite: suite, Field: "tool", Reason: "tool must be customSmallerIsBetter or customBiggerIsBetter"}
	}
	if e.RecordedAt.IsZero() {
		return &ValidationError{Suite: suite, Field: "date", Reason: "recorded-at time is missing"}
	}

	seen := make(map[string]struct{}, len(e.Samples))
	for i, s := range e.Samples {
		if _, dup := seen[s.Name]; dup {
			return &ValidationError{Suite: suite, Field: fmt.Sprintf("benches[%d].name", i), Reason: fmt.Sprintf("duplicate sample name %q", s.Name)}
		}
		seen[s.Name] = struct{}{}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return &ValidationError{Suite: suite, Field: fmt.Sprintf("benches[%d].value", i), Reason: fmt.Sprintf("value of %q is not finite", s.Name)}
		}
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	// Drop the root struct name ("Entry.").
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.Replace(ns, "Samples", "benches", 1)
	return strings.ToLower(ns[:1]) + ns[1:]
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "needs at least one sample"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
