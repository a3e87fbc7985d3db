package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureTypeFromExitCode(t *testing.T) {
	cases := []struct {
		exitCode int
		want     FailureType
	}{
		{0, FailureNone},
		{1, FailureAssertionError},
		{2, FailureCollectionError},
		{4, FailureCollectionError},
		{5, FailureCollectionError},
		{127, FailureAssertionError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FailureTypeFromExitCode(tc.exitCode))
	}
}

func TestTestResults_AllPassed(t *testing.T) {
	t.Run("clean run passed", func(t *testing.T) {
		r := TestResults{WasRun: true, FailureType: FailureNone}
		assert.True(t, r.AllPassed())
		assert.False(t, r.HasFailures())
	})

	t.Run("not run is never passed", func(t *testing.T) {
		r := TestResults{WasRun: false}
		assert.False(t, r.AllPassed())
		assert.False(t, r.HasFailures())
	})

	t.Run("failing tests are not passed", func(t *testing.T) {
		r := TestResults{WasRun: true, FailureType: FailureAssertionError, Failing: []string{"test_x"}}
		assert.False(t, r.AllPassed())
		assert.True(t, r.HasFailures())
	})

	t.Run("collection error counts as failure with no failing list", func(t *testing.T) {
		r := TestResults{WasRun: true, FailureType: FailureCollectionError}
		assert.False(t, r.AllPassed())
		assert.True(t, r.HasFailures())
	})
}
