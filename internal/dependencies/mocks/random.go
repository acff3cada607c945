package mocks

import (
	"github.com/urnet/gameserver/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing
type MockRandom struct {
	// IntnResults is a queue of results to return from Intn
	IntnResults []int
	intnIndex   int

	// BoolResults is a queue of results to return from Bool
	BoolResults []bool
	boolIndex   int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result, or 0 if none remaining
func (r *MockRandom) Intn(n int) int {
	if r.intnIndex >= len(r.IntnResults) {
		return 0
	}
	result := r.IntnResults[r.intnIndex]
	r.intnIndex++
	return result
}

// Bool returns the next queued result, or false if none remaining
func (r *MockRandom) Bool() bool {
	if r.boolIndex >= len(r.BoolResults) {
		return false
	}
	result := r.BoolResults[r.boolIndex]
	r.boolIndex++
	return result
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.IntnResults = append(r.IntnResults, values...)
}

// QueueBool adds values to the Bool result queue
func (r *MockRandom) QueueBool(values ...bool) {
	r.BoolResults = append(r.BoolResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.IntnResults = nil
	r.intnIndex = 0
	r.BoolResults = nil
	r.boolIndex = 0
}
