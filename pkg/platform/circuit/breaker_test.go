package circuit_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"vestry/pkg/platform/circuit"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := circuit.New("audit-sink")

	assert.Equal(t, "audit-sink", b.Name())
	assert.Equal(t, circuit.StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := circuit.New("audit-sink", circuit.WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback, "failure %d must not trip the breaker", i+1)
		assert.False(t, change.Opened)
	}

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, circuit.StateOpen, b.State())

	// Further failures keep it open without another transition.
	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
}

func TestBreakerClosesAtSuccessThreshold(t *testing.T) {
	b := circuit.New("audit-sink",
		circuit.WithFailureThreshold(1),
		circuit.WithSuccessThreshold(2),
	)

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary, "one probe success must not close it yet")
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, circuit.StateClosed, b.State())
}

func TestBreakerCountsConsecutiveOutcomesOnly(t *testing.T) {
	b := circuit.New("audit-sink", circuit.WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The success wiped the failure run, so two more failures stay closed.
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerFailureRestartsSuccessRun(t *testing.T) {
	b := circuit.New("audit-sink",
		circuit.WithFailureThreshold(1),
		circuit.WithSuccessThreshold(3),
	)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()
	assert.True(t, b.IsOpen(), "a failed probe must restart the success run")

	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreakerReset(t *testing.T) {
	b := circuit.New("audit-sink", circuit.WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, circuit.StateClosed, b.State())
}

func TestBreakerConcurrentOutcomes(t *testing.T) {
	b := circuit.New("audit-sink", circuit.WithFailureThreshold(10))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.RecordFailure()
			} else {
				b.RecordSuccess()
			}
		}(i)
	}
	wg.Wait()

	// No assertion on the final position; the race detector is the check.
	b.Reset()
	assert.False(t, b.IsOpen())
}
