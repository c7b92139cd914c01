package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStepExecutesOncePerName(t *testing.T) {
	ctx := context.Background()
	run, err := NewRun(ctx, NewMemoryStepStore(), "test/event", "run-1")
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v1, err := RunStep(ctx, run, "compute", fn)
	require.NoError(t, err)
	v2, err := RunStep(ctx, run, "compute", fn)
	require.NoError(t, err)

	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls)
}

func TestRunStepMemoizesFailure(t *testing.T) {
	ctx := context.Background()
	run, err := NewRun(ctx, NewMemoryStepStore(), "test/event", "run-1")
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("upstream unavailable")
	}

	_, err1 := RunStep(ctx, run, "flaky", fn)
	_, err2 := RunStep(ctx, run, "flaky", fn)

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, 1, calls, "a recorded failure must not re-execute the step")

	var stepErr *StepError
	require.ErrorAs(t, err2, &stepErr)
	assert.Equal(t, "flaky", stepErr.Step)
	assert.Equal(t, "upstream unavailable", stepErr.Message)
}

func TestRunStepResumesFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepStore()

	run1, err := NewRun(ctx, store, "test/event", "run-1")
	require.NoError(t, err)

	calls := 0
	_, err = RunStep(ctx, run1, "side-effect", func(ctx context.Context) (string, error) {
		calls++
		return "done", nil
	})
	require.NoError(t, err)

	// Simulate redelivery after a cold start: a fresh Run with the same
	// ID hydrates from the store and skips the completed step.
	run2, err := NewRun(ctx, store, "test/event", "run-1")
	require.NoError(t, err)
	assert.True(t, run2.Completed("side-effect"))

	v, err := RunStep(ctx, run2, "side-effect", func(ctx context.Context) (string, error) {
		calls++
		return "repeated", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 1, calls)
}

func TestRunStepIsolatesRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStepStore()

	runA, err := NewRun(ctx, store, "test/event", "run-a")
	require.NoError(t, err)
	runB, err := NewRun(ctx, store, "test/event", "run-b")
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	vA, err := RunStep(ctx, runA, "step", fn)
	require.NoError(t, err)
	vB, err := RunStep(ctx, runB, "step", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, vA)
	assert.Equal(t, 2, vB)
	assert.Equal(t, 2, calls)
}

func TestRunStepDistinctNamesBothRun(t *testing.T) {
	ctx := context.Background()
	run, err := NewRun(ctx, NewMemoryStepStore(), "test/event", "run-1")
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	}

	_, err = RunStep(ctx, run, "first", fn)
	require.NoError(t, err)
	_, err = RunStep(ctx, run, "second", fn)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestRunStepStructValuesRoundTrip(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Tags  []string `json:"tags"`
		Score int      `json:"score"`
	}

	ctx := context.Background()
	store := NewMemoryStepStore()
	run, err := NewRun(ctx, store, "test/event", "run-1")
	require.NoError(t, err)

	want := payload{Name: "report", Tags: []string{"a", "b"}, Score: 7}
	_, err = RunStep(ctx, run, "build", func(ctx context.Context) (payload, error) {
		return want, nil
	})
	require.NoError(t, err)

	resumed, err := NewRun(ctx, store, "test/event", "run-1")
	require.NoError(t, err)
	got, err := RunStep(ctx, resumed, "build", func(ctx context.Context) (payload, error) {
		t.Fatal("memoized step must not re-execute")
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

type failingStore struct {
	*MemoryStepStore
}

func (s *failingStore) Save(_ context.Context, _, _ string, _ StepResult) error {
	return errors.New("connection reset")
}

func TestRunStepToleratesSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{NewMemoryStepStore()}
	run, err := NewRun(ctx, store, "test/event", "run-1")
	require.NoError(t, err)

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	}

	// Persistence failures are tolerated: the in-process memo still
	// covers this invocation.
	v, err := RunStep(ctx, run, "step", fn)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = RunStep(ctx, run, "step", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
