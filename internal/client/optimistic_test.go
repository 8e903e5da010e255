package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimisticAdoptsServerValue(t *testing.T) {
	o := NewOptimistic(1)

	got, err := o.Apply(context.Background(), 2, func(context.Context) (int, error) {
		assert.Equal(t, 2, o.Value(), "local value visible while waiting")
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, 3, o.Value())
}

func TestOptimisticRevertsOnError(t *testing.T) {
	o := NewOptimistic("a")
	boom := errors.New("boom")

	got, err := o.Apply(context.Background(), "b", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "a", got)
	assert.Equal(t, "a", o.Value())
}

func TestOptimisticSupersededFailureKeepsNewer(t *testing.T) {
	o := NewOptimistic(0)

	_, err := o.Apply(context.Background(), 1, func(ctx context.Context) (int, error) {
		_, err := o.Apply(ctx, 2, func(context.Context) (int, error) { return 2, nil })
		require.NoError(t, err)
		return 0, errors.New("first failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, o.Value())
}

func TestOptimisticSetWinsOverPending(t *testing.T) {
	o := NewOptimistic(0)

	_, err := o.Apply(context.Background(), 1, func(context.Context) (int, error) {
		o.Set(5)
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, o.Value())
}

func TestOptimisticLateSuccessKeepsNewerConfirmed(t *testing.T) {
	o := NewOptimistic(0)
	ctx := context.Background()

	releaseA := make(chan struct{})
	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		_, err := o.Apply(ctx, 1, func(context.Context) (int, error) {
			<-releaseA
			return 1, nil
		})
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return o.Value() == 1 }, time.Second, time.Millisecond)

	got, err := o.Apply(ctx, 2, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	close(releaseA)
	<-doneA
	assert.Equal(t, 2, o.Value(), "поздний ответ первой правки не перекрывает вторую")

	got, err = o.Apply(ctx, 3, func(context.Context) (int, error) {
		return 0, errors.New("rejected")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, got, "откат к последнему подтверждённому значению")
	assert.Equal(t, 2, o.Value())
}
