package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelivery_Constructors(t *testing.T) {
	assert.Equal(t, Succeeded, Completed().State())
	assert.NoError(t, Completed().Err())

	cause := errors.New("broker down")
	f := Failed(cause)
	assert.Equal(t, Faulted, f.State())
	assert.Same(t, cause, f.Err())

	assert.Equal(t, Faulted, Failed(nil).State())
	assert.Error(t, Failed(nil).Err())

	c := CanceledDelivery()
	assert.Equal(t, Canceled, c.State())
	assert.ErrorIs(t, c.Err(), context.Canceled)
}

func TestDelivery_SettlesOnce(t *testing.T) {
	d := NewDelivery()
	assert.Equal(t, Pending, d.State())

	assert.True(t, d.Resolve(errors.New("first")))
	assert.False(t, d.Resolve(nil))
	assert.False(t, d.Cancel())

	assert.Equal(t, Faulted, d.State())
	assert.EqualError(t, d.Err(), "first")
}

func TestDelivery_ResolveCanceledCause(t *testing.T) {
	d := NewDelivery()
	d.Resolve(context.Canceled)
	assert.Equal(t, Canceled, d.State())
}

func TestDelivery_WaitAndDone(t *testing.T) {
	d := NewDelivery()
	go func() {
		time.Sleep(10 * time.Millisecond)
		d.Resolve(nil)
	}()

	require.NoError(t, d.Wait(context.Background()))
	select {
	case <-d.Done():
	default:
		t.Fatal("Done not closed after settle")
	}
}

func TestDelivery_WaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewDelivery().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeliveryState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "faulted", Faulted.String())
	assert.Equal(t, "unknown", DeliveryState(42).String())
}
