package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/zonemap/internal/projection"
)

func TestDispatcherSubmit(t *testing.T) {
	legacy := orb.Point{-7.61, 33.59}
	d := NewDispatcher(New(projection.Builtin(), Options{}))

	out := <-d.Submit(context.Background(), "viewport", Batch{Country: "MA", Entities: []Entity{{Geographic: &legacy}}})
	require.NoError(t, out.Err)
	assert.NotEqual(t, uuid.Nil, out.ID)
	assert.Equal(t, "viewport", out.Key)
	assert.Len(t, out.Result.Features, 1)
	assert.Zero(t, d.InFlight())
}

func TestDispatcherSupersede(t *testing.T) {
	legacy := orb.Point{-7.61, 33.59}
	rec := &fakeRecorder{}
	p := New(projection.Builtin(), Options{Recorder: rec})
	g := hold(p)
	d := NewDispatcher(p)
	batch := Batch{Country: "MA", Entities: []Entity{{Geographic: &legacy}}}

	first := d.Submit(context.Background(), "viewport", batch)
	<-g.entered

	second := d.Submit(context.Background(), "viewport", batch)
	close(g.release)

	stale := <-first
	assert.ErrorIs(t, stale.Err, ErrSuperseded)
	assert.Nil(t, stale.Result)

	fresh := <-second
	require.NoError(t, fresh.Err)
	assert.Len(t, fresh.Result.Features, 1)
	assert.NotEqual(t, stale.ID, fresh.ID)

	_, open := <-first
	assert.False(t, open)

	// only the batch that was delivered is counted
	batches, superseded := rec.recorded()
	assert.Equal(t, []Stats{{Total: 1, Features: 1}}, batches)
	assert.Equal(t, []string{"MA"}, superseded)
}

func TestDispatcherKeysAreIndependent(t *testing.T) {
	legacy := orb.Point{-7.61, 33.59}
	d := NewDispatcher(New(projection.Builtin(), Options{}))
	batch := Batch{Country: "MA", Entities: []Entity{{Geographic: &legacy}}}

	a := d.Submit(context.Background(), "a", batch)
	b := d.Submit(context.Background(), "b", batch)

	assert.NoError(t, (<-a).Err)
	assert.NoError(t, (<-b).Err)
}

func TestDispatcherCancel(t *testing.T) {
	legacy := orb.Point{-7.61, 33.59}
	rec := &fakeRecorder{}
	p := New(projection.Builtin(), Options{Recorder: rec})
	g := hold(p)
	d := NewDispatcher(p)

	out := d.Submit(context.Background(), "k", Batch{Country: "MA", Entities: []Entity{{Geographic: &legacy}}})
	<-g.entered

	assert.True(t, d.Cancel("k"))
	assert.False(t, d.Cancel("k"))
	close(g.release)

	res := <-out
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, res.Result)

	batches, superseded := rec.recorded()
	assert.Empty(t, batches)
	assert.Empty(t, superseded)
}

func TestDispatcherRecordsDeliveredBatch(t *testing.T) {
	legacy := orb.Point{-7.61, 33.59}
	rec := &fakeRecorder{}
	d := NewDispatcher(New(projection.Builtin(), Options{Recorder: rec}))

	out := <-d.Submit(context.Background(), "k", Batch{Country: "MA", Entities: []Entity{{Geographic: &legacy}, {}}})
	require.NoError(t, out.Err)

	batches, _ := rec.recorded()
	assert.Equal(t, []Stats{{Total: 2, Features: 1, Filtered: 1}}, batches)
}

func TestDispatcherUnknownCountry(t *testing.T) {
	d := NewDispatcher(New(projection.Builtin(), Options{}))
	out := <-d.Submit(context.Background(), "k", Batch{Country: "XX"})
	assert.ErrorIs(t, out.Err, projection.ErrUnknownCountry)
}
