package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(ctx context.Context, emit func(int) bool) {
	for i := 0; ; i++ {
		if !emit(i) {
			return
		}
	}
}

func TestStart_DeliversInOrder(t *testing.T) {
	sub := stream.Start(context.Background(), counter)
	defer sub.Close()

	for want := 0; want < 5; want++ {
		got := <-sub.C
		assert.Equal(t, want, got)
	}
}

func TestClose_StopsProducerAndClosesChannel(t *testing.T) {
	sub := stream.Start(context.Background(), counter)
	<-sub.C

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("producer still running after Close")
	}

	_, ok := <-sub.C
	assert.False(t, ok, "no value may be delivered after Close")
}

func TestStart_ParentContextEndsSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := stream.Start(ctx, counter)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription outlived its context")
	}
	sub.Close()
}

func TestMap_TransformsAndOwnsSource(t *testing.T) {
	src := stream.Start(context.Background(), counter)
	doubled := stream.Map(context.Background(), src, func(v int) int { return v * 2 })

	assert.Equal(t, 0, <-doubled.C)
	assert.Equal(t, 2, <-doubled.C)

	doubled.Close()
	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("source not closed with derived subscription")
	}
}

func TestFirst(t *testing.T) {
	sub := stream.Start(context.Background(), func(ctx context.Context, emit func(string) bool) {
		emit("only")
	})
	defer sub.Close()

	v, ok, err := stream.First(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "only", v)

	_, ok, err = stream.First(context.Background(), sub)
	require.NoError(t, err)
	assert.False(t, ok)
}
