package stream_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftware/gostream"
)

// fakeSink is a hand-rolled scripted Writable collaborator, in the teacher's
// style of test doubles (see hayabusa-cloud-framer's forward_test.go)
// rather than a generated or third-party mock.
type fakeSink struct {
	received []any
	ended    bool
	accept   bool
	drainSub func()
}

func newFakeSink() *fakeSink { return &fakeSink{accept: true} }

func (f *fakeSink) Write(chunk any) bool {
	f.received = append(f.received, chunk)
	return f.accept
}

func (f *fakeSink) End() { f.ended = true }

func (f *fakeSink) OnDrain(fn func()) stream.Unsubscribe {
	f.drainSub = fn
	return func() { f.drainSub = nil }
}

func TestScenario_PipeForwardsDataAndEndsDestination(t *testing.T) {
	s, err := stream.New()
	require.NoError(t, err)

	sink := newFakeSink()
	s.Pipe(sink)

	s.Write([]byte("chunk-1"))
	s.Write([]byte("chunk-2"))
	s.End()

	require.Len(t, sink.received, 2)
	assert.Equal(t, []byte("chunk-1"), sink.received[0])
	assert.Equal(t, []byte("chunk-2"), sink.received[1])
	assert.True(t, sink.ended, "pipe should end destination by default")
}

func TestScenario_PipeBackpressure_PausesSourceUntilDrain(t *testing.T) {
	s, err := stream.New()
	require.NoError(t, err)

	sink := newFakeSink()
	sink.accept = false
	s.Pipe(sink)

	s.Write([]byte("first"))
	// The sink rejected the write, so the source should have paused.
	s.Write([]byte("second"))
	require.Len(t, sink.received, 1, "paused source should buffer the second chunk")
	require.NotNil(t, sink.drainSub, "pipe should have subscribed to drain")

	sink.accept = true
	sink.drainSub()
	require.Len(t, sink.received, 2, "drain should resume the source and deliver the buffered chunk")
	assert.Equal(t, []byte("second"), sink.received[1])

	s.Write([]byte("third"))
	require.Len(t, sink.received, 3)
}

func TestScenario_UnpipeStopsForwarding(t *testing.T) {
	s, err := stream.New()
	require.NoError(t, err)

	sink := newFakeSink()
	s.Pipe(sink)
	s.Write([]byte("a"))
	s.Unpipe(sink)
	s.Write([]byte("b"))

	require.Len(t, sink.received, 1)
	assert.Equal(t, []byte("a"), sink.received[0])
}

func TestScenario_AsyncCollectDrainsEntireStream(t *testing.T) {
	s, err := stream.New(stream.WithAsync())
	require.NoError(t, err)

	go func() {
		s.Write([]byte("one"))
		s.Write([]byte("two"))
		s.End()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res := stream.Collect(ctx, s)

	require.NoError(t, res.Err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, []byte("one"), res.Items[0])
	assert.Equal(t, []byte("two"), res.Items[1])
}

func TestScenario_ConcatJoinsTextChunks(t *testing.T) {
	s, err := stream.New(stream.WithEncoding("utf-8"), stream.WithAsync())
	require.NoError(t, err)

	go func() {
		s.Write("hello ")
		s.Write("world")
		s.End()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := stream.Concat(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestScenario_SignalAbortsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := stream.New(stream.WithSignal(ctx), stream.WithAsync())
	require.NoError(t, err)

	aborted := make(chan error, 1)
	s.OnAbort(func(reason error) { aborted <- reason })
	// abort emits the abort event before Destroy runs; close fires once
	// Destroy has marked the stream destroyed.
	closed := make(chan struct{})
	s.OnClose(func() { close(closed) })

	cancel()

	select {
	case reason := <-aborted:
		assert.True(t, errors.Is(reason, context.Canceled) || reason != nil)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for abort")
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
	assert.True(t, s.Destroyed())
}

func TestScenario_AsyncIteratorRangesOverChunks(t *testing.T) {
	s, err := stream.New(stream.WithAsync())
	require.NoError(t, err)

	go func() {
		s.Write([]byte("x"))
		s.Write([]byte("y"))
		s.End()
	}()

	it := s.Range()
	defer it.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got [][]byte
	for {
		chunk, err := it.Next(ctx)
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		got = append(got, chunk.([]byte))
	}

	require.Len(t, got, 2)
	assert.Equal(t, []byte("x"), got[0])
	assert.Equal(t, []byte("y"), got[1])
}

// objRecord stands in for the "plain record" payload spec §8 scenario 6
// writes in Object mode.
type objRecord struct{ i int }

func TestScenario_ObjectModeCollectDataLengthZero(t *testing.T) {
	s, err := stream.New(stream.WithObjectMode(), stream.WithAsync())
	require.NoError(t, err)

	go func() {
		s.Write(objRecord{i: 1})
		s.Write(objRecord{i: 2})
		s.Write(objRecord{i: 3})
		s.End()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res := stream.Collect(ctx, s)

	require.NoError(t, res.Err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, objRecord{i: 1}, res.Items[0])
	assert.Equal(t, objRecord{i: 2}, res.Items[1])
	assert.Equal(t, objRecord{i: 3}, res.Items[2])
	assert.Equal(t, 0, res.DataLength, "dataLength is always 0 in Object mode")
}

// TestScenario_SyncModeSignalAbortsOnNextCall demonstrates the sync-mode
// signal contract documented on the Stream type: with no WithAsync, there is
// no watcher goroutine, so a canceled signal is only observed cooperatively
// the next time Write or Read runs on the owning goroutine.
func TestScenario_SyncModeSignalAbortsOnNextCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := stream.New(stream.WithSignal(ctx))
	require.NoError(t, err)

	cancel()
	assert.False(t, s.Aborted(), "sync mode has no watcher goroutine to observe cancellation immediately")

	_, _ = s.Write([]byte("x"))
	assert.True(t, s.Aborted())
	assert.True(t, s.Destroyed())
}
