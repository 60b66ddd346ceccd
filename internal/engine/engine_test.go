package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/streamlink/internal/decode"
	"github.com/kestrelworks/streamlink/internal/testutil/testlog"
	"github.com/kestrelworks/streamlink/internal/transport"
)

type sampleRecorder struct {
	mu      sync.Mutex
	samples []decode.Sample
}

func (r *sampleRecorder) record(sample decode.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
}

func (r *sampleRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *sampleRecorder) at(i int) decode.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples[i]
}

func testConfig() Config {
	return Config{
		PollInterval:  time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
		StopTimeout:   time.Second,
	}
}

func newTestEngine(t *testing.T, tr transport.Transport) *Engine {
	t.Helper()
	eng, err := New(tr, testConfig(), log.Logger)
	require.NoError(t, err)
	return eng
}

func TestNewRejectsNilTransport(t *testing.T) {
	testlog.Start(t)
	_, err := New(nil, Config{}, log.Logger)
	require.ErrorIs(t, err, ErrNilTransport)
}

func TestEngineDeliversSamplesInOrderAndCoalescesLatest(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())
	lb.Feed([]byte(`{"seq":0}{"seq":1}{"seq":2,}`))

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)
	defer eng.Stop()

	require.Eventually(t, func() bool { return rec.len() == 3 }, time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		require.Equal(t, float64(i), rec.at(i)["seq"])
	}

	latest, ok := eng.Latest()
	require.True(t, ok)
	require.Equal(t, float64(2), latest["seq"])
}

func TestEngineLatestWithoutCallback(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())

	eng := newTestEngine(t, lb)
	eng.Start(nil)
	defer eng.Stop()

	_, ok := eng.Latest()
	require.False(t, ok)

	lb.Feed([]byte(`{"battery":87}`))
	require.Eventually(t, func() bool {
		_, ok := eng.Latest()
		return ok
	}, time.Second, time.Millisecond)

	latest, _ := eng.Latest()
	require.Equal(t, float64(87), latest["battery"])
}

func TestEngineLatestIsSnapshot(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())
	lb.Feed([]byte(`{"pose":{"x":1}}`))

	eng := newTestEngine(t, lb)
	eng.Start(nil)
	defer eng.Stop()

	require.Eventually(t, func() bool {
		_, ok := eng.Latest()
		return ok
	}, time.Second, time.Millisecond)

	first, _ := eng.Latest()
	first["pose"].(map[string]any)["x"] = float64(99)

	second, _ := eng.Latest()
	require.Equal(t, float64(1), second["pose"].(map[string]any)["x"])
}

func TestEngineStopHaltsCallbacksAndClearsLatest(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())
	lb.Feed([]byte(`{"seq":0}`))

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	eng.Stop()
	require.False(t, eng.Running())

	_, ok := eng.Latest()
	require.False(t, ok, "latest must be cleared on stop")

	// Bytes arriving after stop must not reach the callback.
	lb.Feed([]byte(`{"seq":1}`))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, rec.len())
}

func TestEngineRestartHasCleanFramingState(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)

	// Leave a dangling partial frame buffered, then stop.
	lb.Feed([]byte(`{"half":`))
	require.Eventually(t, lb.Drained, time.Second, time.Millisecond)
	eng.Stop()

	eng.Start(rec.record)
	defer eng.Stop()
	lb.Feed([]byte(`{"whole":1}`))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, float64(1), rec.at(0)["whole"])
}

func TestEngineStartWhileRunningKeepsCurrentLoop(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)
	defer eng.Stop()

	other := &sampleRecorder{}
	eng.Start(other.record)

	lb.Feed([]byte(`{"seq":0}`))
	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	require.Zero(t, other.len())
}

func TestEngineSurvivesCallbackPanic(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())
	lb.Feed([]byte(`{"seq":0}{"seq":1}`))

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(func(sample decode.Sample) {
		if sample["seq"] == float64(0) {
			panic("observer exploded")
		}
		rec.record(sample)
	})
	defer eng.Stop()

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, float64(1), rec.at(0)["seq"])
	require.GreaterOrEqual(t, eng.Stats().CallbackFaults, uint64(1))
}

func TestEngineToleratesClosedTransport(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	lb.Feed([]byte(`{"seq":0}`))

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)
	defer eng.Stop()

	// Closed link: the loop idles and retries, nothing is delivered.
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, rec.len())
	require.GreaterOrEqual(t, eng.Stats().TransportRetries, uint64(1))

	// Link comes back; pending bytes flow with no restart needed.
	require.NoError(t, lb.Open())
	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
}

func TestEngineCountsDecodeErrorsAndKeepsGoing(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	require.NoError(t, lb.Open())
	lb.Feed([]byte(`{"a":1}{"b":!!}{"c":3}`))

	eng := newTestEngine(t, lb)
	rec := &sampleRecorder{}
	eng.Start(rec.record)
	defer eng.Stop()

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, float64(1), rec.at(0)["a"])
	require.Equal(t, float64(3), rec.at(1)["c"])

	stats := eng.Stats()
	require.Equal(t, uint64(2), stats.Samples)
	require.Equal(t, uint64(1), stats.DecodeErrors)
}
