package client

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/streamlink/internal/engine"
	"github.com/kestrelworks/streamlink/internal/testutil/testlog"
	"github.com/kestrelworks/streamlink/internal/transport"
)

// flakyTransport fails Open a fixed number of times before delegating
// to a loopback.
type flakyTransport struct {
	*transport.Loopback
	failures int
	attempts int
}

func (f *flakyTransport) Open() error {
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("port busy")
	}
	return f.Loopback.Open()
}

func testClientConfig() Config {
	return Config{
		ConnectAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: time.Millisecond,
			Multiplier:   1.5,
			MaxDelay:     5 * time.Millisecond,
		},
		Engine: engine.Config{
			PollInterval:  time.Millisecond,
			RetryInterval: 5 * time.Millisecond,
			StopTimeout:   time.Second,
		},
	}
}

func TestConnectRetriesWithBackoff(t *testing.T) {
	testlog.Start(t)
	tr := &flakyTransport{Loopback: transport.NewLoopback(), failures: 2}
	cl, err := New(tr, testClientConfig(), log.Logger)
	require.NoError(t, err)

	require.NoError(t, cl.Connect())
	require.True(t, cl.Connected())
	require.Equal(t, 3, tr.attempts)
	require.NotEmpty(t, cl.SessionID())
}

func TestConnectGivesUpAfterAttempts(t *testing.T) {
	testlog.Start(t)
	tr := &flakyTransport{Loopback: transport.NewLoopback(), failures: 10}
	cl, err := New(tr, testClientConfig(), log.Logger)
	require.NoError(t, err)

	err = cl.Connect()
	require.ErrorIs(t, err, ErrConnect)
	require.False(t, cl.Connected())
	require.Equal(t, 3, tr.attempts)
}

func TestConnectTwiceIsIdempotent(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	cl, err := New(lb, testClientConfig(), log.Logger)
	require.NoError(t, err)

	require.NoError(t, cl.Connect())
	session := cl.SessionID()
	require.NoError(t, cl.Connect())
	require.Equal(t, session, cl.SessionID())
}

func TestSendCommandRequiresConnection(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	cl, err := New(lb, testClientConfig(), log.Logger)
	require.NoError(t, err)

	require.ErrorIs(t, cl.SendCommand(0x05, 1.5), ErrNotConnected)
	require.ErrorIs(t, cl.RequestDeviceInfo(), ErrNotConnected)
}

func TestSendCommandWritesWireFrames(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	cl, err := New(lb, testClientConfig(), log.Logger)
	require.NoError(t, err)
	require.NoError(t, cl.Connect())

	require.NoError(t, cl.SendCommand(0x05, 0))
	require.NoError(t, cl.RequestDeviceInfo())

	sent := lb.Sent()
	require.True(t, bytes.HasPrefix(sent, []byte{0x05, 0, 0, 0, 0, '\r', '\n'}))
	require.True(t, bytes.HasSuffix(sent, []byte("GET_INFO\r\n")))
}

func TestStreamingLifecycleAndLatest(t *testing.T) {
	testlog.Start(t)
	lb := transport.NewLoopback()
	cl, err := New(lb, testClientConfig(), log.Logger)
	require.NoError(t, err)
	require.NoError(t, cl.Connect())

	cl.StartStreaming(nil)
	lb.Feed([]byte(`{"seq":7}`))

	require.Eventually(t, func() bool {
		_, ok := cl.LatestSample()
		return ok
	}, time.Second, time.Millisecond)

	latest, _ := cl.LatestSample()
	require.Equal(t, float64(7), latest["seq"])
	require.True(t, cl.StreamStats().Running)

	// Disconnect stops streaming and clears the latest slot.
	cl.Disconnect()
	require.False(t, cl.Connected())
	require.False(t, cl.StreamStats().Running)
	_, ok := cl.LatestSample()
	require.False(t, ok)
}
