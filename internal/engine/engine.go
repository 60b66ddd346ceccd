package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelworks/streamlink/internal/decode"
	"github.com/kestrelworks/streamlink/internal/framing"
	"github.com/kestrelworks/streamlink/internal/observability"
	"github.com/kestrelworks/streamlink/internal/transport"
)

var ErrNilTransport = errors.New("engine: nil transport")

// Callback receives every decoded sample in arrival order. It runs on
// the engine's own goroutine: it must not assume any particular caller
// context and must not block, or it stalls the whole pipeline.
type Callback func(decode.Sample)

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Running          bool   `json:"running"`
	BytesRead        uint64 `json:"bytes_read"`
	Samples          uint64 `json:"samples"`
	DecodeErrors     uint64 `json:"decode_errors"`
	BufferOverflows  uint64 `json:"buffer_overflows"`
	CallbackFaults   uint64 `json:"callback_faults"`
	TransportRetries uint64 `json:"transport_retries"`
}

// Engine drives the continuous read -> extract -> decode -> dispatch
// cycle on a dedicated goroutine. The extractor is owned exclusively by
// that goroutine; the latest-value cache is the only state shared with
// callers.
type Engine struct {
	tr  transport.Transport
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	cache *LatestCache

	bytesRead        atomic.Uint64
	samples          atomic.Uint64
	decodeErrors     atomic.Uint64
	bufferOverflows  atomic.Uint64
	callbackFaults   atomic.Uint64
	transportRetries atomic.Uint64
}

func New(tr transport.Transport, cfg Config, log zerolog.Logger) (*Engine, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}
	cfg = cfg.WithDefaults()
	return &Engine{
		tr:    tr,
		cfg:   cfg,
		log:   log.With().Str("component", "stream_engine").Logger(),
		cache: NewLatestCache(),
	}, nil
}

// Start launches the read loop. A nil callback is valid: polling via
// Latest is then the only consumption path. Starting a running engine
// warns and leaves the current loop (and its callback) in place.
func (e *Engine) Start(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.log.Warn().Msg("stream engine already running")
		return
	}
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	e.running = true
	// Each loop owns a fresh extractor, so a restart never inherits a
	// stale partial frame and never races a loop still winding down
	// after a timed-out Stop.
	go e.loop(e.stopCh, e.done, cb, framing.NewExtractor(e.cfg.BufferCeiling))
}

// Stop requests cooperative termination and waits up to StopTimeout for
// the loop to exit. The join is best-effort: on timeout Stop returns
// anyway and the loop winds down at its next tick. The latest-value
// slot is cleared either way.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	close(e.stopCh)
	done := e.done
	e.running = false
	e.mu.Unlock()

	select {
	case <-done:
	case <-time.After(e.cfg.StopTimeout):
		e.log.Warn().Dur("timeout", e.cfg.StopTimeout).Msg("stream loop did not exit before deadline")
	}
	e.cache.Clear()
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Latest returns a snapshot of the most recent decoded sample. Samples
// are coalesced here: only the last object of each dispatched batch is
// retained, so pollers always see the most current data. Consumers that
// need every sample must use the callback path.
func (e *Engine) Latest() (decode.Sample, bool) {
	return e.cache.Get()
}

func (e *Engine) Stats() Stats {
	return Stats{
		Running:          e.Running(),
		BytesRead:        e.bytesRead.Load(),
		Samples:          e.samples.Load(),
		DecodeErrors:     e.decodeErrors.Load(),
		BufferOverflows:  e.bufferOverflows.Load(),
		CallbackFaults:   e.callbackFaults.Load(),
		TransportRetries: e.transportRetries.Load(),
	}
}

func (e *Engine) loop(stopCh, done chan struct{}, cb Callback, ex *framing.Extractor) {
	defer close(done)
	e.log.Info().Msg("stream loop started")
	for {
		select {
		case <-stopCh:
			e.log.Info().Msg("stream loop stopped")
			return
		default:
		}
		e.iterate(stopCh, cb, ex)
	}
}

// iterate performs one loop pass. Steady-state errors never escape: the
// loop only terminates on explicit stop.
func (e *Engine) iterate(stopCh chan struct{}, cb Callback, ex *framing.Extractor) {
	if !e.tr.IsOpen() {
		e.transportRetries.Add(1)
		observability.RecordTransportRetry()
		sleepOrStop(stopCh, e.cfg.RetryInterval)
		return
	}

	chunk, err := e.tr.ReadAvailable()
	if err != nil {
		e.transportRetries.Add(1)
		observability.RecordTransportRetry()
		e.log.Error().Err(err).Msg("transport read failed")
		sleepOrStop(stopCh, e.cfg.RetryInterval)
		return
	}

	if len(chunk) > 0 {
		e.bytesRead.Add(uint64(len(chunk)))
		observability.RecordBytesRead(len(chunk))
		e.dispatch(ex.Ingest(chunk), cb)
	}
	sleepOrStop(stopCh, e.cfg.PollInterval)
}

// dispatch delivers every decoded sample to the callback in order, then
// coalesces the batch into the latest-value slot. Errors within the
// batch are logged and skipped; they never affect neighboring frames.
func (e *Engine) dispatch(results []framing.Result, cb Callback) {
	var last decode.Sample
	for _, res := range results {
		if res.Err != nil {
			if errors.Is(res.Err, framing.ErrBufferOverflow) {
				e.bufferOverflows.Add(1)
				observability.RecordBufferOverflow()
				e.log.Warn().Err(res.Err).Msg("receive buffer overflow, dropping unframeable data")
			} else {
				e.decodeErrors.Add(1)
				observability.RecordDecodeError()
				e.log.Error().Err(res.Err).Msg("malformed frame discarded")
			}
			continue
		}
		e.samples.Add(1)
		observability.RecordSampleDecoded()
		e.invoke(cb, res.Sample)
		last = res.Sample
	}
	if last != nil {
		e.cache.Set(last)
		observability.SetLastSampleTime(time.Now())
	}
}

// invoke isolates observer panics so one failing callback cannot stop
// the loop.
func (e *Engine) invoke(cb Callback, sample decode.Sample) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.callbackFaults.Add(1)
			observability.RecordCallbackFault()
			e.log.Error().Interface("panic", r).Msg("observer callback panicked")
		}
	}()
	cb(sample)
}

func sleepOrStop(stopCh chan struct{}, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stopCh:
	case <-timer.C:
	}
}
