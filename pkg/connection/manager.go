// Package connection owns a byte source, feeds it through a framing
// reader, and republishes assembled messages to a bounded queue,
// reconnecting under an exponential back-off with a connection-loss
// circuit breaker.
package connection

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/halvorlund/hanreader/pkg/hdlc"
	"github.com/halvorlund/hanreader/pkg/meter"
	"github.com/halvorlund/hanreader/pkg/moded"
)

// Conn is the minimal shape a transport connection must offer: a
// blocking byte source that unblocks and returns an error on close.
type Conn interface {
	io.Reader
	io.Closer
}

// Factory opens a new transport connection. It is called at most once
// at a time; the manager awaits its result serially before the next
// attempt.
type Factory func(ctx context.Context) (Conn, error)

// Profile selects which incremental reader feeds the queue.
type Profile int

// Supported framing profiles.
const (
	ProfileHDLC Profile = iota
	ProfileModeD
)

// Options configures a Manager. Zero values fall back to the
// documented defaults.
type Options struct {
	Profile Profile

	UseOctetStuffing bool
	UseAbortSequence bool

	ConnectErrorMaxDelay            time.Duration
	ConnectionLostBackOffThreshold  time.Duration
	ConnectionLostBackOffSleep      time.Duration

	QueueSize int

	Logger *log.Logger
}

const (
	defaultConnectionLostThreshold = 5 * time.Second
	defaultConnectionLostSleep     = 5 * time.Second
	defaultQueueSize               = 64
)

// Manager runs the single-threaded cooperative connection loop
// described in the specification: Connecting, Receiving,
// Connection-lost, Backing-off, Closed.
type Manager struct {
	factory Factory
	opts    Options
	log     *log.Logger

	backOff BackOffStrategy

	queue chan meter.Message

	closing chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu                      sync.Mutex
	connectionLostLastTime  time.Time
	connectionLostSleepNext bool
}

// NewManager constructs a Manager that will call factory to open
// connections and deliver assembled messages on Messages().
func NewManager(factory Factory, opts Options) *Manager {
	if opts.ConnectionLostBackOffThreshold <= 0 {
		opts.ConnectionLostBackOffThreshold = defaultConnectionLostThreshold
	}
	if opts.ConnectionLostBackOffSleep <= 0 {
		opts.ConnectionLostBackOffSleep = defaultConnectionLostSleep
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Manager{
		factory: factory,
		opts:    opts,
		log:     opts.Logger,
		backOff: NewExponentialBackOff(opts.ConnectErrorMaxDelay),
		queue:   make(chan meter.Message, opts.QueueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Messages returns the channel completed messages are delivered on.
// The queue is bounded; when full, new messages are dropped and
// logged at warn level rather than blocking the reader. The channel
// is closed when Run returns.
func (m *Manager) Messages() <-chan meter.Message {
	return m.queue
}

// Close stops the connect loop and unblocks any pending read or
// back-off sleep. It does not wait for the loop to exit; use Wait for
// that.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.closing)
	})
}

// Wait blocks until the connect loop has exited.
func (m *Manager) Wait() {
	<-m.done
}

// Run drives the connect loop until Close is called or ctx is
// cancelled. It is intended to be called from its own goroutine.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	defer close(m.queue)

	for {
		select {
		case <-m.closing:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, connected := m.connect(ctx)
		if !connected {
			return
		}

		lastConnectedAt := time.Now()
		lost := m.receive(ctx, conn)
		conn.Close()

		select {
		case <-m.closing:
			return
		case <-ctx.Done():
			return
		default:
		}

		if lost {
			m.log.Warn("connection lost")
			m.updateCircuitBreaker(time.Since(lastConnectedAt))
		}
	}
}

func (m *Manager) connect(ctx context.Context) (Conn, bool) {
	for {
		delay := m.backOffDelay()
		if delay > 0 {
			m.log.Infof("backing off %s before reconnecting", delay)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-m.closing:
				timer.Stop()
				return nil, false
			case <-ctx.Done():
				timer.Stop()
				return nil, false
			}
		}

		m.log.Debug("connecting")
		conn, err := m.factory(ctx)
		if err != nil {
			m.backOff.Failure()
			m.log.Warnf("connect error: %v", err)
			continue
		}

		m.backOff.Reset()
		m.log.Info("connected")
		return conn, true
	}
}

func (m *Manager) backOffDelay() time.Duration {
	connectDelay := m.backOff.CurrentDelay()

	m.mu.Lock()
	sleepForLoss := m.connectionLostSleepNext
	m.mu.Unlock()

	reconnectSleep := time.Duration(0)
	if sleepForLoss {
		reconnectSleep = m.opts.ConnectionLostBackOffSleep
	}

	if connectDelay > reconnectSleep {
		return connectDelay
	}
	return reconnectSleep
}

func (m *Manager) updateCircuitBreaker(connectedFor time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionLostSleepNext = connectedFor < m.opts.ConnectionLostBackOffThreshold
	m.connectionLostLastTime = time.Now()
}

// receive reads chunks from conn, feeds the configured reader, and
// enqueues every completed message until conn returns an error (lost)
// or the manager is closed (not lost).
func (m *Manager) receive(ctx context.Context, conn Conn) bool {
	type readResult struct {
		n   int
		err error
	}

	buf := make([]byte, 4096)
	chunks := make(chan readResult, 1)

	go func() {
		n, err := conn.Read(buf)
		chunks <- readResult{n: n, err: err}
	}()

	var hdlcReader *hdlc.Reader
	var modedReader *moded.Reader
	switch m.opts.Profile {
	case ProfileHDLC:
		hdlcReader = hdlc.NewReader(hdlc.Options{
			UseOctetStuffing: m.opts.UseOctetStuffing,
			UseAbortSequence: m.opts.UseAbortSequence,
		})
	default:
		modedReader = moded.NewReader()
	}

	for {
		select {
		case <-m.closing:
			return false
		case <-ctx.Done():
			return false
		case res := <-chunks:
			if res.err != nil {
				return true
			}

			data := make([]byte, res.n)
			copy(data, buf[:res.n])

			switch m.opts.Profile {
			case ProfileHDLC:
				for _, f := range hdlcReader.Read(data) {
					m.enqueue(meter.NewHDLCMessage(f))
				}
			default:
				for _, r := range modedReader.Read(data) {
					m.enqueue(meter.NewP1Message(r))
				}
			}

			go func() {
				n, err := conn.Read(buf)
				chunks <- readResult{n: n, err: err}
			}()
		}
	}
}

func (m *Manager) enqueue(msg meter.Message) {
	select {
	case m.queue <- msg:
	default:
		m.log.Warn("queue full, dropping newest message")
	}
}
