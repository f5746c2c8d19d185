// Package supervisor keeps exactly one device link usable across resets,
// power loss, and transient I/O errors, transparently to the rest of the
// application.
//
// The supervisor is a background goroutine talking to the owner through two
// bounded channels (commands in, events out) plus one mutex-guarded mirror
// of the applied sensor configuration. The link itself is never shared: the
// goroutine is its only user.
package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chordd/internal/device"
	"chordd/internal/serialport"
)

// ErrStopped is returned for commands enqueued after Close.
var ErrStopped = errors.New("supervisor: stopped")

// errEventQueueFull escalates consumer backpressure into a reconnect: a
// consumer that stops draining forces a visible resync instead of silently
// losing sensor events.
var errEventQueueFull = errors.New("supervisor: event queue full")

// errStopping signals a clean shutdown request inside the serve loop.
var errStopping = errors.New("supervisor: stopping")

// link is the slice of device.Link the supervisor drives. Tests substitute
// a scripted fake.
type link interface {
	PollEvent() (*device.Event, error)
	SetSensor(id uint8, cfg device.SensorConfig) error
	Close() error
}

// Options tunes the supervisor. The backoffs are configuration, not
// constants: the right values depend on how fast the board re-enumerates.
type Options struct {
	// Verify requires firmware identity verification on every open.
	Verify bool

	// ReconnectBackoff is the pause after a connectivity-class failure
	// before the next connection attempt.
	ReconnectBackoff time.Duration

	// RetryBackoff is the pause after a protocol-class failure before
	// retrying on the same connection.
	RetryBackoff time.Duration

	// QueueSize bounds both the command and the event channel.
	QueueSize int
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Verify:           true,
		ReconnectBackoff: 5 * time.Second,
		RetryBackoff:     2 * time.Second,
		QueueSize:        10,
	}
}

type command struct {
	id  uint8
	cfg device.SensorConfig
}

// Supervisor owns the device link and its lifecycle.
type Supervisor struct {
	opts Options
	port serialport.Port

	commands chan command
	events   chan device.Event

	connected atomic.Bool
	store     *sensorStore

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	done    chan struct{}

	// seams for tests
	openLink func(port serialport.Port, verify bool) (link, error)
	upload   func(port serialport.Port) (serialport.Port, error)
}

// New starts a supervisor for the device at port, with sensors holding the
// initial configuration of each sensor slot (index = sensor id).
func New(port serialport.Port, sensors []device.SensorConfig, opts Options) *Supervisor {
	s := newSupervisor(port, sensors, opts)
	s.openLink = openDevice
	s.upload = device.Upload
	s.start()
	return s
}

func newSupervisor(port serialport.Port, sensors []device.SensorConfig, opts Options) *Supervisor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = DefaultOptions().ReconnectBackoff
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultOptions().RetryBackoff
	}

	return &Supervisor{
		opts:     opts,
		port:     port,
		commands: make(chan command, opts.QueueSize),
		events:   make(chan device.Event, opts.QueueSize),
		store:    newSensorStore(sensors),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Supervisor) start() {
	go s.run()
}

func openDevice(port serialport.Port, verify bool) (link, error) {
	return device.Open(port, verify)
}

// Connected reports whether a verified, configured link is currently
// servicing traffic.
func (s *Supervisor) Connected() bool {
	return s.connected.Load()
}

// Events returns the event queue. Receives should be non-blocking; a
// consumer that stops draining forces a reconnect once the queue fills.
func (s *Supervisor) Events() <-chan device.Event {
	return s.events
}

// PollEvents drains and returns every event currently queued.
func (s *Supervisor) PollEvents() []device.Event {
	var drained []device.Event
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return drained
			}
			drained = append(drained, ev)
		default:
			return drained
		}
	}
}

// SetThresholds enqueues a threshold change for one sensor. The queue
// survives a disconnect: commands enqueued while the device is away are
// applied right after the reconnect reconfiguration. The send is bounded
// and may block briefly if the queue is full. Returns ErrStopped after
// Close.
func (s *Supervisor) SetThresholds(id uint8, low, high uint8) error {
	cfg, ok := s.store.get(id)
	if !ok {
		return fmt.Errorf("supervisor: unknown sensor %d", id)
	}
	if err := cfg.SetThresholds(low, high); err != nil {
		return err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrStopped
	}

	select {
	case s.commands <- command{id: id, cfg: cfg}:
		return nil
	case <-s.closing:
		return ErrStopped
	}
}

// SensorConfig returns the currently-applied configuration of one sensor.
func (s *Supervisor) SensorConfig(id uint8) (device.SensorConfig, bool) {
	return s.store.get(id)
}

// Close signals the background goroutine to stop after its current step
// and blocks until it has exited, at which point the link is closed and
// its reset line deasserted.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	<-s.done
	close(s.events)
	return nil
}

// run is the connection state machine: Connecting -> Connected -> (error)
// -> Connecting -> ... -> Stopped.
func (s *Supervisor) run() {
	defer close(s.done)

	port := s.port
	uploadTried := false

	for {
		if s.stopping() {
			break
		}

		lnk, err := s.connect(&port, &uploadTried)
		if err != nil {
			slog.Error("could not connect to the device", "port", port, "error", err)
			if s.backoff(s.opts.ReconnectBackoff) {
				break
			}
			continue
		}

		stopped := s.connectedCycle(lnk, port)
		if stopped {
			break
		}
		if s.backoff(s.opts.ReconnectBackoff) {
			break
		}
	}

	slog.Info("supervisor stopped")
}

// connectedCycle services one connection until it fails or Close is
// requested. Returns true when the supervisor should stop.
func (s *Supervisor) connectedCycle(lnk link, port serialport.Port) (stopped bool) {
	defer lnk.Close()

	log := slog.With("cycle", uuid.NewString()[:8], "port", port.String())
	log.Info("device connected")
	s.connected.Store(true)
	defer s.connected.Store(false)

	for {
		err := s.serve(lnk)
		if errors.Is(err, errStopping) {
			return true
		}

		log.Error("connection cycle error", "error", err)
		if device.IsIO(err) || errors.Is(err, errEventQueueFull) {
			// The link is gone (or the consumer stalled); force a
			// full reconnect so state is re-synced.
			log.Info("ending connection cycle", "backoff", s.opts.ReconnectBackoff)
			return false
		}

		// Protocol-class failure: the link itself still works.
		log.Info("retrying on the same connection", "backoff", s.opts.RetryBackoff)
		if s.backoff(s.opts.RetryBackoff) {
			return true
		}
	}
}

// serve drains pending commands, then performs exactly one event poll, in a
// loop. Commands always take effect before the next reported event.
func (s *Supervisor) serve(lnk link) error {
	for {
		select {
		case <-s.closing:
			return errStopping
		case cmd := <-s.commands:
			if err := lnk.SetSensor(cmd.id, cmd.cfg); err != nil {
				return err
			}
			s.store.set(cmd.id, cmd.cfg)
		default:
			ev, err := lnk.PollEvent()
			if err != nil {
				return err
			}
			if ev == nil {
				continue
			}
			select {
			case s.events <- *ev:
			default:
				return errEventQueueFull
			}
		}
	}
}

// connect opens (and verifies) the link, reflashing the firmware at most
// once per supervisor lifetime if verification fails, then reapplies every
// configured sensor before any traffic flows.
func (s *Supervisor) connect(port *serialport.Port, uploadTried *bool) (link, error) {
	lnk, err := s.openLink(*port, s.opts.Verify)
	if err != nil {
		var verr *device.VerificationError
		if !errors.As(err, &verr) || *uploadTried {
			return nil, err
		}

		*uploadTried = true
		slog.Warn("verification failed, reflashing the firmware once", "error", err)
		fresh, uerr := s.upload(*port)
		if uerr != nil {
			return nil, fmt.Errorf("reflash after failed verification: %w", uerr)
		}
		*port = fresh

		lnk, err = s.openLink(*port, s.opts.Verify)
		if err != nil {
			return nil, err
		}
	}

	for id, cfg := range s.store.snapshot() {
		if err := lnk.SetSensor(uint8(id), cfg); err != nil {
			lnk.Close()
			return nil, fmt.Errorf("reapply sensor %d: %w", id, err)
		}
	}
	return lnk, nil
}

// stopping reports whether Close has been requested.
func (s *Supervisor) stopping() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// backoff waits d before the next attempt, returning early (true) if
// Close is requested meanwhile. Commands arriving during the wait stay
// queued for the next connection.
func (s *Supervisor) backoff(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.closing:
		return true
	case <-timer.C:
		return false
	}
}
