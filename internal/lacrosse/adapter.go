package lacrosse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Defaults for the JeeLink USB stick.
const (
	// DefaultBaudRate is the rate of the LaCrosseITPlusReader firmware.
	DefaultBaudRate = 57600

	// defaultOpenTimeout bounds the wait for the firmware banner.
	defaultOpenTimeout = 5 * time.Second

	// readPollTimeout is the serial read timeout. Reads return empty when it
	// expires so the receive loop can notice Close.
	readPollTimeout = 500 * time.Millisecond

	// readBufferSize is the size of a single serial read.
	readBufferSize = 256

	// maxLineLength discards runaway lines (noise without terminators).
	maxLineLength = 512

	// callbackQueueSize is the buffer size for the frame callback queue.
	callbackQueueSize = 100
)

// Config holds adapter settings.
type Config struct {
	// Device is the serial device path, e.g. "/dev/ttyUSB0".
	Device string

	// BaudRate defaults to DefaultBaudRate.
	BaudRate int

	// OpenTimeout bounds WaitForBanner. Default: 5 seconds.
	OpenTimeout time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	FramesRx      uint64
	FramesDropped uint64 // Frames dropped due to full callback queue
	InvalidFrames uint64
	OtherLines    uint64 // Firmware output that is not a LaCrosse frame
	ErrorsTotal   uint64
	LastActivity  time.Time
	Open          bool
	Scanning      bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Port is the byte stream to the radio. go.bug.st/serial ports satisfy it;
// Read must return (0, nil) on timeout rather than block forever.
type Port interface {
	io.ReadWriteCloser
}

// FrameSource is the part of the adapter the gateway depends on.
type FrameSource interface {
	SetOnFrame(callback func(Frame))
	SetOnError(callback func(error))
	StartScan() error
	IsOpen() bool
	Stats() Stats
	Close() error
}

// Ensure Adapter implements FrameSource.
var _ FrameSource = (*Adapter)(nil)

// Adapter reads LaCrosse frames from a JeeLink-style serial receiver.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Frame callbacks run on a single worker goroutine, in arrival order.
//
// Failure model:
//   - A read error after Open stops the receive loop and is reported once
//     through the error callback. There is no reconnect.
type Adapter struct {
	cfg  Config
	port Port

	writeMu sync.Mutex

	openMu sync.RWMutex
	open   bool

	scanning atomic.Bool

	// Firmware banner, set when a "[...]" line is read.
	infoMu  sync.RWMutex
	info    string
	infoSet chan struct{}
	infoOne sync.Once

	onFrame    func(Frame)
	onError    func(error)
	callbackMu sync.RWMutex

	// Single worker keeps frames ordered.
	callbackQueue chan Frame

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	now func() time.Time

	framesRx      atomic.Uint64
	framesDropped atomic.Uint64
	invalidFrames atomic.Uint64
	otherLines    atomic.Uint64
	errorsTotal   atomic.Uint64
	lastActivity  atomic.Int64 // Unix timestamp
}

// Open opens the serial device and starts reading.
//
// Frames are read and discarded until StartScan is called, so radio
// commands can be sent on a quiet callback path first.
//
// Parameters:
//   - cfg: Device path and line settings
//
// Returns:
//   - *Adapter: Open adapter
//   - error: ErrOpenFailed if the device cannot be opened or configured
func Open(cfg Config) (*Adapter, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: no device configured", ErrOpenFailed)
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}

	port, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, cfg.Device, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: set read timeout: %w", ErrOpenFailed, err)
	}

	return NewAdapter(port, cfg), nil
}

// NewAdapter wraps an already open port and starts the receive loop.
func NewAdapter(port Port, cfg Config) *Adapter {
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	a := &Adapter{
		cfg:           cfg,
		port:          port,
		open:          true,
		infoSet:       make(chan struct{}),
		callbackQueue: make(chan Frame, callbackQueueSize),
		done:          newCloseOnce(),
		now:           time.Now,
	}
	a.lastActivity.Store(time.Now().Unix())

	a.wg.Add(2)
	go a.callbackWorker()
	go a.receiveLoop()

	return a
}

// receiveLoop splits the serial stream into lines.
func (a *Adapter) receiveLoop() {
	defer a.wg.Done()

	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		if a.isClosed() {
			return
		}

		n, err := a.port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = a.drainLines(pending)
		}
		if err != nil {
			a.handleReadError(err)
			return
		}
	}
}

// drainLines handles every complete line in pending and returns the rest.
func (a *Adapter) drainLines(pending []byte) []byte {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(pending[:i], "\r"))
		pending = pending[i+1:]
		a.handleLine(line)
	}

	if len(pending) > maxLineLength {
		a.logWarn("discarding unterminated input", "bytes", len(pending))
		a.errorsTotal.Add(1)
		return pending[:0]
	}
	return pending
}

// handleLine classifies one line of firmware output.
func (a *Adapter) handleLine(line string) {
	if line == "" {
		return
	}
	a.lastActivity.Store(a.now().Unix())

	if isBanner(line) {
		a.setInfo(line)
		return
	}

	frame, err := ParseFrame(line)
	switch {
	case errors.Is(err, ErrUnsupportedFrame):
		a.otherLines.Add(1)
		a.logDebug("ignoring firmware output", "line", line)
		return
	case err != nil:
		a.invalidFrames.Add(1)
		a.logWarn("invalid frame", "line", line, "error", err)
		return
	}

	if !a.scanning.Load() {
		return
	}

	frame.ReceivedAt = a.now()
	a.framesRx.Add(1)

	a.callbackMu.RLock()
	hasCallback := a.onFrame != nil
	a.callbackMu.RUnlock()
	if !hasCallback {
		return
	}

	select {
	case a.callbackQueue <- frame:
	default:
		a.logError("callback queue full, dropping frame", nil)
		a.framesDropped.Add(1)
		a.errorsTotal.Add(1)
	}
}

// handleReadError ends the adapter after a read failure unless it was closed.
func (a *Adapter) handleReadError(err error) {
	if a.isClosed() {
		return
	}

	a.errorsTotal.Add(1)
	a.openMu.Lock()
	a.open = false
	a.openMu.Unlock()

	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("device closed: %w", err)
	}
	wrapped := fmt.Errorf("%w: %w", ErrReadFailed, err)
	a.logError("read failed", wrapped)

	a.callbackMu.RLock()
	onError := a.onError
	a.callbackMu.RUnlock()
	if onError != nil {
		onError(wrapped)
	}
}

// callbackWorker delivers frames to the callback, one at a time.
func (a *Adapter) callbackWorker() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done.Done():
			a.drainCallbackQueue()
			return
		case frame := <-a.callbackQueue:
			a.callbackMu.RLock()
			callback := a.onFrame
			a.callbackMu.RUnlock()

			if callback != nil {
				func() {
					defer func() {
						if r := recover(); r != nil {
							a.logError("frame callback panic", fmt.Errorf("%v", r))
						}
					}()
					callback(frame)
				}()
			}
		}
	}
}

// drainCallbackQueue discards queued frames during shutdown.
func (a *Adapter) drainCallbackQueue() {
	for {
		select {
		case <-a.callbackQueue:
		default:
			return
		}
	}
}

func (a *Adapter) setInfo(line string) {
	a.infoMu.Lock()
	a.info = line
	a.infoMu.Unlock()
	a.infoOne.Do(func() { close(a.infoSet) })
	a.logInfo("adapter firmware", "info", line)
}

// Info returns the last firmware banner, or "" if none was seen.
func (a *Adapter) Info() string {
	a.infoMu.RLock()
	defer a.infoMu.RUnlock()
	return a.info
}

// WaitForBanner blocks until the firmware banner was read.
//
// The JeeLink resets when the port opens and ignores commands until it
// has printed its banner.
//
// Returns:
//   - string: The banner
//   - error: ErrTimeout after Config.OpenTimeout, or the context error
func (a *Adapter) WaitForBanner(ctx context.Context) (string, error) {
	timer := time.NewTimer(a.cfg.OpenTimeout)
	defer timer.Stop()

	select {
	case <-a.infoSet:
		return a.Info(), nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no firmware banner after %s", ErrTimeout, a.cfg.OpenTimeout)
	case <-a.done.Done():
		return "", ErrNotOpen
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StartScan starts delivering frames to the callback.
func (a *Adapter) StartScan() error {
	if !a.IsOpen() {
		return ErrNotOpen
	}
	a.scanning.Store(true)
	a.logInfo("scan started", "device", a.cfg.Device)
	return nil
}

// SetOnFrame sets the callback for decoded frames.
//
// The callback runs on a single worker goroutine; a slow callback fills
// the queue and later frames are dropped. Panics are recovered and logged.
func (a *Adapter) SetOnFrame(callback func(Frame)) {
	a.callbackMu.Lock()
	a.onFrame = callback
	a.callbackMu.Unlock()
}

// SetOnError sets the callback for the fatal read error.
func (a *Adapter) SetOnError(callback func(error)) {
	a.callbackMu.Lock()
	a.onError = callback
	a.callbackMu.Unlock()
}

// SetLogger sets the logger for this adapter.
func (a *Adapter) SetLogger(logger Logger) {
	a.loggerMu.Lock()
	a.logger = logger
	a.loggerMu.Unlock()
}

// IsOpen returns true while the port is usable.
func (a *Adapter) IsOpen() bool {
	a.openMu.RLock()
	defer a.openMu.RUnlock()
	return a.open
}

// Stats returns current operational statistics.
func (a *Adapter) Stats() Stats {
	return Stats{
		FramesRx:      a.framesRx.Load(),
		FramesDropped: a.framesDropped.Load(),
		InvalidFrames: a.invalidFrames.Load(),
		OtherLines:    a.otherLines.Load(),
		ErrorsTotal:   a.errorsTotal.Load(),
		LastActivity:  time.Unix(a.lastActivity.Load(), 0),
		Open:          a.IsOpen(),
		Scanning:      a.scanning.Load(),
	}
}

// HealthCheck returns ErrNotOpen once the port has failed or closed.
func (a *Adapter) HealthCheck(_ context.Context) error {
	if !a.IsOpen() {
		return ErrNotOpen
	}
	return nil
}

// Close stops the receive loop and closes the port.
// Safe to call multiple times.
func (a *Adapter) Close() error {
	a.done.Close()
	a.scanning.Store(false)

	a.openMu.Lock()
	wasOpen := a.open
	a.open = false
	a.openMu.Unlock()

	err := a.port.Close()
	a.wg.Wait()

	if wasOpen {
		a.logInfo("adapter closed", "device", a.cfg.Device)
	}
	if err != nil && wasOpen {
		return fmt.Errorf("closing adapter: %w", err)
	}
	return nil
}

func (a *Adapter) isClosed() bool {
	select {
	case <-a.done.Done():
		return true
	default:
		return false
	}
}

func (a *Adapter) getLogger() Logger {
	a.loggerMu.RLock()
	defer a.loggerMu.RUnlock()
	return a.logger
}

func (a *Adapter) logDebug(msg string, keysAndValues ...any) {
	if logger := a.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (a *Adapter) logInfo(msg string, keysAndValues ...any) {
	if logger := a.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (a *Adapter) logWarn(msg string, keysAndValues ...any) {
	if logger := a.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (a *Adapter) logError(msg string, err error) {
	if logger := a.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
