package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Default timeouts and ports for gateway communication.
const (
	// DefaultPort is used when the configured host carries no port.
	DefaultPort = "4000"

	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 5 * time.Second

	// defaultReconnectInterval is the first wait after a failed redial.
	defaultReconnectInterval = 2 * time.Second

	// maxReconnectInterval caps the redial backoff.
	maxReconnectInterval = time.Minute
)

// Config holds gateway connection configuration.
type Config struct {
	// Host is "host" or "host:port".
	Host string

	// ConnectTimeout bounds each dial. Default: 10 seconds.
	ConnectTimeout time.Duration

	// RequestTimeout bounds one write plus its acknowledgement. Default: 5 seconds.
	RequestTimeout time.Duration

	// ReconnectInterval is the wait after a failed redial before the next
	// one is tried. It doubles per failure up to one minute. Default: 2 seconds.
	ReconnectInterval time.Duration

	// TransitionTime is sent with every colour, in tenths of a second.
	TransitionTime uint16
}

// Stats holds operational statistics.
type Stats struct {
	CommandsTx     uint64
	CommandsFailed uint64
	Reconnects     uint64 // Successful redials
	LastActivity   time.Time
	Connected      bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Connector is the part of the client the bridge depends on.
// It allows mocking the gateway in tests.
type Connector interface {
	SetRGBW(ctx context.Context, addr DeviceAddress, color RGBW) error
	IsConnected() bool
	Stats() Stats
	Close() error
}

// Ensure Client implements Connector.
var _ Connector = (*Client)(nil)

// Client is a connection to the lighting gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use; requests are serialised.
//
// Reconnection:
//   - A transport or framing failure closes the connection and fails that
//     request. The request is not retried.
//   - The next SetRGBW redials before writing. When the redial fails the
//     request fails with ErrNotConnected and further redials are held off
//     with exponential backoff, so queued commands fail fast meanwhile.
//   - Only Close stops reconnection.
type Client struct {
	cfg     Config
	address string

	// reqMu serialises requests so only one is in flight. It also guards
	// conn and the backoff state.
	reqMu      sync.Mutex
	conn       net.Conn
	backoff    time.Duration
	nextRedial time.Time

	connected atomic.Bool
	closed    atomic.Bool
	nextID    atomic.Uint32

	logger   Logger
	loggerMu sync.RWMutex

	commandsTx     atomic.Uint64
	commandsFailed atomic.Uint64
	lastActivity   atomic.Int64
	reconnects     atomic.Uint64
}

// Dial opens the persistent connection to the gateway.
//
// Parameters:
//   - ctx: Context for cancellation of the dial
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: Connected client
//   - error: wrapping ErrConnectionFailed if the gateway is unreachable
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	address, err := hostWithPort(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		cfg:     cfg,
		address: address,
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.connected.Store(true)
	c.lastActivity.Store(time.Now().Unix())

	return c, nil
}

// dial opens a TCP connection to the gateway within ConnectTimeout.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.address, err)
	}
	return conn, nil
}

// hostWithPort appends DefaultPort when host has no port.
func hostWithPort(host string) (string, error) {
	if host == "" {
		return "", errors.New("empty gateway host")
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, DefaultPort), nil
}

// SetRGBW sets the colour of one device and waits for the acknowledgement.
//
// A broken connection is redialled first.
//
// Returns:
//   - ErrNotConnected if the client is closed or the redial fails
//   - an error wrapping ErrCommandFailed for a negative acknowledgement,
//     a transport failure or a protocol mismatch
func (c *Client) SetRGBW(ctx context.Context, addr DeviceAddress, color RGBW) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if c.closed.Load() {
		return ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	if !c.connected.Load() {
		if err := c.redial(ctx); err != nil {
			c.commandsFailed.Add(1)
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	id := c.nextID.Add(1)
	err := c.roundTrip(ctx, id, encodeSetColor(id, addr, color, c.cfg.TransitionTime))
	if err != nil {
		c.commandsFailed.Add(1)
		if errors.Is(err, ErrCommandFailed) {
			return err
		}
		// Transport or framing failure: the stream can no longer be trusted.
		c.markBroken(err)
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	c.commandsTx.Add(1)
	c.lastActivity.Store(time.Now().Unix())
	c.logDebug("colour set", "address", addr.String(), "rgbw", color[:], "request_id", id)
	return nil
}

// roundTrip writes one request and reads its acknowledgement.
// Must be called with reqMu held.
func (c *Client) roundTrip(ctx context.Context, id uint32, frame []byte) error {
	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	resp, err := readResponse(c.conn)
	if err != nil {
		return err
	}

	return resp.check(id)
}

// markBroken closes the connection after a transport failure. The next
// request redials immediately.
// Must be called with reqMu held.
func (c *Client) markBroken(cause error) {
	if c.connected.CompareAndSwap(true, false) {
		c.logError("gateway connection broken", cause)
		c.conn.Close()
		c.conn = nil
		c.backoff = 0
		c.nextRedial = time.Time{}
	}
}

// redial replaces a broken connection, honouring the backoff left by an
// earlier failed attempt.
// Must be called with reqMu held.
func (c *Client) redial(ctx context.Context) error {
	now := time.Now()
	if now.Before(c.nextRedial) {
		return fmt.Errorf("redial backoff, next attempt in %s", c.nextRedial.Sub(now).Round(time.Millisecond))
	}

	conn, err := c.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.backoff = nextBackoff(c.backoff, c.cfg.ReconnectInterval)
		c.nextRedial = time.Now().Add(c.backoff)
		c.logWarn("gateway redial failed", "error", err, "backoff", c.backoff.String())
		return err
	}

	c.conn = conn
	c.backoff = 0
	c.nextRedial = time.Time{}
	c.connected.Store(true)
	c.reconnects.Add(1)
	c.logInfo("gateway reconnected", "address", c.address)
	return nil
}

// nextBackoff doubles current, starting at initial and capped at
// maxReconnectInterval.
func nextBackoff(current, initial time.Duration) time.Duration {
	if current == 0 {
		return initial
	}
	return min(current*2, maxReconnectInterval)
}

// IsConnected returns whether the connection is currently open. A broken
// connection reports false until the next request redials it.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// HealthCheck reports whether the gateway connection is open.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("gateway health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		CommandsTx:     c.commandsTx.Load(),
		CommandsFailed: c.commandsFailed.Load(),
		Reconnects:     c.reconnects.Load(),
		LastActivity:   time.Unix(c.lastActivity.Load(), 0),
		Connected:      c.IsConnected(),
	}
}

// Close closes the connection and stops reconnection. Safe to call more
// than once.
func (c *Client) Close() error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("closing gateway connection: %w", err)
	}
	return nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
