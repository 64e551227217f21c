package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/colorbridge/internal/camera"
	"github.com/nerrad567/colorbridge/internal/gateway"
)

var (
	// ErrFrameBacklog is returned by Controller.Run when a frame is
	// captured while the frame channel is full under OverflowAbort.
	ErrFrameBacklog = errors.New("bridge: frame backlog full")

	// ErrGatewayDisconnected is returned by Controller.Run when started
	// without a live gateway connection.
	ErrGatewayDisconnected = errors.New("bridge: gateway not connected")
)

// State is the lifecycle state of the Controller.
type State int32

// Controller states.
const (
	StateUninitialized State = iota
	StateConnected
	StateIdle
	StateApplying
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnected:
		return "connected"
	case StateIdle:
		return "idle"
	case StateApplying:
		return "applying"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// OverflowPolicy decides what happens to a frame when the channel is full.
type OverflowPolicy string

// Overflow policies.
const (
	// OverflowAbort terminates the controller with ErrFrameBacklog.
	OverflowAbort OverflowPolicy = "abort"

	// OverflowDrop discards the new frame.
	OverflowDrop OverflowPolicy = "drop"

	// OverflowBlock waits for the uploader to take a frame.
	OverflowBlock OverflowPolicy = "block"
)

// StateObserver is told about every colour applied to the light.
// It is called on the controller goroutine and must not block.
type StateObserver interface {
	ColorApplied(cmd ColorCommand, addr gateway.DeviceAddress, rgbw gateway.RGBW)
}

// ControllerConfig holds the controller's fixed parameters.
type ControllerConfig struct {
	Address  gateway.DeviceAddress
	Overflow OverflowPolicy

	// Limiter paces gateway writes. Nil means unlimited.
	Limiter *rate.Limiter

	// Observer is optional.
	Observer StateObserver
}

// ControllerStats holds operational counters.
type ControllerStats struct {
	State          string    `json:"state"`
	Applied        uint64    `json:"applied"`
	Failed         uint64    `json:"failed"`
	Captured       uint64    `json:"captured"`
	CaptureFailed  uint64    `json:"capture_failed"`
	FramesDropped  uint64    `json:"frames_dropped"`
	LastAppliedAt  time.Time `json:"last_applied_at,omitzero"`
	LastAppliedHex string    `json:"last_applied,omitempty"`
}

// Controller applies colour commands to the light.
//
// It is the single owner of the gateway connection and the camera: no other
// code path writes to either, so commands reach the light in queue order.
type Controller struct {
	gw       gateway.Connector
	cam      camera.Capturer
	commands *Queue[ColorCommand]
	frames   chan<- CapturedFrame
	cfg      ControllerConfig
	logger   Logger

	state atomic.Int32

	applied       atomic.Uint64
	failed        atomic.Uint64
	captured      atomic.Uint64
	captureFailed atomic.Uint64
	framesDropped atomic.Uint64
	lastApplied   atomic.Pointer[ColorCommand]
}

// NewController creates a controller. cam and frames are nil when no
// camera is attached.
func NewController(gw gateway.Connector, cam camera.Capturer, commands *Queue[ColorCommand], frames chan<- CapturedFrame, cfg ControllerConfig, logger Logger) *Controller {
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowAbort
	}
	return &Controller{
		gw:       gw,
		cam:      cam,
		commands: commands,
		frames:   frames,
		cfg:      cfg,
		logger:   orNop(logger),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Run processes commands until the queue is closed and drained, ctx ends,
// or a fatal frame backlog occurs. It locks the goroutine to its OS thread
// for the duration; the gateway and camera calls block.
//
// On return the command queue is closed and the frame channel, if any, is
// closed.
func (c *Controller) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer c.setState(StateTerminated)
	defer c.commands.Close()
	if c.frames != nil {
		defer close(c.frames)
	}

	if !c.gw.IsConnected() {
		return ErrGatewayDisconnected
	}
	c.setState(StateConnected)
	c.logger.Info("hardware controller started",
		"address", c.cfg.Address.String(),
		"camera", c.cam != nil,
		"overflow_policy", string(c.cfg.Overflow),
	)

	for {
		c.setState(StateIdle)

		cmd, err := c.commands.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				c.logger.Info("command queue closed, hardware controller stopping")
			}
			return nil
		}

		c.setState(StateApplying)
		if err := c.apply(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("hardware controller aborting", "error", err, "command_id", cmd.ID.String())
			return err
		}
	}
}

// apply runs one command. Only fatal conditions are returned.
func (c *Controller) apply(ctx context.Context, cmd ColorCommand) error {
	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	rgbw := gateway.RGBW(cmd.Color.RGBW())
	if err := c.gw.SetRGBW(ctx, c.cfg.Address, rgbw); err != nil {
		c.failed.Add(1)
		c.logger.Error("set colour failed",
			"command_id", cmd.ID.String(),
			"color", cmd.Color.Hex(),
			"error", err,
		)
		return nil
	}

	c.applied.Add(1)
	c.lastApplied.Store(&cmd)
	c.logger.Info("colour applied",
		"command_id", cmd.ID.String(),
		"color", cmd.Color.Hex(),
		"rgbw", cmd.Color.RGBW().String(),
		"latency", time.Since(cmd.ReceivedAt).String(),
	)
	if c.cfg.Observer != nil {
		c.cfg.Observer.ColorApplied(cmd, c.cfg.Address, rgbw)
	}

	if c.cam == nil {
		return nil
	}
	return c.capture(ctx, cmd)
}

func (c *Controller) capture(ctx context.Context, cmd ColorCommand) error {
	data, err := c.cam.Capture()
	if err != nil {
		c.captureFailed.Add(1)
		c.logger.Error("frame capture failed", "command_id", cmd.ID.String(), "error", err)
		return nil
	}
	c.captured.Add(1)

	frame := CapturedFrame{
		CommandID:  cmd.ID,
		Room:       cmd.Room,
		Data:       data,
		CapturedAt: timeNow(),
	}

	switch c.cfg.Overflow {
	case OverflowBlock:
		select {
		case c.frames <- frame:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case OverflowDrop:
		select {
		case c.frames <- frame:
		default:
			c.framesDropped.Add(1)
			c.logger.Warn("frame backlog full, dropping frame", "command_id", cmd.ID.String())
		}
		return nil
	default:
		select {
		case c.frames <- frame:
			return nil
		default:
			return fmt.Errorf("%w: %d frames awaiting upload", ErrFrameBacklog, cap(c.frames))
		}
	}
}

// Stats returns current counters.
func (c *Controller) Stats() ControllerStats {
	s := ControllerStats{
		State:         c.State().String(),
		Applied:       c.applied.Load(),
		Failed:        c.failed.Load(),
		Captured:      c.captured.Load(),
		CaptureFailed: c.captureFailed.Load(),
		FramesDropped: c.framesDropped.Load(),
	}
	if last := c.lastApplied.Load(); last != nil {
		s.LastAppliedAt = last.ReceivedAt
		s.LastAppliedHex = last.Color.Hex()
	}
	return s
}
