package bridge

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nerrad567/colorbridge/internal/camera"
	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/colorcmd"
	"github.com/nerrad567/colorbridge/internal/gateway"
	"github.com/nerrad567/colorbridge/internal/imaging"
)

const defaultFrameBacklog = 2

// Options configures a Bridge.
type Options struct {
	Chat    chat.Client
	Gateway gateway.Connector
	Address gateway.DeviceAddress

	// Parser defaults to the "%color" prefix.
	Parser colorcmd.Parser

	// Camera enables frame capture and upload. Nil runs without a camera.
	Camera camera.Capturer

	EventBuffer  int
	FrameBacklog int
	Overflow     OverflowPolicy
	Limiter      *rate.Limiter
	Transcoder   imaging.Transcoder
	Observer     StateObserver
	Frames       FrameObserver
	Logger       Logger
}

// Status is a point-in-time view of the bridge.
type Status struct {
	Backend      string          `json:"backend"`
	QueueDepth   int             `json:"queue_depth"`
	FrameBacklog int             `json:"frame_backlog"`
	Camera       bool            `json:"camera"`
	Controller   ControllerStats `json:"controller"`
	Consumer     ConsumerStats   `json:"consumer"`
	Uploader     *UploaderStats  `json:"uploader,omitempty"`
}

// Bridge wires the consumer, controller and uploader together.
type Bridge struct {
	backend    string
	commands   *Queue[ColorCommand]
	frames     chan CapturedFrame
	consumer   *Consumer
	controller *Controller
	uploader   *Uploader
	logger     Logger
}

// New builds a bridge from opts.
func New(opts Options) (*Bridge, error) {
	if opts.Chat == nil {
		return nil, errors.New("bridge: chat client is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("bridge: gateway connector is required")
	}
	logger := orNop(opts.Logger)

	b := &Bridge{
		backend:  opts.Chat.Name(),
		commands: NewQueue[ColorCommand](),
		logger:   logger,
	}

	cfg := ControllerConfig{
		Address:  opts.Address,
		Overflow: opts.Overflow,
		Limiter:  opts.Limiter,
		Observer: opts.Observer,
	}

	if opts.Camera != nil {
		backlog := opts.FrameBacklog
		if backlog <= 0 {
			backlog = defaultFrameBacklog
		}
		b.frames = make(chan CapturedFrame, backlog)
		b.controller = NewController(opts.Gateway, opts.Camera, b.commands, b.frames, cfg, logger)
		b.uploader = NewUploader(opts.Chat, b.frames, opts.Transcoder, opts.Frames, logger)
	} else {
		b.controller = NewController(opts.Gateway, nil, b.commands, nil, cfg, logger)
	}

	b.consumer = NewConsumer(opts.Chat, opts.Parser, b.commands, opts.EventBuffer, logger)
	return b, nil
}

// Run starts all tasks and waits for them. It returns the first terminal
// failure: a chat stream error, a failed enqueue, or a controller abort.
//
// Cancelling ctx stops every task at once. When the chat stream ends by
// itself, queued commands and pending frames are still processed first.
func (b *Bridge) Run(ctx context.Context) error {
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	var g errgroup.Group

	g.Go(func() error {
		err := b.controller.Run(ctx)
		if err != nil {
			cancelConsumer()
		}
		return err
	})

	g.Go(func() error {
		return b.consumer.Run(consumerCtx)
	})

	if b.uploader != nil {
		g.Go(func() error {
			return b.uploader.Run(ctx)
		})
	}

	err := g.Wait()
	b.logger.Info("bridge stopped", "error", err)
	return err
}

// State returns the controller state.
func (b *Bridge) State() State {
	return b.controller.State()
}

// Status reports queue depths and counters.
func (b *Bridge) Status() Status {
	s := Status{
		Backend:      b.backend,
		QueueDepth:   b.commands.Len(),
		FrameBacklog: len(b.frames),
		Camera:       b.uploader != nil,
		Controller:   b.controller.Stats(),
		Consumer:     b.consumer.Stats(),
	}
	if b.uploader != nil {
		us := b.uploader.Stats()
		s.Uploader = &us
	}
	return s
}
