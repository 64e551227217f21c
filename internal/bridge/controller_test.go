package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/colorbridge/internal/colorcmd"
	"github.com/nerrad567/colorbridge/internal/gateway"
)

var testAddress = gateway.DeviceAddress{0, 0, 0, 0, 0, 0, 0, 1}

func command(room string, r, g, b uint8) ColorCommand {
	return ColorCommand{
		ID:         uuid.New(),
		Room:       room,
		Color:      colorcmd.Color{R: r, G: g, B: b},
		ReceivedAt: time.Now(),
	}
}

// queued returns a closed queue holding cmds.
func queued(t *testing.T, cmds ...ColorCommand) *Queue[ColorCommand] {
	t.Helper()
	q := NewQueue[ColorCommand]()
	for _, c := range cmds {
		if err := q.Push(c); err != nil {
			t.Fatal(err)
		}
	}
	q.Close()
	return q
}

type recordingObserver struct {
	mu      sync.Mutex
	applied []gateway.RGBW
}

func (o *recordingObserver) ColorApplied(_ ColorCommand, _ gateway.DeviceAddress, rgbw gateway.RGBW) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = append(o.applied, rgbw)
}

func TestController_AppliesInOrderWithWhiteChannel(t *testing.T) {
	gw := newMockGateway()
	obs := &recordingObserver{}
	q := queued(t,
		command("!a", 255, 0, 0),
		command("!a", 10, 20, 30),
		command("!a", 200, 200, 200),
	)

	c := NewController(gw, nil, q, nil, ControllerConfig{Address: testAddress, Observer: obs}, nil)
	if got := c.State(); got != StateUninitialized {
		t.Errorf("State() before Run = %v", got)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []gateway.RGBW{{255, 0, 0, 0}, {10, 20, 30, 10}, {200, 200, 200, 200}}
	got := gw.Calls()
	if len(got) != len(want) {
		t.Fatalf("gateway calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, got[i], want[i])
		}
		if gw.addrs[i] != testAddress {
			t.Errorf("call %d address = %v", i, gw.addrs[i])
		}
	}

	if len(obs.applied) != 3 {
		t.Errorf("observer saw %d colours, want 3", len(obs.applied))
	}
	if c.State() != StateTerminated {
		t.Errorf("State() after Run = %v, want terminated", c.State())
	}
	if s := c.Stats(); s.Applied != 3 || s.LastAppliedHex != "#c8c8c8" {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestController_FailureContinues(t *testing.T) {
	gw := newMockGateway()
	gw.failOn[0] = gateway.ErrCommandFailed
	cam := &MockCamera{frame: []byte("frame")}
	frames := make(chan CapturedFrame, 4)

	q := queued(t, command("!a", 1, 2, 3), command("!b", 4, 5, 6))
	c := NewController(gw, cam, q, frames, ControllerConfig{Address: testAddress}, nil)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(gw.Calls()) != 2 {
		t.Errorf("gateway calls = %d, want 2", len(gw.Calls()))
	}
	if cam.Count() != 1 {
		t.Errorf("captures = %d, want 1 (only after the successful write)", cam.Count())
	}

	var got []CapturedFrame
	for f := range frames {
		got = append(got, f)
	}
	if len(got) != 1 || got[0].Room != "!b" {
		t.Errorf("frames = %+v, want one frame for !b", got)
	}

	if s := c.Stats(); s.Failed != 1 || s.Applied != 1 || s.Captured != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestController_CaptureFailureContinues(t *testing.T) {
	gw := newMockGateway()
	cam := &MockCamera{err: errBoom}
	frames := make(chan CapturedFrame, 2)

	c := NewController(gw, cam, queued(t, command("!a", 1, 1, 1), command("!a", 2, 2, 2)), frames, ControllerConfig{}, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cam.Count() != 2 || len(frames) != 0 {
		t.Errorf("captures = %d, frames = %d", cam.Count(), len(frames))
	}
	if c.Stats().CaptureFailed != 2 {
		t.Errorf("CaptureFailed = %d, want 2", c.Stats().CaptureFailed)
	}
}

func TestController_OverflowAbort(t *testing.T) {
	gw := newMockGateway()
	cam := &MockCamera{frame: []byte("f")}
	frames := make(chan CapturedFrame, 1)
	q := NewQueue[ColorCommand]()
	_ = q.Push(command("!a", 1, 0, 0))
	_ = q.Push(command("!a", 2, 0, 0))
	_ = q.Push(command("!a", 3, 0, 0))

	c := NewController(gw, cam, q, frames, ControllerConfig{Overflow: OverflowAbort}, nil)
	err := c.Run(context.Background())
	if !errors.Is(err, ErrFrameBacklog) {
		t.Fatalf("Run() error = %v, want ErrFrameBacklog", err)
	}

	if len(gw.Calls()) != 2 {
		t.Errorf("gateway calls = %d, want 2", len(gw.Calls()))
	}
	if c.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", c.State())
	}
	if err := q.Push(command("!a", 4, 0, 0)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Push() after abort error = %v, want ErrQueueClosed", err)
	}

	<-frames
	if _, ok := <-frames; ok {
		t.Error("frame channel not closed after abort")
	}
}

func TestController_OverflowDrop(t *testing.T) {
	gw := newMockGateway()
	cam := &MockCamera{frame: []byte("f")}
	frames := make(chan CapturedFrame, 1)
	q := queued(t, command("!a", 1, 0, 0), command("!a", 2, 0, 0), command("!a", 3, 0, 0))

	c := NewController(gw, cam, q, frames, ControllerConfig{Overflow: OverflowDrop}, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gw.Calls()) != 3 {
		t.Errorf("gateway calls = %d, want 3", len(gw.Calls()))
	}
	if got := c.Stats().FramesDropped; got != 2 {
		t.Errorf("FramesDropped = %d, want 2", got)
	}
}

func TestController_OverflowBlock(t *testing.T) {
	gw := newMockGateway()
	cam := &MockCamera{frame: []byte("f")}
	frames := make(chan CapturedFrame, 1)
	q := queued(t, command("!a", 1, 0, 0), command("!a", 2, 0, 0), command("!a", 3, 0, 0))

	c := NewController(gw, cam, q, frames, ControllerConfig{Overflow: OverflowBlock}, nil)

	received := make(chan int, 1)
	go func() {
		n := 0
		for range frames {
			time.Sleep(5 * time.Millisecond)
			n++
		}
		received <- n
	}()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := <-received; n != 3 {
		t.Errorf("frames received = %d, want 3", n)
	}
}

func TestController_GatewayDisconnected(t *testing.T) {
	gw := newMockGateway()
	gw.connected = false

	c := NewController(gw, nil, NewQueue[ColorCommand](), nil, ControllerConfig{}, nil)
	if err := c.Run(context.Background()); !errors.Is(err, ErrGatewayDisconnected) {
		t.Errorf("Run() error = %v, want ErrGatewayDisconnected", err)
	}
}

func TestController_ContextCancel(t *testing.T) {
	c := NewController(newMockGateway(), nil, NewQueue[ColorCommand](), nil, ControllerConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if c.State() != StateIdle {
		t.Errorf("State() while waiting = %v, want idle", c.State())
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateUninitialized, "uninitialized"},
		{StateConnected, "connected"},
		{StateIdle, "idle"},
		{StateApplying, "applying"},
		{StateTerminated, "terminated"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
