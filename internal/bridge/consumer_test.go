package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/colorcmd"
)

func drainQueue(q *Queue[ColorCommand]) []ColorCommand {
	var out []ColorCommand
	for {
		cmd, err := q.Pop(context.Background())
		if err != nil {
			return out
		}
		out = append(out, cmd)
	}
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name      string
		events    []chat.Event
		wantRooms []string
		wantColor []colorcmd.Color
	}{
		{
			name:      "plain message is not a command",
			events:    []chat.Event{message("!a", "hello world")},
			wantRooms: nil,
		},
		{
			name:      "invalid colour is skipped and later commands still queue",
			events:    []chat.Event{message("!a", "%color notacolor"), message("!a", "%color blue")},
			wantRooms: []string{"!a"},
			wantColor: []colorcmd.Color{{R: 0, G: 0, B: 255}},
		},
		{
			name: "non-message events are ignored",
			events: []chat.Event{
				{Kind: chat.KindOther, Type: "m.room.member", Room: "!a", Body: "%color red"},
				{Kind: chat.KindMessage, Room: "", Body: "%color red"},
				{Kind: chat.KindMessage, Room: "!a", Body: ""},
			},
			wantRooms: nil,
		},
		{
			name:      "commands keep room and order",
			events:    []chat.Event{message("!a", "%color red"), message("!b", "%color   #00ff00  ")},
			wantRooms: []string{"!a", "!b"},
			wantColor: []colorcmd.Color{{R: 255}, {G: 255}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue[ColorCommand]()
			c := NewConsumer(&MockChat{events: tt.events}, colorcmd.NewParser(""), q, 4, nil)

			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			got := drainQueue(q)
			if len(got) != len(tt.wantRooms) {
				t.Fatalf("queued %d commands, want %d", len(got), len(tt.wantRooms))
			}
			for i, cmd := range got {
				if cmd.Room != tt.wantRooms[i] {
					t.Errorf("command %d room = %q, want %q", i, cmd.Room, tt.wantRooms[i])
				}
				if cmd.Color != tt.wantColor[i] {
					t.Errorf("command %d color = %v, want %v", i, cmd.Color, tt.wantColor[i])
				}
				if cmd.ReceivedAt.IsZero() {
					t.Errorf("command %d has no receive time", i)
				}
			}
		})
	}
}

func TestConsumer_UniqueCommandIDs(t *testing.T) {
	q := NewQueue[ColorCommand]()
	events := []chat.Event{message("!a", "%color red"), message("!a", "%color red")}
	c := NewConsumer(&MockChat{events: events}, colorcmd.Parser{}, q, 1, nil)

	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := drainQueue(q)
	if len(got) != 2 || got[0].ID == got[1].ID {
		t.Errorf("command IDs not unique: %+v", got)
	}
}

func TestConsumer_StreamFailureIsTerminal(t *testing.T) {
	q := NewQueue[ColorCommand]()
	mock := &MockChat{
		events: []chat.Event{message("!a", "%color red")},
		endErr: chat.ErrStreamFailed,
	}
	c := NewConsumer(mock, colorcmd.Parser{}, q, 8, nil)

	if err := c.Run(context.Background()); !errors.Is(err, chat.ErrStreamFailed) {
		t.Fatalf("Run() error = %v, want ErrStreamFailed", err)
	}

	// The command received before the failure is still queued, and the
	// queue is closed so the controller winds down.
	if got := drainQueue(q); len(got) != 1 {
		t.Errorf("queued %d commands, want 1", len(got))
	}
	if err := q.Push(command("!a", 0, 0, 0)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("queue still open after stream failure")
	}
}

func TestConsumer_PushFailureIsFatal(t *testing.T) {
	q := NewQueue[ColorCommand]()
	q.Close()
	mock := &MockChat{events: []chat.Event{message("!a", "%color red")}, hold: true}
	c := NewConsumer(mock, colorcmd.Parser{}, q, 1, nil)

	if err := c.Run(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Run() error = %v, want ErrQueueClosed", err)
	}
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConsumer(&MockChat{hold: true}, colorcmd.Parser{}, NewQueue[ColorCommand](), 1, nil)
	if err := c.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestConsumer_Stats(t *testing.T) {
	events := []chat.Event{
		message("!a", "hello"),
		message("!a", "%color red"),
		message("!a", "%color nope"),
	}
	c := NewConsumer(&MockChat{events: events}, colorcmd.Parser{}, NewQueue[ColorCommand](), 4, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := ConsumerStats{Messages: 3, Queued: 1, Rejected: 1}
	if got := c.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
