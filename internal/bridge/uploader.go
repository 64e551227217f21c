package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/imaging"
)

// UploaderStats holds operational counters.
type UploaderStats struct {
	Posted uint64 `json:"posted"`
	Failed uint64 `json:"failed"`
}

// FrameObserver is told about every frame posted to chat.
// It must not block.
type FrameObserver interface {
	FramePosted(frame CapturedFrame, photo chat.UploadedPhoto)
}

// Uploader posts captured frames back to their rooms.
type Uploader struct {
	client     chat.Client
	frames     <-chan CapturedFrame
	transcoder imaging.Transcoder
	observer   FrameObserver
	logger     Logger

	posted atomic.Uint64
	failed atomic.Uint64
}

// NewUploader creates an uploader draining frames. observer may be nil.
func NewUploader(client chat.Client, frames <-chan CapturedFrame, transcoder imaging.Transcoder, observer FrameObserver, logger Logger) *Uploader {
	return &Uploader{
		client:     client,
		frames:     frames,
		transcoder: transcoder,
		observer:   observer,
		logger:     orNop(logger),
	}
}

// Run handles frames one at a time until the channel is closed or ctx
// ends. Per-frame failures are logged and never returned.
func (u *Uploader) Run(ctx context.Context) error {
	for {
		select {
		case frame, ok := <-u.frames:
			if !ok {
				return nil
			}
			if err := u.post(ctx, frame); err != nil {
				u.failed.Add(1)
				u.logger.Error("frame upload failed",
					"command_id", frame.CommandID.String(),
					"room", frame.Room,
					"error", err,
				)
				continue
			}
			u.posted.Add(1)
		case <-ctx.Done():
			return nil
		}
	}
}

func (u *Uploader) post(ctx context.Context, frame CapturedFrame) error {
	photo, err := u.transcoder.Transcode(frame.Data)
	if err != nil {
		return err
	}

	uploaded, err := u.client.UploadPhoto(ctx, chat.Photo{
		Name:        fmt.Sprintf("colorbridge-%s.jpg", frame.CommandID),
		ContentType: photo.ContentType,
		Data:        photo.Data,
		Width:       photo.Width,
		Height:      photo.Height,
	})
	if err != nil {
		return err
	}

	if err := u.client.SendPhoto(ctx, frame.Room, uploaded); err != nil {
		return err
	}

	u.logger.Info("frame posted",
		"command_id", frame.CommandID.String(),
		"room", frame.Room,
		"bytes", uploaded.Size,
	)
	if u.observer != nil {
		u.observer.FramePosted(frame, uploaded)
	}
	return nil
}

// Stats returns current counters.
func (u *Uploader) Stats() UploaderStats {
	return UploaderStats{Posted: u.posted.Load(), Failed: u.failed.Load()}
}
