package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// startCaptureWait bounds how long a start command waits for a capture
// client before giving up.
const startCaptureWait = 30 * time.Second

// Op is a pipeline command posted on the bus.
type Op int

const (
	OpStartCapture Op = iota
	OpStopCapture
	OpProcess
	OpReset
)

func (op Op) String() string {
	switch op {
	case OpStartCapture:
		return "start"
	case OpStopCapture:
		return "stop"
	case OpProcess:
		return "process"
	case OpReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command is one recording request. Source is only meaningful for
// OpStartCapture.
type Command struct {
	Op     Op
	Source models.SourceKind
}

// Bus decouples the surfaces that request recording actions from the
// one orchestrator that executes them. Any handler may post; exactly
// one consumer drains.
type Bus struct {
	ch chan Command
}

// NewBus creates a bus with a small buffer so posting surfaces do not
// block on a busy orchestrator.
func NewBus() *Bus {
	return &Bus{ch: make(chan Command, 16)}
}

// Post enqueues a command. It fails rather than blocks when the
// orchestrator has fallen behind.
func (b *Bus) Post(cmd Command) error {
	select {
	case b.ch <- cmd:
		return nil
	default:
		return fmt.Errorf("pipeline: request bus full, %s dropped", cmd.Op)
	}
}

// Serve consumes bus commands and applies them to the orchestrator
// until ctx is cancelled. Command failures are logged, never fatal.
func (o *Orchestrator) Serve(ctx context.Context, bus *Bus, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-bus.ch:
			var err error
			switch cmd.Op {
			case OpStartCapture:
				// Starting waits for a capture client to offer a
				// stream; bound that wait so the loop cannot stall
				// on a request nobody answers.
				startCtx, cancel := context.WithTimeout(ctx, startCaptureWait)
				err = o.StartCapture(startCtx, cmd.Source)
				cancel()
			case OpStopCapture:
				err = o.StopCapture(ctx)
			case OpProcess:
				err = o.Process(ctx)
			case OpReset:
				o.Reset()
			}
			if err != nil {
				logger.Warn("pipeline: bus command failed",
					slog.String("op", cmd.Op.String()),
					slog.String("error", err.Error()))
			}
		}
	}
}
