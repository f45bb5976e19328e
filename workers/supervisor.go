package workers

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"chat-duo/errors"
)

// Worker doesn't protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// workerName uses reflection to name a worker for logs, avoiding a manual
// naming method on the interface.
func workerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Supervisor runs each worker in its own goroutine, recovers panics and
// restarts crashed workers until the context is canceled. A failure in one
// worker never stops the supervisor itself.
type Supervisor struct {
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...Worker) *Supervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every registered worker under a cancellation scope tied to the
// parent context and blocks until they all finish.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer s.cancel()

	for _, worker := range s.workers {
		s.start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) start(ctx context.Context, worker Worker) {
	s.wg.Add(1)
	name := workerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", name))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart.
				s.log.Info(fmt.Sprintf("Worker finished : %s", name))
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels the supervised context; Run returns once all workers exit.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}
