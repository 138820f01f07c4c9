package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one email to be attempted at most once.
type Task struct {
	To      string
	Subject string
	Body    string
}

// DispatcherConfig bounds the dispatcher's concurrency and queue depth.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:     3,
		QueueSize:   256,
		SendTimeout: 10 * time.Second,
	}
}

// Dispatcher delivers emails fire-and-forget: Enqueue never blocks the
// caller, each task gets a single bounded attempt, and failures are logged
// and dropped. It must never surface an error into a request that has
// already been persisted.
type Dispatcher struct {
	sender EmailSender
	log    *zap.Logger
	cfg    DispatcherConfig
	tasks  chan Task
	wg     sync.WaitGroup
}

func NewDispatcher(sender EmailSender, log *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sender: sender,
		log:    log,
		cfg:    cfg,
		tasks:  make(chan Task, cfg.QueueSize),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for task := range d.tasks {
				d.deliver(task)
			}
		}()
	}
}

// Enqueue submits a task without blocking. When the queue is full the task
// is dropped and logged; delivery is best-effort by contract.
func (d *Dispatcher) Enqueue(task Task) {
	if d.sender == nil {
		d.log.Warn("email sender not configured, dropping notification",
			zap.String("to", task.To),
			zap.String("subject", task.Subject))
		return
	}

	select {
	case d.tasks <- task:
	default:
		d.log.Warn("notification queue full, dropping notification",
			zap.String("to", task.To),
			zap.String("subject", task.Subject))
	}
}

func (d *Dispatcher) deliver(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	result, err := d.sender.SendEmail(ctx, task.To, task.Subject, task.Body)
	if err != nil {
		d.log.Error("failed to send notification",
			zap.String("to", task.To),
			zap.String("subject", task.Subject),
			zap.Error(err))
		return
	}

	d.log.Info("notification sent",
		zap.String("to", task.To),
		zap.String("subject", task.Subject),
		zap.String("message_id", result.MessageID))
}

// Stop drains the queue and waits for in-flight deliveries, up to the
// context deadline.
func (d *Dispatcher) Stop(ctx context.Context) error {
	close(d.tasks)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
