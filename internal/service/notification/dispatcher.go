package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/events"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/push"
	"github.com/edrive/ride-hailing/pkg/retry"
)

// Enqueuer hands push jobs to an out-of-process worker
type Enqueuer interface {
	Publish(ctx context.Context, v interface{}) error
}

// PushJob is the unit of work for the push worker
type PushJob struct {
	UserID string            `json:"user_id"`
	Token  string            `json:"token"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Config holds dispatcher configuration
type Config struct {
	Workers    int
	QueueSize  int
	Timeout    time.Duration
	StoreRetry retry.Policy
}

// Dispatcher persists notifications, publishes them live and pushes them to
// devices. Notify never blocks and never fails the caller: everything after
// the enqueue is logged and swallowed. A notification is stored at least
// once; a full queue parks it on a goroutine instead of dropping it.
type Dispatcher struct {
	repo    notification.Repository
	devices notification.DeviceRegistry
	broker  *pubsub.Broker
	pusher  push.Pusher
	jobs    Enqueuer
	logger  *logger.Logger
	config  Config

	queue    chan notification.Notification
	wg       sync.WaitGroup
	overflow sync.WaitGroup
	mu       sync.Mutex
	stopping bool
	once     sync.Once
	stop     chan struct{}
}

// NewDispatcher creates a dispatcher. jobs may be nil, in which case pushes
// are sent inline by the dispatcher's workers.
func NewDispatcher(repo notification.Repository, devices notification.DeviceRegistry, broker *pubsub.Broker, pusher push.Pusher, jobs Enqueuer, log *logger.Logger, config Config) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 256
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.StoreRetry.Attempts < 1 {
		config.StoreRetry = retry.Default
	}
	if pusher == nil {
		pusher = push.Nop{}
	}
	return &Dispatcher{
		repo:    repo,
		devices: devices,
		broker:  broker,
		pusher:  pusher,
		jobs:    jobs,
		logger:  log.Named("notifications"),
		config:  config,
		queue:   make(chan notification.Notification, config.QueueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("Notification dispatcher started", logger.Int("workers", d.config.Workers))
}

// Stop waits for parked notifications to reach the queue, drains it and
// waits for the workers to exit. Call it after Start.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.mu.Lock()
		d.stopping = true
		d.mu.Unlock()

		d.overflow.Wait()
		close(d.stop)
	})
	d.wg.Wait()
}

// Notify queues n for delivery. When the queue is full n waits on its own
// goroutine for room; after Stop it is delivered directly.
func (d *Dispatcher) Notify(ctx context.Context, n notification.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		go d.deliver(n)
		return
	}
	select {
	case d.queue <- n:
	default:
		metrics.NotificationsDispatched.WithLabelValues("overflow").Inc()
		d.logger.Warn("Notification queue full, parking",
			logger.UserID(n.UserID),
			logger.String("title", n.Title),
		)
		d.overflow.Add(1)
		go func() {
			defer d.overflow.Done()
			d.queue <- n
		}()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.stop:
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

// deliver runs on a fresh context: the request that triggered n may be gone.
func (d *Dispatcher) deliver(n notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	// Create is keyed by n.ID, so a retry after an ambiguous failure is safe.
	err := retry.Do(ctx, d.config.StoreRetry, func(attempt int) error {
		if attempt > 1 {
			metrics.NotificationsDispatched.WithLabelValues("store_retry").Inc()
		}
		return d.repo.Create(ctx, &n)
	})
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues("store_failed").Inc()
		d.logger.Error("Failed to store notification", logger.UserID(n.UserID), logger.Err(err))
		return
	}
	if d.broker != nil {
		d.broker.Publish(events.NotificationsTopic(n.UserID), events.Notification, n)
	}

	if err := d.push(ctx, n); err != nil {
		metrics.NotificationsDispatched.WithLabelValues("push_failed").Inc()
		d.logger.Warn("Push delivery failed", logger.UserID(n.UserID), logger.Err(err))
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("delivered").Inc()
}

func (d *Dispatcher) push(ctx context.Context, n notification.Notification) error {
	if d.devices == nil {
		return nil
	}
	token, err := d.devices.Token(ctx, n.UserID)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	job := PushJob{
		UserID: n.UserID,
		Token:  token,
		Title:  n.Title,
		Body:   n.Body,
		Data: map[string]string{
			"notification_id": n.ID,
			"type":            string(n.Type),
			"ride_request_id": n.RideRequestID,
		},
	}
	if d.jobs != nil {
		return d.jobs.Publish(ctx, job)
	}
	return Send(ctx, d.pusher, job)
}

// Send delivers one push job
func Send(ctx context.Context, pusher push.Pusher, job PushJob) error {
	_, err := pusher.Send(ctx, &push.Message{
		Token: job.Token,
		Title: job.Title,
		Body:  job.Body,
		Data:  job.Data,
	})
	return err
}

// JobHandler decodes queued push jobs and sends them. It is the consumer
// side of the job queue.
func JobHandler(pusher push.Pusher) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		var job PushJob
		if err := json.Unmarshal(body, &job); err != nil {
			return err
		}
		if job.Token == "" {
			return errors.New("push job without token")
		}
		return Send(ctx, pusher, job)
	}
}
