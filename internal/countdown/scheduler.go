package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "github.com/hanko-field/promoclock/internal/countdown"

// Callbacks receive snapshots from a Subscription. Every field is optional.
// A callback returning a ConfigError stops the subscription; any other error
// or panic is reported through OnError and ticking continues.
type Callbacks struct {
	OnTick     func(TimeRemaining) error
	OnStart    func(TimeRemaining) error
	OnUrgent   func(TimeRemaining) error
	OnCritical func(TimeRemaining) error
	OnExpire   func(TimeRemaining) error
	OnError    func(error)
}

func (c Callbacks) forEdge(edge Edge) func(TimeRemaining) error {
	switch edge {
	case EdgeStart:
		return c.OnStart
	case EdgeUrgent:
		return c.OnUrgent
	case EdgeCritical:
		return c.OnCritical
	case EdgeExpire:
		return c.OnExpire
	}
	return nil
}

// CallbackError wraps a failure raised by a consumer callback.
type CallbackError struct {
	Callback       string
	SubscriptionID string
	Err            error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("countdown: subscription %s: %s callback: %v", e.SubscriptionID, e.Callback, e.Err)
}

// Unwrap exposes the callback's error.
func (e *CallbackError) Unwrap() error { return e.Err }

// Clock is a TimeSource that can also schedule timers.
type Clock interface {
	TimeSource
	TimerFactory
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets both the time source and the timer factory.
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.source = clock
			s.timers = clock
		}
	}
}

// WithTimeSource overrides only the time source.
func WithTimeSource(source TimeSource) SchedulerOption {
	return func(s *Scheduler) {
		if source != nil {
			s.source = source
		}
	}
}

// WithTimerFactory overrides only the timer factory.
func WithTimerFactory(timers TimerFactory) SchedulerOption {
	return func(s *Scheduler) {
		if timers != nil {
			s.timers = timers
		}
	}
}

// WithLogger sets the logger used for lifecycle and failure reporting.
func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) SchedulerOption {
	return func(s *Scheduler) {
		s.meter = m
	}
}

// WithIDGenerator overrides subscription id generation.
func WithIDGenerator(fn func() string) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRetroactiveStart makes subscriptions created after a window opened
// fire OnStart on their first snapshot.
func WithRetroactiveStart(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.retroactiveStart = enabled
	}
}

// Scheduler creates independent polling subscriptions. It holds no registry
// of its subscriptions; each one is owned by its caller.
type Scheduler struct {
	source           TimeSource
	timers           TimerFactory
	logger           *zap.Logger
	meter            metric.Meter
	newID            func() string
	retroactiveStart bool
	metrics          schedulerMetrics
}

type schedulerMetrics struct {
	ticks          metric.Int64Counter
	edges          metric.Int64Counter
	callbackErrors metric.Int64Counter
	active         metric.Int64UpDownCounter
}

// NewScheduler builds a Scheduler on the host clock unless overridden.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		source: SystemClock{},
		timers: SystemClock{},
		newID: func() string {
			return "cds_" + ulid.Make().String()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.meter == nil {
		s.meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	s.metrics = newSchedulerMetrics(s.meter, s.logger)
	return s
}

func newSchedulerMetrics(meter metric.Meter, logger *zap.Logger) schedulerMetrics {
	var m schedulerMetrics
	var err error
	if m.ticks, err = meter.Int64Counter("countdown.ticks",
		metric.WithDescription("Snapshots computed by countdown subscriptions")); err != nil {
		logger.Warn("countdown: unable to register tick metric", zap.Error(err))
	}
	if m.edges, err = meter.Int64Counter("countdown.edges",
		metric.WithDescription("Edge callbacks fired, by edge")); err != nil {
		logger.Warn("countdown: unable to register edge metric", zap.Error(err))
	}
	if m.callbackErrors, err = meter.Int64Counter("countdown.callback_errors",
		metric.WithDescription("Callback failures reported to OnError")); err != nil {
		logger.Warn("countdown: unable to register callback error metric", zap.Error(err))
	}
	if m.active, err = meter.Int64UpDownCounter("countdown.subscriptions.active",
		metric.WithDescription("Subscriptions that are still ticking")); err != nil {
		logger.Warn("countdown: unable to register active subscription metric", zap.Error(err))
	}
	return m
}

// Now returns the scheduler's notion of the current instant.
func (s *Scheduler) Now() Instant {
	return s.source.Now()
}

// Subscribe validates its inputs, evaluates the window immediately and then
// re-evaluates every interval until the window expires or the subscription
// is cancelled. Callbacks fired by the initial evaluation run before
// Subscribe returns.
func (s *Scheduler) Subscribe(window SaleWindow, interval time.Duration, thresholds ThresholdConfig, callbacks Callbacks) (*Subscription, error) {
	if interval <= 0 {
		return nil, newConfigError("intervalMs", "must be > 0")
	}
	clock, err := NewCountdownClock(window, thresholds)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:         s.newID(),
		scheduler:  s,
		clock:      clock,
		interval:   interval,
		callbacks:  callbacks,
		dispatcher: NewCallbackDispatcher(s.retroactiveStart),
		done:       make(chan struct{}),
	}
	sub.logger = s.logger.With(zap.String("subscription_id", sub.id))
	s.addActive(1)
	sub.logger.Debug("countdown subscription started",
		zap.Stringer("window_end", window.End),
		zap.Duration("interval", interval),
	)

	sub.evaluate()
	return sub, nil
}

// SubscribeContext is Subscribe bound to ctx: cancelling ctx unsubscribes.
func (s *Scheduler) SubscribeContext(ctx context.Context, window SaleWindow, interval time.Duration, thresholds ThresholdConfig, callbacks Callbacks) (*Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := s.Subscribe(window, interval, thresholds, callbacks)
	if err != nil {
		return nil, err
	}
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
			case <-sub.Done():
			}
		}()
	}
	return sub, nil
}

func (s *Scheduler) addActive(delta int64) {
	if s.metrics.active != nil {
		s.metrics.active.Add(context.Background(), delta)
	}
}

// Subscription is a live countdown. Ticks of one subscription never overlap:
// the next timer is armed only after the current tick has finished.
type Subscription struct {
	id        string
	scheduler *Scheduler
	clock     *CountdownClock
	interval  time.Duration
	callbacks Callbacks
	logger    *zap.Logger

	// touched only from evaluate, which is serialised
	dispatcher *CallbackDispatcher
	lastNow    Instant
	evaluated  bool

	mu       sync.Mutex
	snapshot TimeRemaining
	timer    Timer
	stopped  bool
	err      error
	done     chan struct{}
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Window returns the watched window.
func (s *Subscription) Window() SaleWindow { return s.clock.Window() }

// Policy returns the thresholds in effect.
func (s *Subscription) Policy() ThresholdPolicy { return s.clock.Policy() }

// Snapshot returns the most recently delivered snapshot.
func (s *Subscription) Snapshot() TimeRemaining {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Done is closed once the subscription stops for any reason.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the fatal error that stopped the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stopped reports whether no further ticks will run.
func (s *Subscription) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Unsubscribe cancels future ticks. It is idempotent and safe to call from
// inside a callback; a tick already running completes normally.
func (s *Subscription) Unsubscribe() {
	if s.finish(nil) {
		s.logger.Debug("countdown subscription cancelled")
	}
}

func (s *Subscription) tick() {
	s.evaluate()
}

func (s *Subscription) evaluate() {
	if s.Stopped() {
		return
	}

	now := s.scheduler.source.Now()
	if s.evaluated && now < s.lastNow {
		// clock stepped backwards; hold the last instant so state never regresses
		now = s.lastNow
	}
	s.lastNow = now
	s.evaluated = true

	snap := s.clock.Snapshot(now)
	edges := s.dispatcher.Observe(snap.State)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	ctx := context.Background()
	if s.scheduler.metrics.ticks != nil {
		s.scheduler.metrics.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("state", snap.State.String())))
	}

	for _, edge := range edges {
		if s.scheduler.metrics.edges != nil {
			s.scheduler.metrics.edges.Add(ctx, 1, metric.WithAttributes(attribute.String("edge", edge.String())))
		}
		s.logger.Debug("countdown edge", zap.Stringer("edge", edge), zap.Int64("total_ms", snap.TotalMs))
		if err := s.invoke("on"+edgeCallbackSuffix(edge), s.callbacks.forEdge(edge), snap); err != nil {
			if s.report(err) {
				return
			}
		}
	}

	if err := s.invoke("onTick", s.callbacks.OnTick, snap); err != nil {
		if s.report(err) {
			return
		}
	}

	if snap.State == Expired {
		if s.finish(nil) {
			s.logger.Debug("countdown subscription expired")
		}
		return
	}
	s.arm()
}

func edgeCallbackSuffix(edge Edge) string {
	switch edge {
	case EdgeStart:
		return "Start"
	case EdgeUrgent:
		return "Urgent"
	case EdgeCritical:
		return "Critical"
	default:
		return "Expire"
	}
}

func (s *Subscription) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.timer = s.scheduler.timers.AfterFunc(s.interval, s.tick)
}

func (s *Subscription) invoke(name string, fn func(TimeRemaining) error, snap TimeRemaining) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Callback: name, SubscriptionID: s.id, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if cbErr := fn(snap); cbErr != nil {
		return &CallbackError{Callback: name, SubscriptionID: s.id, Err: cbErr}
	}
	return nil
}

// report forwards err to OnError and reports whether it was fatal.
func (s *Subscription) report(err error) bool {
	if s.scheduler.metrics.callbackErrors != nil {
		s.scheduler.metrics.callbackErrors.Add(context.Background(), 1)
	}
	fatal := IsConfigError(err)
	if fatal {
		s.logger.Error("countdown callback returned config error; stopping", zap.Error(err))
	} else {
		s.logger.Warn("countdown callback failed", zap.Error(err))
	}

	if onError := s.callbacks.OnError; onError != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("countdown OnError panicked", zap.Any("panic", r))
				}
			}()
			onError(err)
		}()
	}

	if fatal {
		s.finish(err)
	}
	return fatal
}

func (s *Subscription) finish(err error) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.stopped = true
	s.err = err
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	close(s.done)
	s.scheduler.addActive(-1)
	return true
}
