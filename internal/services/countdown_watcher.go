package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/domain"
	"github.com/hanko-field/promoclock/internal/presets"
	"github.com/hanko-field/promoclock/internal/repositories"
)

const (
	watchIDPrefix         = "wch_"
	eventIDPrefix         = "cde_"
	defaultPublishTimeout = 10 * time.Second
	defaultSyncLimit      = 200
	tracerName            = "github.com/hanko-field/promoclock/internal/services"
)

// CountdownWatcherDeps bundles the collaborators of the watcher.
type CountdownWatcherDeps struct {
	Promotions repositories.PromotionRepository
	Presets    *presets.Catalog
	Scheduler  *countdown.Scheduler
	Publisher  CountdownEventPublisher
	Logger     *zap.Logger
	Tracer     trace.Tracer
	// Interval is the server-side tick cadence; presets only contribute
	// thresholds, since no one is looking at these countdowns.
	Interval       time.Duration
	PublishTimeout time.Duration
	// Lookahead bounds Sync to promotions starting or ending soon.
	Lookahead   time.Duration
	SyncLimit   int
	IDGenerator func() string
}

// watchReservation holds a code while its subscription is being created.
type watchReservation struct {
	done  chan struct{}
	entry *watchEntry
	err   error
}

type watchEntry struct {
	watch  domain.Watch
	sub    *countdown.Subscription
	synced bool
}

type countdownWatcher struct {
	repo      repositories.PromotionRepository
	presets   *presets.Catalog
	scheduler *countdown.Scheduler
	publisher CountdownEventPublisher
	logger    *zap.Logger
	tracer    trace.Tracer
	interval  time.Duration
	timeout   time.Duration
	lookahead time.Duration
	syncLimit int
	newID     func() string

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	byID     map[string]*watchEntry
	byCode   map[string]*watchEntry
	starting map[string]*watchReservation
	closed   bool
	pending  sync.WaitGroup
}

// NewCountdownWatcher wires a CountdownWatcher.
func NewCountdownWatcher(deps CountdownWatcherDeps) (CountdownWatcher, error) {
	if deps.Promotions == nil {
		return nil, ErrCountdownRepositoryMissing
	}
	if deps.Scheduler == nil {
		return nil, errors.New("countdown watcher: scheduler is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("countdown watcher: publisher is required")
	}
	if deps.Interval <= 0 {
		return nil, errors.New("countdown watcher: interval must be positive")
	}

	w := &countdownWatcher{
		repo:      deps.Promotions,
		presets:   deps.Presets,
		scheduler: deps.Scheduler,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		tracer:    deps.Tracer,
		interval:  deps.Interval,
		timeout:   deps.PublishTimeout,
		lookahead: deps.Lookahead,
		syncLimit: deps.SyncLimit,
		newID:     deps.IDGenerator,
		byID:      make(map[string]*watchEntry),
		byCode:    make(map[string]*watchEntry),
		starting:  make(map[string]*watchReservation),
	}
	if w.presets == nil {
		w.presets = presets.Default()
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.tracer == nil {
		w.tracer = otel.Tracer(tracerName)
	}
	if w.timeout <= 0 {
		w.timeout = defaultPublishTimeout
	}
	if w.syncLimit <= 0 {
		w.syncLimit = defaultSyncLimit
	}
	if w.newID == nil {
		w.newID = func() string { return ulid.Make().String() }
	}
	w.baseCtx, w.cancel = context.WithCancel(context.Background())
	return w, nil
}

// Watch starts a countdown for the promotion. Watching a code that is
// already watched returns the existing watch.
func (w *countdownWatcher) Watch(ctx context.Context, code, variant string) (domain.Watch, error) {
	promotion, err := loadPromotion(ctx, w.repo, code)
	if err != nil {
		return domain.Watch{}, err
	}
	if promotion.Status == domain.PromotionStatusEnded {
		return domain.Watch{}, ErrCountdownPromotionUnavailable
	}
	preset, err := resolvePreset(w.presets, variant, promotion.Variant)
	if err != nil {
		return domain.Watch{}, err
	}
	entry, _, err := w.start(promotion, preset, false)
	if err != nil {
		return domain.Watch{}, err
	}
	return entry.snapshot(), nil
}

func (w *countdownWatcher) start(promotion domain.Promotion, preset presets.Preset, synced bool) (*watchEntry, bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, false, ErrWatcherClosed
	}
	if existing, ok := w.byCode[promotion.Code]; ok {
		w.mu.Unlock()
		return existing, false, nil
	}
	if pending, ok := w.starting[promotion.Code]; ok {
		w.mu.Unlock()
		<-pending.done
		if pending.err != nil {
			return nil, false, pending.err
		}
		return pending.entry, false, nil
	}
	// the initial evaluation publishes, so the code is claimed before subscribing
	reservation := &watchReservation{done: make(chan struct{})}
	w.starting[promotion.Code] = reservation
	w.mu.Unlock()

	entry, err := w.subscribe(promotion, preset, synced)

	w.mu.Lock()
	delete(w.starting, promotion.Code)
	if err == nil && w.closed {
		entry.sub.Unsubscribe()
		entry, err = nil, ErrWatcherClosed
	}
	if err == nil {
		w.byID[entry.watch.ID] = entry
		w.byCode[promotion.Code] = entry
		w.pending.Add(1)
	}
	reservation.entry, reservation.err = entry, err
	close(reservation.done)
	w.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	go w.reap(entry)
	w.logger.Info("countdown watch started",
		zap.String("watch_id", entry.watch.ID),
		zap.String("promotion_code", promotion.Code),
		zap.String("variant", preset.Name),
		zap.Bool("synced", synced),
	)
	return entry, true, nil
}

func (w *countdownWatcher) subscribe(promotion domain.Promotion, preset presets.Preset, synced bool) (*watchEntry, error) {
	window, err := promotion.Window()
	if err != nil {
		return nil, err
	}

	watchID := watchIDPrefix + w.newID()
	logger := w.logger.With(zap.String("watch_id", watchID), zap.String("promotion_code", promotion.Code))
	publish := func(edge countdown.Edge) func(countdown.TimeRemaining) error {
		return func(snap countdown.TimeRemaining) error {
			return w.publish(watchID, promotion, window, edge, snap)
		}
	}
	sub, err := w.scheduler.Subscribe(window, w.interval, preset.Thresholds, countdown.Callbacks{
		OnStart:    publish(countdown.EdgeStart),
		OnUrgent:   publish(countdown.EdgeUrgent),
		OnCritical: publish(countdown.EdgeCritical),
		OnExpire:   publish(countdown.EdgeExpire),
		OnError: func(err error) {
			logger.Warn("countdown event delivery failed", zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}

	return &watchEntry{
		watch: domain.Watch{
			ID:            watchID,
			PromotionCode: promotion.Code,
			Variant:       preset.Name,
			Window:        window,
			StartedAt:     w.scheduler.Now(),
		},
		sub:    sub,
		synced: synced,
	}, nil
}

// reap forgets a watch once its subscription stops, whether by expiry,
// Unwatch or a fatal callback error.
func (w *countdownWatcher) reap(entry *watchEntry) {
	defer w.pending.Done()
	<-entry.sub.Done()
	w.mu.Lock()
	if w.byID[entry.watch.ID] == entry {
		delete(w.byID, entry.watch.ID)
	}
	if w.byCode[entry.watch.PromotionCode] == entry {
		delete(w.byCode, entry.watch.PromotionCode)
	}
	w.mu.Unlock()
	if err := entry.sub.Err(); err != nil {
		w.logger.Error("countdown watch stopped", zap.String("watch_id", entry.watch.ID), zap.Error(err))
	}
}

func (w *countdownWatcher) publish(watchID string, promotion domain.Promotion, window countdown.SaleWindow, edge countdown.Edge, snap countdown.TimeRemaining) error {
	ctx, cancel := context.WithTimeout(w.baseCtx, w.timeout)
	defer cancel()

	msg := CountdownEventMessage{
		EventID:       eventIDPrefix + w.newID(),
		WatchID:       watchID,
		PromotionCode: promotion.Code,
		Edge:          edge.String(),
		State:         snap.State.String(),
		RemainingMs:   snap.TotalMs,
		EndsAt:        window.End.Time(),
		OccurredAt:    w.scheduler.Now().Time(),
	}

	ctx, span := w.tracer.Start(ctx, "countdown.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("promotion.code", msg.PromotionCode),
		attribute.String("countdown.edge", msg.Edge),
		attribute.String("countdown.event_id", msg.EventID),
	)

	id, err := w.publisher.PublishCountdownEvent(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("publish %s for %s: %w", msg.Edge, msg.PromotionCode, err)
	}
	w.logger.Info("countdown edge published",
		zap.String("watch_id", watchID),
		zap.String("promotion_code", msg.PromotionCode),
		zap.String("edge", msg.Edge),
		zap.String("message_id", id),
	)
	return nil
}

func (w *countdownWatcher) Unwatch(_ context.Context, watchID string) error {
	w.mu.Lock()
	entry, ok := w.byID[strings.TrimSpace(watchID)]
	w.mu.Unlock()
	if !ok {
		return ErrWatchNotFound
	}
	entry.sub.Unsubscribe()
	return nil
}

func (w *countdownWatcher) List(context.Context) []domain.Watch {
	w.mu.Lock()
	entries := make([]*watchEntry, 0, len(w.byID))
	for _, e := range w.byID {
		entries = append(entries, e)
	}
	w.mu.Unlock()

	watches := make([]domain.Watch, 0, len(entries))
	for _, e := range entries {
		if e.sub.Stopped() {
			continue
		}
		watches = append(watches, e.snapshot())
	}
	sort.Slice(watches, func(i, j int) bool {
		return watches[i].PromotionCode < watches[j].PromotionCode
	})
	return watches
}

// Sync starts watches for every scheduled promotion inside the lookahead and
// stops synced watches whose promotion is no longer scheduled. Watches
// created through Watch are left alone.
func (w *countdownWatcher) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return result, ErrWatcherClosed
	}
	now := w.scheduler.Now()
	promotions, err := w.repo.ListScheduled(ctx, now, w.syncLimit)
	if err != nil {
		return result, fmt.Errorf("countdown watcher: list scheduled: %w", err)
	}

	listed := make(map[string]struct{}, len(promotions))
	for _, promotion := range promotions {
		listed[promotion.Code] = struct{}{}
		if !w.withinLookahead(promotion, now) {
			result.Skipped++
			continue
		}
		preset, _ := w.presets.Lookup(promotion.Variant)
		_, started, err := w.start(promotion, preset, true)
		switch {
		case errors.Is(err, ErrWatcherClosed):
			return result, err
		case err != nil:
			result.Failed++
			w.logger.Warn("countdown watch failed", zap.String("promotion_code", promotion.Code), zap.Error(err))
		case started:
			result.Started++
		default:
			result.Existing++
		}
	}

	w.mu.Lock()
	var stale []*watchEntry
	for code, entry := range w.byCode {
		if _, ok := listed[code]; !ok && entry.synced {
			stale = append(stale, entry)
		}
	}
	w.mu.Unlock()
	for _, entry := range stale {
		entry.sub.Unsubscribe()
		result.Stopped++
	}
	return result, nil
}

func (w *countdownWatcher) withinLookahead(p domain.Promotion, now countdown.Instant) bool {
	if w.lookahead <= 0 {
		return true
	}
	horizon := now.Add(w.lookahead)
	if p.EndsAt <= horizon {
		return true
	}
	return p.StartsAt != nil && *p.StartsAt > now && *p.StartsAt <= horizon
}

// Close stops every watch and waits for them to be released.
func (w *countdownWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	entries := make([]*watchEntry, 0, len(w.byID))
	for _, e := range w.byID {
		entries = append(entries, e)
	}
	w.mu.Unlock()

	for _, e := range entries {
		e.sub.Unsubscribe()
	}
	w.pending.Wait()
	w.cancel()
	return nil
}

func (e *watchEntry) snapshot() domain.Watch {
	watch := e.watch
	watch.Snapshot = e.sub.Snapshot()
	return watch
}
