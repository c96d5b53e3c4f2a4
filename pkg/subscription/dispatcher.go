package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roulettehub/subgate/pkg/logger"
	"github.com/roulettehub/subgate/pkg/metrics"
)

// Reasons reported to providers when an event had no business effect.
const (
	ReasonAlreadyProcessed = "already_processed"
	ReasonIgnoredEventType = "ignored_event_type"
	ReasonInternalError    = "internal_error"
)

var errPanic = errors.New("panic while processing webhook event")

// Result is the dispatcher's verdict for one delivery.
type Result struct {
	// Processed is true when the event was committed to the ledger and
	// handled without an internal error, including handled no-ops.
	Processed bool
	Reason    string
}

// Classifier maps a provider event to its EventClass.
type Classifier interface {
	Classify(ev *Event) EventClass
}

// Dispatcher runs the idempotent webhook pipeline: ledger check,
// classification, ledger commit, customer resolution and transition.
type Dispatcher struct {
	events       EventStore
	subs         SubscriptionStore
	resolver     *Resolver
	catalog      *Catalog
	log          *slog.Logger
	now          func() time.Time
	timeout      time.Duration
	saveAttempts int
	defaultCycle time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithProcessTimeout bounds the time spent on datastore calls for one event.
func WithProcessTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithSaveAttempts sets how often a save that lost an optimistic
// concurrency race is retried.
func WithSaveAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.saveAttempts = n
		}
	}
}

// WithDefaultCycle sets the billing cycle for plans missing from the catalog.
func WithDefaultCycle(cycle time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if cycle > 0 {
			d.defaultCycle = cycle
		}
	}
}

func NewDispatcher(events EventStore, subs SubscriptionStore, resolver *Resolver, catalog *Catalog, opts ...DispatcherOption) *Dispatcher {
	if events == nil {
		panic("subscription: EventStore is required")
	}
	if subs == nil {
		panic("subscription: SubscriptionStore is required")
	}
	if resolver == nil {
		panic("subscription: Resolver is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}

	d := &Dispatcher{
		events:       events,
		subs:         subs,
		resolver:     resolver,
		catalog:      catalog,
		log:          logger.Discard(),
		now:          time.Now,
		timeout:      5 * time.Second,
		saveAttempts: 3,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles a verified event. The error is non-nil only when the
// datastore is unavailable, in which case the provider should be told to
// retry; every other failure is folded into a Result with Processed false.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event, c Classifier) (res Result, err error) {
	start := d.now()
	log := d.log.With(logger.Provider(ev.Provider.String()), logger.EventID(ev.ID), logger.EventType(ev.Type))

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		outcome := res.Reason
		switch {
		case err != nil:
			outcome = "unavailable"
		case outcome == "":
			outcome = string(OutcomeApplied)
		}
		metrics.WebhookEventsTotal.WithLabelValues(ev.Provider.String(), outcome).Inc()
		metrics.WebhookDuration.WithLabelValues(ev.Provider.String()).Observe(d.now().Sub(start).Seconds())
	}()

	done, err := d.events.HasProcessed(ctx, ev.Provider, ev.ID)
	if err != nil {
		return d.failure(ctx, log, "check event ledger", err)
	}
	if done {
		log.DebugContext(ctx, "webhook event already processed")
		return Result{Reason: ReasonAlreadyProcessed}, nil
	}

	var outcome Outcome
	perr := protect(func() error {
		class := c.Classify(ev)
		if class == ClassIgnored {
			res = Result{Reason: ReasonIgnoredEventType}
			return nil
		}

		if err := d.events.MarkProcessed(ctx, ev.Record(d.now())); err != nil {
			if errors.Is(err, ErrDuplicateEvent) {
				res = Result{Reason: ReasonAlreadyProcessed}
				return nil
			}
			return fmt.Errorf("mark event processed: %w", err)
		}

		var err error
		if outcome, err = d.apply(ctx, log, ev, class); err != nil {
			if isUnavailable(ctx, err) {
				d.release(ctx, log, ev)
			}
			return err
		}
		res = Result{Processed: true}
		if outcome != OutcomeApplied {
			res.Reason = string(outcome)
		}
		return nil
	})
	if perr != nil {
		return d.failure(ctx, log, "process webhook event", perr)
	}

	if res.Processed {
		log.InfoContext(ctx, "webhook event processed", logger.Outcome(string(outcome)))
	} else {
		log.DebugContext(ctx, "webhook event skipped", logger.Outcome(res.Reason))
	}
	return res, nil
}

func (d *Dispatcher) apply(ctx context.Context, log *slog.Logger, ev *Event, class EventClass) (Outcome, error) {
	user, how, err := d.resolver.Resolve(ctx, ev.Provider, ev.CustomerID, ev.UserRef)
	if err != nil {
		return "", fmt.Errorf("resolve customer: %w", err)
	}
	metrics.CustomerResolutionsTotal.WithLabelValues(ev.Provider.String(), string(how)).Inc()
	if user == nil {
		log.WarnContext(ctx, "no user for webhook customer", logger.CustomerID(ev.CustomerID))
		return OutcomeCustomerNotFound, nil
	}

	planID, interval := "", BillingInterval("")
	if p, ok := d.catalog.Resolve(ev.PlanRef); ok {
		planID, interval = p.ID, p.Interval
	} else if ev.PlanRef != "" {
		log.WarnContext(ctx, "webhook references unknown plan", "plan_ref", ev.PlanRef)
	}

	for range d.saveAttempts {
		current, err := d.locate(ctx, ev, user.ID)
		if err != nil {
			return "", err
		}

		env := TransitionEnv{
			Now:          d.now(),
			UserID:       user.ID,
			PlanID:       planID,
			Interval:     interval,
			DefaultCycle: d.defaultCycle,
		}
		if env.Interval == "" && current != nil {
			if p, ok := d.catalog.Plan(current.PlanID); ok {
				env.Interval = p.Interval
			}
		}

		next, outcome := Transition(current, ev, class, env)
		if next == nil {
			return outcome, nil
		}

		if err := d.subs.Save(ctx, next); err != nil {
			if errors.Is(err, ErrConcurrentUpdate) {
				log.DebugContext(ctx, "subscription changed concurrently, retrying", logger.SubscriptionID(next.ProviderSubscriptionID))
				continue
			}
			return "", fmt.Errorf("save subscription: %w", err)
		}

		if outcome == OutcomeApplied {
			from := StatusNone
			if current != nil {
				from = current.Status
			}
			metrics.SubscriptionTransitionsTotal.WithLabelValues(ev.Provider.String(), from.String(), next.Status.String()).Inc()
			log.InfoContext(ctx, "subscription status changed",
				logger.UserID(user.ID),
				logger.SubscriptionID(next.ProviderSubscriptionID),
				slog.String("from", from.String()),
				logger.Status(next.Status.String()),
			)
		}
		return outcome, nil
	}

	return "", fmt.Errorf("save subscription after %d attempts: %w", d.saveAttempts, ErrConcurrentUpdate)
}

// locate finds the subscription an event refers to: by provider subscription
// id when present, otherwise the user's current subscription at the provider.
func (d *Dispatcher) locate(ctx context.Context, ev *Event, userID string) (*Subscription, error) {
	var (
		sub *Subscription
		err error
	)
	if ev.SubscriptionID != "" {
		sub, err = d.subs.GetByProviderID(ctx, ev.Provider, ev.SubscriptionID)
	} else {
		sub, err = d.subs.GetCurrent(ctx, userID, ev.Provider)
	}
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

// release removes the ledger record so the provider's retry is processed.
// It is best-effort: when the ledger shares the failed datastore the record
// stays, the retry is answered already_processed and the event has to be
// replayed by hand from this log line.
func (d *Dispatcher) release(ctx context.Context, log *slog.Logger, ev *Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.events.Release(ctx, ev.Provider, ev.ID); err != nil {
		log.ErrorContext(ctx, "failed to release webhook event, replay required",
			logger.Error(err),
			slog.String("replay_event_id", ev.ID),
			logger.SubscriptionID(ev.SubscriptionID),
		)
	}
}

func (d *Dispatcher) failure(ctx context.Context, log *slog.Logger, op string, err error) (Result, error) {
	if isUnavailable(ctx, err) {
		log.ErrorContext(ctx, op+": datastore unavailable", logger.Error(err))
		return Result{}, err
	}
	log.ErrorContext(ctx, op+" failed", logger.Error(err))
	return Result{Reason: ReasonInternalError}, nil
}

// isUnavailable reports whether err means the datastore could not be
// reached. Timeouts of the processing budget are not: they are acknowledged
// like any other internal failure.
func isUnavailable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrStoreUnavailable)
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}
