package ingredients

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/logger"
)

// Apply failure classes returned by Service.Replace.
var (
	// ErrRetriesExhausted marks the last conflict once MaxAttempts is reached.
	// The error also matches errors.ErrConflict.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrStoreFailure marks persistence errors that are not conflicts.
	// They are returned on first occurrence and never retried.
	ErrStoreFailure = errors.New("store failure")
)

// Gateway is the persistence the service reads from and applies plans to.
type Gateway interface {
	IngredientLookup

	// FetchAssociations returns the recipe's associations ordered by ID and
	// the recipe version, read in one snapshot. Unknown recipes yield
	// errors.ErrNotFound.
	FetchAssociations(ctx context.Context, recipeID RecipeID) (PersistedSet, error)

	// Apply executes plan atomically in order deletions, updates, creations,
	// provided the recipe is still at version. It returns an error matching
	// errors.ErrConflict when the recipe moved on or a constraint fired.
	Apply(ctx context.Context, recipeID RecipeID, version int64, plan Plan) error
}

// Options tunes the retry loop.
type Options struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultOptions returns three attempts paced 50ms apart.
func DefaultOptions() Options {
	return Options{MaxAttempts: 3, RetryBackoff: 50 * time.Millisecond}
}

// Result describes a completed Replace.
type Result struct {
	Plan     Plan
	Attempts int
	// Snapshot is the persisted set the applied plan was computed against.
	Snapshot PersistedSet
}

const lockStripes = 64

// Service validates submissions, reconciles them against the stored list
// and applies the resulting plan.
type Service struct {
	gateway   Gateway
	validator *Validator
	opts      Options
	logger    *zap.SugaredLogger

	// Serializes same-recipe submissions within the process; the version
	// check in Apply covers other processes. Each stripe is a one-slot
	// semaphore so waiting callers can give up when their context ends.
	locks [lockStripes]chan struct{}
}

// NewService creates a Service. A nil logger disables logging.
func NewService(gateway Gateway, opts Options, log *zap.SugaredLogger) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	s := &Service{
		gateway:   gateway,
		validator: NewValidator(gateway),
		opts:      opts,
		logger:    logger.OrNop(log),
	}
	for i := range s.locks {
		s.locks[i] = make(chan struct{}, 1)
	}
	return s
}

// Replace makes rows the recipe's ingredient list.
//
// Each attempt validates rows, fetches a fresh snapshot, reconciles and
// applies. Conflicts restart the attempt up to MaxAttempts; validation
// failures and store failures return at once with nothing applied.
func (s *Service) Replace(ctx context.Context, recipeID RecipeID, rows []RawRow) (Result, error) {
	ctx = ensureRequestID(ctx)
	log := logger.FromContext(ctx, s.logger).With(logger.FieldRecipeID, recipeID)

	unlock, err := s.lock(ctx, recipeID)
	if err != nil {
		return Result{}, errors.Wrapf(err, "interrupted waiting for recipe %d", recipeID)
	}
	defer unlock()

	limiter := rate.NewLimiter(s.retryLimit(), 1)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return Result{Attempts: attempt - 1}, errors.Wrap(err, "interrupted before apply attempt")
		}

		plan, set, err := s.prepare(ctx, recipeID, rows)
		if err != nil {
			if errors.IsConflictError(err) {
				applyAttempts.WithLabelValues(outcomeConflict).Inc()
				lastErr = err
				continue
			}
			return Result{Attempts: attempt}, err
		}

		result := Result{Plan: plan, Attempts: attempt, Snapshot: set}
		if plan.IsEmpty() {
			applyAttempts.WithLabelValues(outcomeNoop).Inc()
			log.Debugw("Ingredient list unchanged",
				logger.FieldAttempt, attempt,
				logger.FieldIgnored, len(plan.Ignored),
			)
			return result, nil
		}

		err = s.gateway.Apply(ctx, recipeID, set.Version, plan)
		if err == nil {
			recordApplied(plan)
			log.Infow("Applied ingredient plan",
				logger.FieldAttempt, attempt,
				logger.FieldVersion, set.Version+1,
				logger.FieldDeletions, len(plan.Deletions),
				logger.FieldUpdates, len(plan.Updates),
				logger.FieldCreations, len(plan.Creations),
				logger.FieldIgnored, len(plan.Ignored),
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
			)
			return result, nil
		}

		if !errors.IsConflictError(err) {
			applyAttempts.WithLabelValues(outcomeFailed).Inc()
			log.Errorw("Failed to apply ingredient plan",
				logger.FieldAttempt, attempt,
				logger.FieldError, err,
			)
			return Result{Attempts: attempt}, classifyStoreError(err, "failed to apply ingredient plan")
		}

		applyAttempts.WithLabelValues(outcomeConflict).Inc()
		log.Warnw("Conflict applying ingredient plan, retrying with a fresh snapshot",
			logger.FieldAttempt, attempt,
			logger.FieldMaxAttempts, s.opts.MaxAttempts,
			logger.FieldVersion, set.Version,
			logger.FieldError, err,
		)
		lastErr = err
	}

	return Result{Attempts: s.opts.MaxAttempts}, errors.WithHint(
		errors.Wrapf(errors.Mark(lastErr, ErrRetriesExhausted), "gave up after %d attempts", s.opts.MaxAttempts),
		"the recipe is being edited concurrently; export it again and resubmit",
	)
}

// Preview computes the plan Replace would apply, without applying it.
func (s *Service) Preview(ctx context.Context, recipeID RecipeID, rows []RawRow) (Plan, PersistedSet, error) {
	return s.prepare(ensureRequestID(ctx), recipeID, rows)
}

// Export returns the stored list as submission rows.
func (s *Service) Export(ctx context.Context, recipeID RecipeID) ([]RawRow, PersistedSet, error) {
	set, err := s.gateway.FetchAssociations(ctx, recipeID)
	if err != nil {
		return nil, PersistedSet{}, classifyStoreError(err, "failed to fetch ingredient list")
	}
	return RowsFromSet(set), set, nil
}

func (s *Service) prepare(ctx context.Context, recipeID RecipeID, rows []RawRow) (Plan, PersistedSet, error) {
	candidates, err := s.validator.Validate(ctx, rows)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			validationFailures.WithLabelValues(validationKind(verr.Kind)).Inc()
			logger.FromContext(ctx, s.logger).Debugw("Rejected ingredient list",
				logger.FieldRecipeID, recipeID,
				logger.FieldRows, len(rows),
				logger.FieldError, err,
			)
			return Plan{}, PersistedSet{}, err
		}
		return Plan{}, PersistedSet{}, classifyStoreError(err, "failed to validate ingredient list")
	}

	set, err := s.gateway.FetchAssociations(ctx, recipeID)
	if err != nil {
		return Plan{}, PersistedSet{}, classifyStoreError(err, "failed to fetch ingredient list")
	}

	plan := Reconcile(set, candidates)
	plansComputed.Inc()
	return plan, set, nil
}

// lock takes the stripe of recipeID, or returns ctx.Err() if ctx ends first.
func (s *Service) lock(ctx context.Context, recipeID RecipeID) (func(), error) {
	stripe := s.locks[uint64(recipeID)%lockStripes]
	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) retryLimit() rate.Limit {
	if s.opts.RetryBackoff <= 0 {
		return rate.Inf
	}
	return rate.Every(s.opts.RetryBackoff)
}

// classifyStoreError wraps err with msg, marking it ErrStoreFailure unless it
// is a not-found, a conflict or a cancellation the caller should see as such.
func classifyStoreError(err error, msg string) error {
	wrapped := errors.Wrap(err, msg)
	if errors.IsNotFoundError(err) || errors.IsConflictError(err) ||
		errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
		return wrapped
	}
	return errors.Mark(wrapped, ErrStoreFailure)
}

func ensureRequestID(ctx context.Context) context.Context {
	if _, ok := logger.RequestIDFromContext(ctx); ok {
		return ctx
	}
	return logger.WithRequestID(ctx, uuid.NewString())
}
