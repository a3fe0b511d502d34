// Package guard decides whether a listing detail route may render. Each
// navigation gets its own Guard which starts in StateValidating, asks a
// Checker whether the listing exists and settles in StateValid or
// StateInvalid. Invalid navigates to the listing type's not-found route
// exactly once. Any failure to get a positive answer counts as Invalid.
package guard

import (
	"context"
	"fmt"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"navguard/pkg/metrics"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Guard.
type State int

const (
	// StateValidating means no answer has been accepted yet.
	StateValidating State = iota
	// StateValid means the listing exists and children may render.
	StateValid
	// StateInvalid means the listing is missing or could not be confirmed.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Checker reports whether a listing with the given identifier and type exists.
type Checker interface {
	Exists(ctx context.Context, id string, t domain.ListingType) (bool, error)
}

// Navigator performs the redirect side effect.
type Navigator func(path string)

// Guard validates one listing route. It is safe for concurrent use. The
// navigator is invoked while the Guard's lock is held and must not call back
// into the Guard.
type Guard struct {
	checker      Checker
	listingType  domain.ListingType
	navigate     Navigator
	fallback     string
	checkTimeout time.Duration
	metrics      *metrics.Recorder

	mu        sync.Mutex
	state     State
	seq       uint64
	currentID string
	closed    bool
}

// New creates a Guard for listings of type t. Zero Options fields take their
// defaults; a nil navigate is a no-op.
func New(checker Checker, t domain.ListingType, navigate Navigator, opts Options) *Guard {
	opts = opts.withDefaults(t)
	if navigate == nil {
		navigate = func(string) {}
	}

	return &Guard{
		checker:      checker,
		listingType:  t,
		navigate:     navigate,
		fallback:     opts.FallbackPath,
		checkTimeout: opts.CheckTimeout,
		metrics:      opts.Metrics,
		state:        StateValidating,
	}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

// FallbackPath returns the route an invalid listing navigates to.
func (g *Guard) FallbackPath() string {
	return g.fallback
}

// Close tears the Guard down. Results arriving afterwards are discarded and
// never navigate. Close is idempotent.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
}

// Validate checks id and returns the resulting state. An empty id resolves to
// StateInvalid without consulting the checker. Each call with a new id
// supersedes earlier ones: if another Validate starts before this one's answer
// arrives, or the Guard is closed, the answer is dropped and the current state
// is returned unchanged. Repeating the current id neither checks nor navigates
// again; it returns the current state, which is StateValidating while that
// id's check is still in flight.
func (g *Guard) Validate(ctx context.Context, id string) State {
	seq, ok := g.begin(id)
	if !ok {
		return g.State()
	}

	return g.run(ctx, seq, id)
}

// begin registers a new validation and returns its sequence number; ok is
// false when the Guard is closed or id is already being, or has been,
// validated.
func (g *Guard) begin(id string) (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, false
	}
	if g.seq > 0 && id == g.currentID {
		return 0, false
	}
	g.seq++
	g.currentID = id
	g.state = StateValidating

	return g.seq, true
}

func (g *Guard) run(ctx context.Context, seq uint64, id string) State {
	ctx = logger.WithFields(ctx,
		zap.String("listing_type", string(g.listingType)),
		zap.String("listing_id", id))

	if strings.TrimSpace(id) == "" {
		logger.Debug(ctx, "listing route has no identifier")

		return g.resolve(ctx, seq, id, false)
	}

	return g.resolve(ctx, seq, id, g.check(ctx, id))
}

// check asks the checker and folds every failure into false.
func (g *Guard) check(ctx context.Context, id string) (exists bool) {
	if g.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.checkTimeout)
		defer cancel()
	}

	defer func() {
		if rv := recover(); rv != nil {
			logger.Error(ctx, "listing existence check panicked", zap.Any("panic", rv))
			exists = false
		}
	}()

	ok, err := g.checker.Exists(ctx, id, g.listingType)
	if err != nil {
		logger.Warn(ctx, "listing existence check failed", zap.Error(err))

		return false
	}

	return ok
}

func (g *Guard) resolve(ctx context.Context, seq uint64, id string, exists bool) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || seq != g.seq || id != g.currentID {
		logger.Debug(ctx, "discarding stale listing check result", zap.Bool("closed", g.closed))

		return g.state
	}

	if exists {
		g.state = StateValid
		g.metrics.GuardResolved(ctx, string(g.listingType), StateValid.String())

		return g.state
	}

	g.state = StateInvalid
	g.metrics.GuardResolved(ctx, string(g.listingType), StateInvalid.String())
	logger.Debug(ctx, "listing not available, redirecting", zap.String("fallback", g.fallback))
	g.navigate(g.fallback)

	return g.state
}
