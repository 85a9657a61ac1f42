// Package upload implements the chunk-size policy and the upload session
// coordinator: session creation against the upstream gateway, per-chunk
// validation, completion detection, and the mapping of chunk submissions to
// a closed set of outcomes.
package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/httprange"
	"github.com/drivegate/drivegate/utils"
)

// DefaultSessionTTL is how long a newly created session accepts chunks.
const DefaultSessionTTL = time.Hour

// ChunkOutcome classifies the result of a single chunk submission. The set is
// closed; status-code mapping switches over it exhaustively.
type ChunkOutcome int

const (
	// ChunkAccepted - a non-final chunk was stored and more chunks are expected.
	ChunkAccepted ChunkOutcome = iota

	// ChunkCompleted - the final chunk was stored and the upload is finished.
	ChunkCompleted

	// ChunkRejected - the chunk failed local validation (bad range, size
	// mismatch, empty payload, too small, or an expired session).
	ChunkRejected

	// ChunkTooLarge - the chunk exceeded the maximum chunk size.
	ChunkTooLarge

	// ChunkCancelled - the caller's context was cancelled while awaiting the upstream.
	ChunkCancelled

	// ChunkFailed - the upstream call failed unexpectedly.
	ChunkFailed
)

// String returns the outcome name, for logs and metrics labels.
func (o ChunkOutcome) String() string {
	switch o {
	case ChunkAccepted:
		return "accepted"
	case ChunkCompleted:
		return "completed"
	case ChunkRejected:
		return "rejected"
	case ChunkTooLarge:
		return "too_large"
	case ChunkCancelled:
		return "cancelled"
	case ChunkFailed:
		return "failed"
	default:
		return fmt.Sprintf("ChunkOutcome(%d)", int(o))
	}
}

// ChunkResult carries one chunk submission's outcome. Item and Created are
// meaningful only for ChunkCompleted; Err holds the underlying cause for the
// non-success outcomes.
type ChunkResult struct {
	Outcome ChunkOutcome
	Item    *drivegate.Item
	Created bool
	Err     error
}

// Coordinator owns upload-session lifecycle: it creates sessions against the
// gateway, stamps expirations, runs the parser and validator over each chunk,
// and forwards validated chunks upstream. It holds no per-request state of its
// own; sessions live in the injected store.
type Coordinator struct {
	gateway drivegate.Gateway
	store   SessionStore
	ttl     time.Duration
	now     func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithSessionTTL overrides the session expiration policy.
func WithSessionTTL(ttl time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator initializes a Coordinator over the given gateway and store.
func NewCoordinator(gateway drivegate.Gateway, store SessionStore, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		gateway: gateway,
		store:   store,
		ttl:     DefaultSessionTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSession requests an upload handle from the gateway for the item at
// path within driveID and records the session with its expiration. The path
// must validate; the conflict behavior has already been defaulted by the
// caller via drivegate.ParseConflictBehavior.
func (c *Coordinator) CreateSession(ctx context.Context, driveID, path string, behavior drivegate.ConflictBehavior) (Session, error) {
	if err := utils.ValidatePath(path); err != nil {
		return Session{}, utils.WrapSessionError(err)
	}

	handle, err := c.gateway.CreateUploadSession(ctx, driveID, path, behavior)
	if err != nil {
		return Session{}, utils.WrapSessionError(err)
	}

	now := c.now()
	session := Session{
		ID:               uuid.NewString(),
		Handle:           handle,
		DriveID:          driveID,
		Path:             path,
		ConflictBehavior: behavior,
		CreatedAt:        now,
		ExpiresAt:        now.Add(c.ttl),
	}
	c.store.Put(session)
	return session, nil
}

// SubmitChunk runs the Content-Range parser and the chunk validator in
// sequence, short-circuiting on the first failure, then forwards the chunk to
// the gateway. A session this process created and knows to be expired is
// rejected without an upstream call; a handle this process has never seen is
// forwarded as-is, since the upstream is the source of truth for sequencing.
func (c *Coordinator) SubmitChunk(ctx context.Context, handle, contentRangeHeader string, payload []byte) ChunkResult {
	if session, ok := c.store.Get(handle); ok && session.Expired(c.now()) {
		return ChunkResult{Outcome: ChunkRejected, Err: drivegate.ErrSessionExpired}
	}

	rng, err := httprange.ParseContentRange(contentRangeHeader)
	if err != nil {
		return ChunkResult{Outcome: ChunkRejected, Err: err}
	}

	if err := ValidateChunk(*rng, int64(len(payload))); err != nil {
		outcome := ChunkRejected
		if errors.Is(err, drivegate.ErrChunkTooLarge) {
			outcome = ChunkTooLarge
		}
		return ChunkResult{Outcome: outcome, Err: err}
	}

	resp, err := c.gateway.UploadChunk(ctx, handle, *rng, payload)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ChunkResult{Outcome: ChunkCancelled, Err: err}
		}
		return ChunkResult{Outcome: ChunkFailed, Err: utils.WrapChunkError(err)}
	}

	if rng.IsFinal() {
		// the session is done either way; drop our record of it
		c.store.Delete(handle)
		return ChunkResult{Outcome: ChunkCompleted, Item: resp.Item, Created: resp.Created}
	}
	return ChunkResult{Outcome: ChunkAccepted}
}
