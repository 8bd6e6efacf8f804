// Package search implements vacancy browsing: a paginated cursor over the
// vacancy table with inline filtering, and the per-session registry that owns
// one cursor per browsing user.
package search

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// DefaultChunkLimit is the page size used when none is configured.
const DefaultChunkLimit = 5

// Direction is a single navigation step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Option configures a Cursor.
type Option func(*Cursor)

// WithChunkLimit sets the page size. Non-positive values are ignored.
func WithChunkLimit(limit int) Option {
	return func(c *Cursor) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CURSOR
// ══════════════════════════════════════════════════════════════════════════════

// Cursor walks the vacancy table one record at a time while keeping exactly
// one chunk loaded. The index is global across chunks and always lies inside
// the loaded chunk's slot range.
//
// A Cursor is not safe for concurrent use; Registry serializes access.
type Cursor struct {
	loader vacancy.PageLoader
	bodies vacancy.BodyFetcher
	limit  int

	chunk *Chunk
	index int
	empty bool

	canForward  bool
	canBackward bool
}

// neighbor is what a lookahead found. chunk is set only when the neighbor
// lives in a freshly loaded chunk that the caller should adopt.
type neighbor struct {
	outcome Outcome
	index   int
	chunk   *Chunk
}

// New loads chunk 0 and positions the cursor on the first record.
// A cursor over an empty table is marked empty and cannot move.
func New(ctx context.Context, loader vacancy.PageLoader, bodies vacancy.BodyFetcher, opts ...Option) (*Cursor, error) {
	c := &Cursor{
		loader: loader,
		bodies: bodies,
		limit:  DefaultChunkLimit,
	}
	for _, opt := range opts {
		opt(c)
	}

	chunk, err := LoadChunk(ctx, loader, c.limit, 0)
	if err != nil {
		return nil, err
	}

	c.chunk = chunk
	c.index = 0
	if chunk.IsEmpty() {
		c.empty = true
		return c, nil
	}

	c.refreshAffordances(ctx)
	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

// Empty reports whether no vacancies existed when the cursor was created.
func (c *Cursor) Empty() bool { return c.empty }

// Index is the global position of the current record.
func (c *Cursor) Index() int { return c.index }

// ChunkOffset is the index of the loaded chunk.
func (c *Cursor) ChunkOffset() int { return c.chunk.Index() }

// Limit is the page size.
func (c *Cursor) Limit() int { return c.limit }

// CanForward mirrors HasNeighbor(Forward) as of the last transition.
func (c *Cursor) CanForward() bool { return c.canForward }

// CanBackward mirrors HasNeighbor(Backward) as of the last transition.
func (c *Cursor) CanBackward() bool { return c.canBackward }

// Current returns the record under the cursor, or None when the loaded chunk
// does not hold the current index.
func (c *Cursor) Current() mo.Option[vacancy.Vacancy] {
	if c.empty || c.chunk == nil {
		return mo.None[vacancy.Vacancy]()
	}
	return c.chunk.At(c.index)
}

// CurrentListing resolves the current record together with its body.
// None means there is no current record or its document is gone.
func (c *Cursor) CurrentListing(ctx context.Context) (mo.Option[vacancy.Listing], error) {
	rec, ok := c.Current().Get()
	if !ok {
		return mo.None[vacancy.Listing](), nil
	}

	body, err := c.bodies.GetBody(ctx, rec.DocumentRef)
	if err != nil {
		return mo.None[vacancy.Listing](), fmt.Errorf("fetch body of vacancy %d: %w", rec.ID, err)
	}
	b, ok := body.Get()
	if !ok {
		return mo.None[vacancy.Listing](), nil
	}
	return mo.Some(vacancy.Listing{Vacancy: rec, Body: b}), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Navigation
// ─────────────────────────────────────────────────────────────────────────────

// HasNeighbor reports whether a record exists one step away. It may load an
// adjacent chunk but never changes the cursor.
func (c *Cursor) HasNeighbor(ctx context.Context, dir Direction) Outcome {
	return c.peek(ctx, dir).outcome
}

// Jump moves one step. On anything but Found the cursor is left untouched.
func (c *Cursor) Jump(ctx context.Context, dir Direction) Outcome {
	n := c.peek(ctx, dir)
	if !n.outcome.OK() {
		return n.outcome
	}

	c.index = n.index
	if n.chunk != nil {
		c.chunk = n.chunk
	}
	c.refreshAffordances(ctx)

	return found()
}

// JumpWithFilter jumps repeatedly until the current record matches f.
// When the underlying jumps run out the cursor stays on the last record it
// reached; it does not return to where the call started.
func (c *Cursor) JumpWithFilter(ctx context.Context, dir Direction, f vacancy.Filter) Outcome {
	for {
		if err := ctx.Err(); err != nil {
			return storeError(err)
		}

		if o := c.Jump(ctx, dir); !o.OK() {
			return o
		}

		ok, err := c.Matches(ctx, f)
		if err != nil {
			return storeError(err)
		}
		if ok {
			return found()
		}
	}
}

// Matches evaluates f against the current record's body. A record whose
// document is missing never matches.
func (c *Cursor) Matches(ctx context.Context, f vacancy.Filter) (bool, error) {
	rec, ok := c.Current().Get()
	if !ok {
		return false, nil
	}
	if f.IsEmpty() {
		return true, nil
	}

	body, err := c.bodies.GetBody(ctx, rec.DocumentRef)
	if err != nil {
		return false, fmt.Errorf("fetch body of vacancy %d: %w", rec.ID, err)
	}
	b, ok := body.Get()
	if !ok {
		return false, nil
	}
	return f.Matches(b), nil
}

// peek is the lookahead behind HasNeighbor and Jump.
//
// Empty adjacent chunks are skipped in both directions. Going backward the
// skip continues toward chunk 0 and lands on the last record of the first
// non-empty chunk. Going forward an empty chunk means every later chunk is
// empty too, so the walk ends there.
func (c *Cursor) peek(ctx context.Context, dir Direction) neighbor {
	if c.empty || (dir != Forward && dir != Backward) {
		return neighbor{outcome: notFound()}
	}

	candidate := c.index + int(dir)
	if candidate < 0 {
		return neighbor{outcome: notFound()}
	}

	if c.chunk.Covers(candidate) {
		if c.chunk.At(candidate).IsPresent() {
			return neighbor{outcome: found(), index: candidate}
		}
		// Past the end of a short chunk.
		return neighbor{outcome: notFound()}
	}

	for next := c.chunk.Index() + int(dir); next >= 0; next += int(dir) {
		chunk, err := LoadChunk(ctx, c.loader, c.limit, next)
		if err != nil {
			return neighbor{outcome: storeError(err)}
		}

		if !chunk.IsEmpty() {
			index := chunk.First()
			if dir == Backward {
				index = chunk.Last()
			}
			return neighbor{outcome: found(), index: index, chunk: chunk}
		}

		if dir == Forward {
			break
		}
	}

	return neighbor{outcome: notFound()}
}

// refreshAffordances recomputes both flags. A store failure during the
// lookahead clears the flag.
func (c *Cursor) refreshAffordances(ctx context.Context) {
	c.canForward = c.peek(ctx, Forward).outcome.OK()
	c.canBackward = c.peek(ctx, Backward).outcome.OK()
}
