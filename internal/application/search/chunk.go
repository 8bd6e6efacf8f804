package search

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/vacancy"
)

// Chunk is one LIMIT/OFFSET window of vacancy records. It is a read-only
// snapshot: it returns the same records until the cursor replaces it.
type Chunk struct {
	index   int
	limit   int
	records []vacancy.Vacancy
}

// LoadChunk fetches the chunk with the given zero-based index.
func LoadChunk(ctx context.Context, loader vacancy.PageLoader, limit, index int) (*Chunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("chunk limit must be positive, got %d", limit)
	}
	if index < 0 {
		return nil, fmt.Errorf("chunk index must not be negative, got %d", index)
	}

	records, err := loader.LoadPage(ctx, limit, index*limit)
	if err != nil {
		return nil, fmt.Errorf("load chunk %d: %w", index, err)
	}
	if len(records) > limit {
		records = records[:limit]
	}

	return &Chunk{index: index, limit: limit, records: records}, nil
}

// Index is the zero-based chunk number.
func (c *Chunk) Index() int { return c.index }

// Len is the number of records actually loaded.
func (c *Chunk) Len() int { return len(c.records) }

// IsEmpty reports whether the window holds no records.
func (c *Chunk) IsEmpty() bool { return len(c.records) == 0 }

// IsShort reports whether fewer than limit records came back, which marks
// the end of the result set.
func (c *Chunk) IsShort() bool { return len(c.records) < c.limit }

// First is the global index of the chunk's first slot.
func (c *Chunk) First() int { return c.index * c.limit }

// Last is the global index of the last loaded record, or First()-1 when empty.
func (c *Chunk) Last() int { return c.First() + len(c.records) - 1 }

// Covers reports whether the global index falls inside the chunk's slot range,
// loaded or not.
func (c *Chunk) Covers(globalIndex int) bool {
	return globalIndex >= c.First() && globalIndex < c.First()+c.limit
}

// At returns the record at a global index when it is loaded.
func (c *Chunk) At(globalIndex int) mo.Option[vacancy.Vacancy] {
	local := globalIndex - c.First()
	if local < 0 || local >= len(c.records) {
		return mo.None[vacancy.Vacancy]()
	}
	return mo.Some(c.records[local])
}

// Records returns a copy of the loaded records.
func (c *Chunk) Records() []vacancy.Vacancy {
	out := make([]vacancy.Vacancy, len(c.records))
	copy(out, c.records)
	return out
}
