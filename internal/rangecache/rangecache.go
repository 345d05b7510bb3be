// Package rangecache sits between a driver.Driver and the byte-oriented
// parsers in internal/core and internal/structures. It caches fixed-size,
// address-aligned lines so the many small metadata reads a parse walk
// issues (object header messages, B-tree nodes, fractal heap headers)
// coalesce onto far fewer driver round trips, while large reads (raw
// chunk data) bypass the cache entirely and go straight to the driver.
package rangecache

import (
	"context"
	"sync"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
	"github.com/SlideRuleEarth/h5coro-go/internal/driver"
	"github.com/SlideRuleEarth/h5coro-go/internal/utils"
)

// LineSize is the cache's alignment granularity. Metadata reads below this
// size are served out of whole cached lines; reads at or above it bypass
// the cache.
const LineSize = 16

// RangeCache wraps a driver.Driver with a line cache and exposes
// io.ReaderAt so it can be handed directly to the core/structures parsers,
// which already accept an io.ReaderAt rather than a concrete file handle.
type RangeCache struct {
	mu    sync.RWMutex
	drv   driver.Driver
	lines map[int64][]byte
	ctx   context.Context
}

// New wraps drv. ctx bounds every driver fetch the cache issues; ReadAt
// takes no per-call context, so per-request cancellation needs a
// RangeCache built per request.
func New(ctx context.Context, drv driver.Driver) *RangeCache {
	return &RangeCache{
		drv:   drv,
		lines: make(map[int64][]byte),
		ctx:   ctx,
	}
}

// ReadAt implements io.ReaderAt. Reads below LineSize are served from (and
// populate) the cache, even when they span two adjacent lines: each line
// is fetched and cached independently, then concatenated into p. Reads
// at or above LineSize bypass the cache and read straight through the
// driver, since the coalescing benefit only applies to the small, hot
// metadata reads a parse walk issues.
func (c *RangeCache) ReadAt(p []byte, off int64) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	if int64(n) >= LineSize {
		buf, err := c.drv.ReadRange(c.ctx, off, int64(n))
		if err != nil {
			return 0, err
		}
		return copy(p, buf), nil
	}

	if sameLine(off, off+int64(n)-1) {
		lineStart := alignDown(off)
		line, err := c.getLine(lineStart)
		if err != nil {
			return 0, err
		}

		start := off - lineStart
		if err := utils.ValidateBufferSize(uint64(start)+uint64(n), uint64(len(line)), "range cache line slice"); err != nil {
			return 0, herrors.FormatError("range cache bounds", err)
		}
		return copy(p, line[start:start+int64(n)]), nil
	}

	// Spans two lines: load each independently (populating the cache for
	// both) and concatenate the overlapping slices into p.
	end := off + int64(n) - 1
	firstLineStart := alignDown(off)
	secondLineStart := alignDown(end)

	first, err := c.getLine(firstLineStart)
	if err != nil {
		return 0, err
	}
	second, err := c.getLine(secondLineStart)
	if err != nil {
		return 0, err
	}

	firstCount := int(firstLineStart + LineSize - off)
	if err := utils.ValidateBufferSize(uint64(off-firstLineStart+int64(firstCount)), uint64(len(first)), "range cache line slice"); err != nil {
		return 0, herrors.FormatError("range cache bounds", err)
	}
	copy(p[:firstCount], first[off-firstLineStart:])

	remaining := n - firstCount
	if err := utils.ValidateBufferSize(uint64(remaining), uint64(len(second)), "range cache line slice"); err != nil {
		return 0, herrors.FormatError("range cache bounds", err)
	}
	copy(p[firstCount:], second[:remaining])

	return n, nil
}

func (c *RangeCache) getLine(lineStart int64) ([]byte, error) {
	c.mu.RLock()
	line, ok := c.lines[lineStart]
	c.mu.RUnlock()
	if ok {
		return line, nil
	}

	buf, err := c.drv.ReadRange(c.ctx, lineStart, LineSize)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.lines[lineStart]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.lines[lineStart] = buf
	c.mu.Unlock()
	return buf, nil
}

// Invalidate drops every cached line. Unused on the read-only path but
// kept for a future writer or a driver.Copy()-triggered reset.
func (c *RangeCache) Invalidate() {
	c.mu.Lock()
	c.lines = make(map[int64][]byte)
	c.mu.Unlock()
}

func alignDown(off int64) int64 {
	return (off / LineSize) * LineSize
}

func sameLine(lo, hi int64) bool {
	return alignDown(lo) == alignDown(hi)
}
