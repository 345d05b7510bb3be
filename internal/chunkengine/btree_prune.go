package chunkengine

import (
	"fmt"
	"io"

	"github.com/SlideRuleEarth/h5coro-go/internal/core"
)

// chunkSpaceGeometry computes, for each dimension, how many chunks tile the
// dataset (rounding up for a partial final chunk) and the row-major linear
// stride of advancing one chunk-index unit in that dimension.
func chunkSpaceGeometry(dims, chunkDims []uint64) (dimsInChunks, stepSize []uint64) {
	ndims := len(dims)
	dimsInChunks = make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		dimsInChunks[d] = (dims[d] + chunkDims[d] - 1) / chunkDims[d]
	}

	stepSize = make([]uint64, ndims)
	if ndims > 0 {
		stepSize[ndims-1] = 1
		for d := ndims - 2; d >= 0; d-- {
			stepSize[d] = stepSize[d+1] * dimsInChunks[d+1]
		}
	}
	return dimsInChunks, stepSize
}

func linearChunkIndex(scaled, stepSize []uint64) uint64 {
	var idx uint64
	for d := range scaled {
		idx += scaled[d] * stepSize[d]
	}
	return idx
}

// hypersliceChunkRange returns the linear index of the first chunk under
// sel and one past the linear index of the last chunk under sel.
func hypersliceChunkRange(sel Hyperslice, chunkDims, stepSize []uint64) (start, end uint64) {
	startScaled := make([]uint64, len(sel.Lo))
	endScaled := make([]uint64, len(sel.Lo))
	for d := range sel.Lo {
		startScaled[d] = sel.Lo[d] / chunkDims[d]
		endScaled[d] = (sel.Hi[d] - 1) / chunkDims[d]
	}
	start = linearChunkIndex(startScaled, stepSize)
	end = linearChunkIndex(endScaled, stepSize) + 1
	return start, end
}

// leafIntersects tests a chunk's bounding box (scaled coords times chunk
// dims, capped by dataset dims) against the requested hyperslice, per
// spec.md §4.6's leaf intersection test.
func leafIntersects(scaled, chunkDims, dataDims []uint64, sel Hyperslice) bool {
	for d := range scaled {
		lo := scaled[d] * chunkDims[d]
		hi := lo + chunkDims[d]
		if hi > dataDims[d] {
			hi = dataDims[d]
		}
		if hi <= sel.Lo[d] || lo >= sel.Hi[d] {
			return false
		}
	}
	return true
}

// collectIntersectingChunks walks the v1 B-tree rooted at address, pruning
// internal-node subtrees whose linear chunk-index range is disjoint from
// sel's, and returns only the leaf chunks that actually intersect sel.
// This replaces core.BTreeV1Node.CollectAllChunks's collect-then-filter
// approach for any dataset large enough for pruning to matter.
func collectIntersectingChunks(r io.ReaderAt, address uint64, offsetSize uint8, ndims int, chunkDims, dataDims []uint64, sel Hyperslice, stepSize []uint64, chunkStart, chunkEnd uint64) ([]core.ChunkEntry, error) {
	node, err := core.ParseBTreeV1Node(r, address, offsetSize, ndims, chunkDims)
	if err != nil {
		return nil, fmt.Errorf("chunkengine: parse b-tree node at 0x%x: %w", address, err)
	}

	if node.NodeLevel == 0 {
		var out []core.ChunkEntry
		for i := 0; i < int(node.EntriesUsed); i++ {
			key := node.Keys[i]
			if leafIntersects(key.Scaled[:ndims], chunkDims, dataDims, sel) {
				out = append(out, core.ChunkEntry{Key: key, Address: node.Children[i]})
			}
		}
		return out, nil
	}

	var out []core.ChunkEntry
	for i := 0; i < int(node.EntriesUsed); i++ {
		childLo := node.Keys[i].Scaled[:ndims]
		childHi := node.Keys[i+1].Scaled[:ndims]

		childStart := linearChunkIndex(childLo, stepSize)
		childEnd := linearChunkIndex(childHi, stepSize)
		if childEnd <= childStart {
			// Final entry's upper key is the B-tree's sentinel max key;
			// treat it as reaching the end of this hyperslice's range.
			childEnd = chunkEnd
		}
		if childEnd <= chunkStart || childStart >= chunkEnd {
			continue
		}

		children, err := collectIntersectingChunks(r, node.Children[i], offsetSize, ndims, chunkDims, dataDims, sel, stepSize, chunkStart, chunkEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}
