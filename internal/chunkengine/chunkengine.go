// Package chunkengine materializes a requested hyperslice of a chunked
// HDF5 dataset: it prunes the v1 B-tree chunk index down to the chunks
// that actually intersect the selection, fetches and filters each one, and
// copies only the intersecting sub-rectangle into the caller's output
// buffer. Grounded on internal/core/dataset_reader.go's chunk-copy
// machinery (copyNDChunk/copyNDChunkRecursive), generalized from "copy a
// whole chunk into its home position" to "copy an arbitrary source
// sub-rectangle into an arbitrary destination sub-rectangle" so a partial
// hyperslice never has to materialize full chunks it doesn't need.
package chunkengine

import (
	"fmt"
	"io"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
	"github.com/SlideRuleEarth/h5coro-go/internal/core"
	"github.com/SlideRuleEarth/h5coro-go/internal/utils"
)

// Bound is one caller-supplied dimension of a hyperslice request; either
// endpoint may be nil to mean "use the dimension's natural extent on that
// side".
type Bound struct {
	Lo *uint64
	Hi *uint64
}

// Hyperslice is a normalized, fully-bounded per-dimension selection:
// 0 <= Lo[d] <= Hi[d] <= dims[d] for every d.
type Hyperslice struct {
	Lo []uint64
	Hi []uint64
}

// Extents returns Hi[d]-Lo[d] for every dimension.
func (h Hyperslice) Extents() []uint64 {
	extents := make([]uint64, len(h.Lo))
	for d := range h.Lo {
		extents[d] = h.Hi[d] - h.Lo[d]
	}
	return extents
}

// Normalize validates and fills in a caller-supplied selection against a
// dataset's dimensions. A nil spec, or a spec shorter than dims, selects
// the full extent of every unspecified trailing dimension.
func Normalize(spec []Bound, dims []uint64) (Hyperslice, error) {
	if len(spec) > len(dims) {
		return Hyperslice{}, herrors.HypersliceError("hyperslice normalize",
			fmt.Errorf("selection has %d dimensions, dataset has %d", len(spec), len(dims)))
	}

	sel := Hyperslice{Lo: make([]uint64, len(dims)), Hi: make([]uint64, len(dims))}
	for d := range dims {
		lo, hi := uint64(0), dims[d]
		if d < len(spec) {
			if spec[d].Lo != nil {
				lo = *spec[d].Lo
			}
			if spec[d].Hi != nil {
				hi = *spec[d].Hi
			}
		}
		if hi < lo || hi > dims[d] {
			return Hyperslice{}, herrors.HypersliceError("hyperslice normalize",
				fmt.Errorf("dimension %d: bounds [%d,%d) invalid against extent %d", d, lo, hi, dims[d]))
		}
		sel.Lo[d] = lo
		sel.Hi[d] = hi
	}
	return sel, nil
}

// Read materializes sel for a chunked dataset, returning a tightly packed
// row-major buffer of sel.Extents() elements of size elemSize each.
func Read(r io.ReaderAt, layout *core.DataLayoutMessage, dims []uint64, elemSize uint64, sb *core.Superblock, filters *core.FilterPipelineMessage, sel Hyperslice, fill []byte) ([]byte, error) {
	ndims := len(layout.ChunkSize)
	if ndims == 0 {
		return nil, herrors.FormatError("chunked read", fmt.Errorf("chunked layout has zero dimensions"))
	}
	if len(dims) != ndims || len(sel.Lo) != ndims {
		return nil, herrors.FormatError("chunked read", fmt.Errorf("dimension count mismatch: dataset=%d chunk=%d selection=%d", len(dims), ndims, len(sel.Lo)))
	}

	chunkDims := layout.ChunkSize[:ndims]

	outElements, err := utils.CalculateHyperslabElements(sel.Extents())
	if err != nil {
		return nil, herrors.FormatError("chunked read", err)
	}
	outBytes, err := utils.SafeMultiply(outElements, elemSize)
	if err != nil {
		return nil, herrors.FormatError("chunked read", err)
	}
	if err := utils.ValidateBufferSize(outBytes, utils.MaxChunkSize*1024, "hyperslice output"); err != nil {
		return nil, herrors.FormatError("chunked read", err)
	}

	out := make([]byte, outBytes)
	if len(fill) > 0 {
		tileFill(out, fill)
	}

	_, stepSize := chunkSpaceGeometry(dims, chunkDims)
	chunkStart, chunkEnd := hypersliceChunkRange(sel, chunkDims, stepSize)

	chunks, err := collectIntersectingChunks(r, layout.DataAddress, sb.OffsetSize, ndims, chunkDims, dims, sel, stepSize, chunkStart, chunkEnd)
	if err != nil {
		return nil, herrors.FormatError("chunked read", err)
	}

	outDims := sel.Extents()
	for _, chunk := range chunks {
		if err := copyIntersectingChunk(r, chunk, chunkDims, dims, sel, outDims, elemSize, filters, out); err != nil {
			return nil, herrors.FormatError(fmt.Sprintf("chunked read: chunk at 0x%x", chunk.Address), err)
		}
	}
	return out, nil
}

// CollectIntersecting walks the v1 B-tree rooted at address and returns the
// chunk entries whose bounding box intersects the half-open bounding box
// [lo, hi), pruning internal-node subtrees whose linear chunk-index range
// falls entirely outside it. Exposed for callers (like a strided
// hyperslab reader) that compute their own per-element extraction from
// each chunk but still want genuine subtree pruning instead of a
// collect-everything-then-filter pass.
func CollectIntersecting(r io.ReaderAt, address uint64, offsetSize uint8, chunkDims, dataDims, lo, hi []uint64) ([]core.ChunkEntry, error) {
	sel := Hyperslice{Lo: lo, Hi: hi}
	_, stepSize := chunkSpaceGeometry(dataDims, chunkDims)
	chunkStart, chunkEnd := hypersliceChunkRange(sel, chunkDims, stepSize)
	return collectIntersectingChunks(r, address, offsetSize, len(chunkDims), chunkDims, dataDims, sel, stepSize, chunkStart, chunkEnd)
}

func tileFill(out, fill []byte) {
	n := copy(out, fill)
	for n < len(out) {
		n += copy(out[n:], out[:n])
	}
}

func copyIntersectingChunk(r io.ReaderAt, chunk core.ChunkEntry, chunkDims, dataDims []uint64, sel Hyperslice, outDims []uint64, elemSize uint64, filters *core.FilterPipelineMessage, out []byte) error {
	ndims := len(chunkDims)

	srcSlice := make([]Range, ndims)
	dstSlice := make([]Range, ndims)
	chunkExtent := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		chunkLo := chunk.Key.Scaled[d] * chunkDims[d]
		chunkHi := chunkLo + chunkDims[d]
		if chunkHi > dataDims[d] {
			chunkHi = dataDims[d]
		}
		chunkExtent[d] = chunkHi - chunkLo

		iLo, iHi := maxU64(chunkLo, sel.Lo[d]), minU64(chunkHi, sel.Hi[d])
		if iHi <= iLo {
			return nil // shouldn't happen post-pruning, but stay defensive
		}
		srcSlice[d] = Range{Lo: iLo - chunkLo, Hi: iHi - chunkLo}
		dstSlice[d] = Range{Lo: iLo - sel.Lo[d], Hi: iHi - sel.Lo[d]}
	}

	rawLen, err := utils.CalculateChunkSize64(chunkDims, elemSize)
	if err != nil {
		return err
	}
	if err := utils.ValidateBufferSize(uint64(chunk.Key.Nbytes), utils.MaxChunkSize, "chunk data"); err != nil {
		return err
	}

	hasFilters := filters != nil && len(filters.Filters) > 0

	var chunkData []byte
	if !hasFilters {
		// Fast path: with no filters the stored chunk is raw element data,
		// so it is read straight from the driver with no inflate step. The
		// read covers the whole chunk, not only the part that intersects sel.
		chunkData = utils.GetBuffer(int(rawLen))
		defer utils.ReleaseBuffer(chunkData)
		if _, err := r.ReadAt(chunkData, int64(chunk.Address)); err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
	} else {
		raw := make([]byte, chunk.Key.Nbytes)
		if _, err := r.ReadAt(raw, int64(chunk.Address)); err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		chunkData, err = filters.ApplyFilters(raw)
		if err != nil {
			return fmt.Errorf("apply filters: %w", err)
		}
	}

	return copyNDSlice(chunkData, out, chunkExtent, outDims, srcSlice, dstSlice, elemSize)
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
