package chunkengine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
)

func u64ptr(v uint64) *uint64 { return &v }

func TestNormalize_DefaultsFullExtent(t *testing.T) {
	sel, err := Normalize(nil, []uint64{4, 5})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 0}, sel.Lo)
	require.Equal(t, []uint64{4, 5}, sel.Hi)
	require.Equal(t, []uint64{4, 5}, sel.Extents())
}

func TestNormalize_PartialSpecFillsTrailingDims(t *testing.T) {
	sel, err := Normalize([]Bound{{Lo: u64ptr(1), Hi: u64ptr(3)}}, []uint64{10, 7})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 0}, sel.Lo)
	require.Equal(t, []uint64{3, 7}, sel.Hi)
}

func TestNormalize_TooManyDimensionsErrors(t *testing.T) {
	_, err := Normalize([]Bound{{}, {}, {}}, []uint64{4, 4})
	require.ErrorIs(t, err, herrors.ErrHyperslice)
}

func TestNormalize_OutOfRangeBoundsErrors(t *testing.T) {
	_, err := Normalize([]Bound{{Hi: u64ptr(100)}}, []uint64{10})
	require.ErrorIs(t, err, herrors.ErrHyperslice)
}

func TestNormalize_HiLessThanLoErrors(t *testing.T) {
	_, err := Normalize([]Bound{{Lo: u64ptr(5), Hi: u64ptr(2)}}, []uint64{10})
	require.ErrorIs(t, err, herrors.ErrHyperslice)
}

func TestCopyNDSlice_2D(t *testing.T) {
	// src is a 4x4 grid of single-byte elements, 0..15 row-major.
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i)
	}
	srcDims := []uint64{4, 4}

	// Copy the inner 2x2 block (rows 1-2, cols 1-2) into a fresh 2x2 dst.
	dst := make([]byte, 4)
	dstDims := []uint64{2, 2}

	srcSlice := []Range{{Lo: 1, Hi: 3}, {Lo: 1, Hi: 3}}
	dstSlice := []Range{{Lo: 0, Hi: 2}, {Lo: 0, Hi: 2}}

	err := copyNDSlice(src, dst, srcDims, dstDims, srcSlice, dstSlice, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 9, 10}, dst)
}

func TestCopyNDSlice_MultiByteElements(t *testing.T) {
	// 1-D source of 4 uint16 elements.
	src := make([]byte, 8)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(src[i*2:], uint16(i*100))
	}
	dst := make([]byte, 4)

	srcSlice := []Range{{Lo: 1, Hi: 3}}
	dstSlice := []Range{{Lo: 0, Hi: 2}}

	err := copyNDSlice(src, dst, []uint64{4}, []uint64{2}, srcSlice, dstSlice, 2)
	require.NoError(t, err)
	require.Equal(t, uint16(100), binary.LittleEndian.Uint16(dst[0:2]))
	require.Equal(t, uint16(200), binary.LittleEndian.Uint16(dst[2:4]))
}

func TestCopyNDSlice_DimensionMismatchErrors(t *testing.T) {
	err := copyNDSlice(nil, nil, []uint64{4}, []uint64{4, 4}, nil, nil, 1)
	require.Error(t, err)
}

func TestCopyNDSlice_ExtentMismatchErrors(t *testing.T) {
	err := copyNDSlice(make([]byte, 10), make([]byte, 10), []uint64{10}, []uint64{10},
		[]Range{{Lo: 0, Hi: 3}}, []Range{{Lo: 0, Hi: 2}}, 1)
	require.Error(t, err)
}

func TestRowMajorStrides(t *testing.T) {
	require.Equal(t, []uint64{12, 4, 1}, rowMajorStrides([]uint64{3, 3, 4}))
	require.Equal(t, []uint64{1}, rowMajorStrides([]uint64{5}))
}

func TestTileFill(t *testing.T) {
	out := make([]byte, 7)
	tileFill(out, []byte{1, 2, 3})
	require.Equal(t, []byte{1, 2, 3, 1, 2, 3, 1}, out)
}

func TestLeafIntersects(t *testing.T) {
	chunkDims := []uint64{4}
	dataDims := []uint64{10}

	cases := []struct {
		name   string
		scaled []uint64
		sel    Hyperslice
		want   bool
	}{
		{"fully inside", []uint64{0}, Hyperslice{Lo: []uint64{0}, Hi: []uint64{10}}, true},
		{"no overlap before", []uint64{0}, Hyperslice{Lo: []uint64{4}, Hi: []uint64{8}}, false},
		{"no overlap after", []uint64{2}, Hyperslice{Lo: []uint64{0}, Hi: []uint64{4}}, false},
		{"touches at boundary excluded", []uint64{1}, Hyperslice{Lo: []uint64{8}, Hi: []uint64{10}}, false},
		{"partial overlap", []uint64{1}, Hyperslice{Lo: []uint64{5}, Hi: []uint64{6}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := leafIntersects(tc.scaled, chunkDims, dataDims, tc.sel)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestHypersliceChunkRange(t *testing.T) {
	chunkDims := []uint64{2}
	_, stepSize := chunkSpaceGeometry([]uint64{8}, chunkDims)

	sel := Hyperslice{Lo: []uint64{3}, Hi: []uint64{5}}
	start, end := hypersliceChunkRange(sel, chunkDims, stepSize)
	require.EqualValues(t, 1, start)
	require.EqualValues(t, 3, end)
}

// --- B-tree pruning soundness (invariant 4) ---
//
// Builds a 2-level v1 B-tree by hand: a root internal node with two leaf
// children, where one child's chunk range lies entirely outside the
// requested hyperslice. That child's address is deliberately left
// unbacked by any data, so if collectIntersectingChunks ever tried to
// descend into it, ParseBTreeV1Node would fail reading out-of-bounds
// bytes and the test would error instead of asserting a wrong chunk set.

const offsetSize = 8

func encodeBTreeNode(level uint8, keyCoords [][]uint64, keyNbytes []uint32, children []uint64) []byte {
	ndims := len(keyCoords[0])
	entriesUsed := len(children)
	keySize := 4 + 4 + ndims*8
	headerSize := 4 + 1 + 1 + 2 + offsetSize*2
	dataSize := entriesUsed*(keySize+offsetSize) + keySize

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "TREE")
	buf[4] = 1 // node type: chunked raw data
	buf[5] = level
	binary.LittleEndian.PutUint16(buf[6:8], uint16(entriesUsed))
	// left/right sibling left as zero (unused by collectIntersectingChunks)

	off := headerSize
	for i := 0; i <= entriesUsed; i++ {
		var nbytes uint32
		if i < len(keyNbytes) {
			nbytes = keyNbytes[i]
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], nbytes)
		off += 4
		binary.LittleEndian.PutUint32(buf[off:off+4], 0) // filter mask
		off += 4
		for _, c := range keyCoords[i] {
			binary.LittleEndian.PutUint64(buf[off:off+8], c)
			off += 8
		}
		if i < entriesUsed {
			binary.LittleEndian.PutUint64(buf[off:off+8], children[i])
			off += 8
		}
	}
	return buf
}

func TestCollectIntersecting_PrunesNonOverlappingSubtree(t *testing.T) {
	chunkDims := []uint64{2}
	dataDims := []uint64{8}

	const (
		childAAddr = 200
		chunk0Addr = 2000
		chunk1Addr = 2100
		childBAddr = 9999 // never backed by data
	)

	leafA := encodeBTreeNode(0,
		[][]uint64{{0}, {2}, {4}}, // chunk0 @0, chunk1 @2, sentinel @4
		[]uint32{64, 64},
		[]uint64{chunk0Addr, chunk1Addr},
	)

	root := encodeBTreeNode(1,
		[][]uint64{{0}, {4}, {8}}, // child A covers [0,4), child B covers [4,8)
		nil,
		[]uint64{childAAddr, childBAddr},
	)

	buf := make([]byte, childAAddr+len(leafA))
	copy(buf, root)
	copy(buf[childAAddr:], leafA)

	r := bytes.NewReader(buf)

	// Select only the first two elements, entirely inside child A's range.
	sel := Hyperslice{Lo: []uint64{0}, Hi: []uint64{2}}
	chunks, err := CollectIntersecting(r, 0, offsetSize, chunkDims, dataDims, sel.Lo, sel.Hi)
	require.NoError(t, err, "must not attempt to descend into the unbacked, non-overlapping child")
	require.Len(t, chunks, 1)
	require.Equal(t, uint64(chunk0Addr), chunks[0].Address)
	require.Equal(t, []uint64{0}, chunks[0].Key.Scaled)
}

func TestCollectIntersecting_SelectionSpanningBothChildren(t *testing.T) {
	chunkDims := []uint64{2}
	dataDims := []uint64{8}

	const (
		childAAddr = 200
		childBAddr = 400
		chunk0Addr = 2000
		chunk1Addr = 2100
		chunk2Addr = 2200
		chunk3Addr = 2300
	)

	leafA := encodeBTreeNode(0,
		[][]uint64{{0}, {2}, {4}},
		[]uint32{64, 64},
		[]uint64{chunk0Addr, chunk1Addr},
	)
	leafB := encodeBTreeNode(0,
		[][]uint64{{4}, {6}, {8}},
		[]uint32{64, 64},
		[]uint64{chunk2Addr, chunk3Addr},
	)
	root := encodeBTreeNode(1,
		[][]uint64{{0}, {4}, {8}},
		nil,
		[]uint64{childAAddr, childBAddr},
	)

	size := childBAddr + len(leafB)
	buf := make([]byte, size)
	copy(buf, root)
	copy(buf[childAAddr:], leafA)
	copy(buf[childBAddr:], leafB)

	r := bytes.NewReader(buf)

	// Select elements [3,5): overlaps the last chunk of child A and the
	// first chunk of child B.
	sel := Hyperslice{Lo: []uint64{3}, Hi: []uint64{5}}
	chunks, err := CollectIntersecting(r, 0, offsetSize, chunkDims, dataDims, sel.Lo, sel.Hi)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	addrs := []uint64{chunks[0].Address, chunks[1].Address}
	require.ElementsMatch(t, []uint64{chunk1Addr, chunk2Addr}, addrs)
}
