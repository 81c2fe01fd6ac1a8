package layout

import "fmt"

// grid divides a row-major array into equally sized chunks. Chunks are
// numbered in row-major order over the chunk grid; edge chunks extend
// past the array and only their inner part holds elements.
type grid struct {
	dims   []uint64
	chunk  []uint64
	perDim []uint64
	esize  uint64

	arrayStride []uint64
	chunkStride []uint64
}

func newGrid(dims []uint64, chunkDims []uint32, esize uint64) (*grid, error) {
	n := len(dims)
	if n == 0 || n != len(chunkDims) {
		return nil, fmt.Errorf("chunk rank %d does not match data rank %d", len(chunkDims), n)
	}
	g := &grid{
		dims:        dims,
		chunk:       make([]uint64, n),
		perDim:      make([]uint64, n),
		esize:       esize,
		arrayStride: make([]uint64, n),
		chunkStride: make([]uint64, n),
	}
	for d, c := range chunkDims {
		if c == 0 {
			return nil, fmt.Errorf("chunk dimension %d is zero", d)
		}
		g.chunk[d] = uint64(c)
		g.perDim[d] = (dims[d] + g.chunk[d] - 1) / g.chunk[d]
	}
	g.arrayStride[n-1] = esize
	g.chunkStride[n-1] = esize
	for d := n - 2; d >= 0; d-- {
		g.arrayStride[d] = g.arrayStride[d+1] * dims[d+1]
		g.chunkStride[d] = g.chunkStride[d+1] * g.chunk[d+1]
	}
	return g, nil
}

// count is the number of chunks covering the array.
func (g *grid) count() uint64 {
	n := uint64(1)
	for _, p := range g.perDim {
		n *= p
	}
	return n
}

// chunkBytes is the unfiltered size of one chunk.
func (g *grid) chunkBytes() uint64 {
	return g.chunkStride[0] * g.chunk[0]
}

// origin returns the element coordinates of chunk i.
func (g *grid) origin(i uint64) []uint64 {
	o := make([]uint64, len(g.dims))
	for d := len(g.dims) - 1; d >= 0; d-- {
		o[d] = (i % g.perDim[d]) * g.chunk[d]
		i /= g.perDim[d]
	}
	return o
}

// rows calls fn for every innermost row of the chunk at origin that lies
// inside the array, with the byte offsets of the row in the array and in
// the chunk and the row length in bytes.
func (g *grid) rows(origin []uint64, fn func(arrayOff, chunkOff, n uint64)) {
	nd := len(g.dims)
	ext := make([]uint64, nd)
	for d := range nd {
		if origin[d] >= g.dims[d] {
			return
		}
		ext[d] = min(g.chunk[d], g.dims[d]-origin[d])
	}
	rowLen := ext[nd-1] * g.esize

	idx := make([]uint64, nd)
	for {
		var a, c uint64
		for d := range nd {
			a += (origin[d] + idx[d]) * g.arrayStride[d]
			c += idx[d] * g.chunkStride[d]
		}
		fn(a, c, rowLen)

		d := nd - 2
		for ; d >= 0; d-- {
			if idx[d]++; idx[d] < ext[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// place copies the elements of chunk into array.
func (g *grid) place(array, chunk []byte, origin []uint64) error {
	var short bool
	g.rows(origin, func(a, c, n uint64) {
		if c+n > uint64(len(chunk)) || a+n > uint64(len(array)) {
			short = true
			return
		}
		copy(array[a:a+n], chunk[c:c+n])
	})
	if short {
		return fmt.Errorf("chunk at %v holds %d bytes, want %d", origin, len(chunk), g.chunkBytes())
	}
	return nil
}

// extract copies the elements covered by the chunk at origin out of
// array into a zero-padded chunk.
func (g *grid) extract(array []byte, origin []uint64) []byte {
	chunk := make([]byte, g.chunkBytes())
	g.rows(origin, func(a, c, n uint64) {
		if a+n <= uint64(len(array)) {
			copy(chunk[c:c+n], array[a:a+n])
		}
	})
	return chunk
}
