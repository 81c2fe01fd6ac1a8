package rows

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/h5view/value"
)

// DefaultChunkSize is the number of rows compared per task.
const DefaultChunkSize = 5000

// SchemaDifferenceType classifies a schema mismatch.
type SchemaDifferenceType int

const (
	ColumnCount SchemaDifferenceType = iota
	ColumnName
	ColumnType
)

func (t SchemaDifferenceType) String() string {
	switch t {
	case ColumnCount:
		return "column count"
	case ColumnName:
		return "column name"
	case ColumnType:
		return "column type"
	}
	return fmt.Sprintf("SchemaDifferenceType(%d)", int(t))
}

// SchemaDifference is one column-level mismatch.
type SchemaDifference struct {
	Type    SchemaDifferenceType
	Column  int
	Name    string
	Message string
}

// CellDifference is one differing cell within a row.
type CellDifference struct {
	Column      int
	Name        string
	Left, Right value.Value
}

// RowDifference lists the differing cells of one row.
type RowDifference struct {
	Row   int
	Cells []CellDifference
}

// Report is the outcome of Diff. Rows are sorted by row index.
type Report struct {
	Equal   bool
	Message string
	Schema  []SchemaDifference
	Rows    []RowDifference
}

// CompareOption configures Diff and Equal.
type CompareOption func(*compareOptions)

type compareOptions struct {
	chunkSize   int
	parallelism int
}

// WithChunkSize sets how many rows one task compares.
func WithChunkSize(n int) CompareOption {
	return func(o *compareOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithCompareParallelism bounds the number of chunks compared at once.
func WithCompareParallelism(n int) CompareOption {
	return func(o *compareOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func newCompareOptions(opts []CompareOption) compareOptions {
	o := compareOptions{chunkSize: DefaultChunkSize, parallelism: defaultParallelism()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// errDifferent stops the remaining chunks once Equal has its answer.
var errDifferent = errors.New("tables differ")

// Equal reports whether a and b have the same schema, row count and cells.
// It stops at the first differing row.
func Equal(ctx context.Context, a, b *Table, opts ...CompareOption) (bool, error) {
	if a == b {
		return true, nil
	}
	if a == nil || b == nil {
		return false, nil
	}
	if len(schemaDifferences(a, b)) > 0 || a.NumRows() != b.NumRows() {
		return false, nil
	}

	o := newCompareOptions(opts)
	err := forEachChunk(ctx, a.NumRows(), o, func(ctx context.Context, _, start, end int) error {
		var da, db xxhash.Digest
		for i := start; i < end; i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if rowHash(&da, a, i) != rowHash(&db, b, i) || !sameRow(a, b, i) {
				return errDifferent
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, errDifferent):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Diff compares a and b and reports schema, row count and cell
// differences. Cells are only compared when the schemas and row counts
// match.
func Diff(ctx context.Context, a, b *Table, opts ...CompareOption) (*Report, error) {
	r := &Report{Equal: true, Message: "tables are equal"}
	if a == b {
		return r, nil
	}
	if a == nil || b == nil {
		r.Equal = false
		r.Message = "one or both tables are missing"
		return r, nil
	}

	if r.Schema = schemaDifferences(a, b); len(r.Schema) > 0 {
		r.Equal = false
		r.Message = "schemas differ"
		return r, nil
	}
	if a.NumRows() != b.NumRows() {
		r.Equal = false
		r.Message = fmt.Sprintf("row counts differ (left: %d, right: %d)", a.NumRows(), b.NumRows())
		return r, nil
	}

	o := newCompareOptions(opts)
	total := a.NumRows()
	perChunk := make([][]RowDifference, (total+o.chunkSize-1)/o.chunkSize)
	err := forEachChunk(ctx, total, o, func(ctx context.Context, chunk, start, end int) error {
		var da, db xxhash.Digest
		for i := start; i < end; i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if rowHash(&da, a, i) != rowHash(&db, b, i) || !sameRow(a, b, i) {
				perChunk[chunk] = append(perChunk[chunk], RowDifference{Row: i, Cells: cellDifferences(a, b, i)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, diffs := range perChunk {
		r.Rows = append(r.Rows, diffs...)
	}
	if len(r.Rows) > 0 {
		r.Equal = false
		r.Message = fmt.Sprintf("%d rows differ", len(r.Rows))
	}
	return r, nil
}

// forEachChunk runs fn over [0, total) in chunks with bounded parallelism.
func forEachChunk(ctx context.Context, total int, o compareOptions, fn func(ctx context.Context, chunk, start, end int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for chunk, start := 0, 0; start < total; chunk, start = chunk+1, start+o.chunkSize {
		end := min(start+o.chunkSize, total)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, chunk, start, end)
		})
	}
	return g.Wait()
}

func schemaDifferences(a, b *Table) []SchemaDifference {
	if a.NumColumns() != b.NumColumns() {
		return []SchemaDifference{{
			Type:    ColumnCount,
			Column:  -1,
			Message: fmt.Sprintf("column counts differ (left: %d, right: %d)", a.NumColumns(), b.NumColumns()),
		}}
	}

	var diffs []SchemaDifference
	for j := range a.Columns {
		ca, cb := a.Columns[j], b.Columns[j]
		if ca.Name != cb.Name {
			diffs = append(diffs, SchemaDifference{
				Type:    ColumnName,
				Column:  j,
				Name:    ca.Name,
				Message: fmt.Sprintf("column %d names differ (left: %q, right: %q)", j, ca.Name, cb.Name),
			})
		}
		if ca.Kind != cb.Kind {
			diffs = append(diffs, SchemaDifference{
				Type:    ColumnType,
				Column:  j,
				Name:    ca.Name,
				Message: fmt.Sprintf("column %q types differ (left: %s, right: %s)", ca.Name, ca.Kind, cb.Kind),
			})
		}
	}
	return diffs
}

// rowHash hashes the canonical encoding of row i: each cell's binary
// encoding preceded by its length.
func rowHash(d *xxhash.Digest, t *Table, i int) uint64 {
	d.Reset()
	var buf []byte
	for j := range t.Columns {
		cell, _ := t.Cell(i, j).MarshalBinary()
		buf = binary.AppendUvarint(buf[:0], uint64(len(cell)))
		d.Write(buf)
		d.Write(cell)
	}
	return d.Sum64()
}

// sameRow reports whether row i matches cell by cell. Equal hashes are
// confirmed with it.
func sameRow(a, b *Table, i int) bool {
	for j := range a.Columns {
		if !a.Cell(i, j).Equal(b.Cell(i, j)) {
			return false
		}
	}
	return true
}

func cellDifferences(a, b *Table, i int) []CellDifference {
	var diffs []CellDifference
	for j := range a.Columns {
		va, vb := a.Cell(i, j), b.Cell(i, j)
		if !va.Equal(vb) {
			diffs = append(diffs, CellDifference{Column: j, Name: a.Columns[j].Name, Left: va, Right: vb})
		}
	}
	return diffs
}
