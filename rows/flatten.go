package rows

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/h5view/tree"
	"github.com/robert-malhotra/h5view/value"
)

// ErrNotSupportedDataType is returned for a dataset whose payload cannot
// become columns: marker kinds, a missing payload or rank 3.
var ErrNotSupportedDataType = errors.New("not supported data type")

// Option configures Flatten.
type Option func(*flattenOptions)

type flattenOptions struct {
	parallelism     int
	skipUnsupported bool
}

// WithParallelism bounds how many sibling datasets are converted at once.
func WithParallelism(n int) Option {
	return func(o *flattenOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// SkipUnsupported drops group members that would fail with
// ErrNotSupportedDataType instead of failing the whole group.
func SkipUnsupported() Option {
	return func(o *flattenOptions) { o.skipUnsupported = true }
}

// Flatten converts n into a table. A dataset gives its own columns; a
// group gives the columns of its child datasets in discovery order; any
// other node gives an empty table.
func Flatten(ctx context.Context, t *tree.Tree, n *tree.Node, opts ...Option) (*Table, error) {
	o := flattenOptions{parallelism: defaultParallelism()}
	for _, opt := range opts {
		opt(&o)
	}

	switch n.Type {
	case tree.Dataset:
		cols, err := Columns(n)
		if err != nil {
			return nil, err
		}
		return &Table{Columns: cols}, nil
	case tree.Group:
		return flattenGroup(ctx, t, n, o)
	}
	return &Table{}, nil
}

func flattenGroup(ctx context.Context, t *tree.Tree, n *tree.Node, o flattenOptions) (*Table, error) {
	var datasets []*tree.Node
	for _, c := range t.Children(n) {
		if c.Type == tree.Dataset {
			datasets = append(datasets, c)
		}
	}

	results := make([][]Column, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, ds := range datasets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cols, err := Columns(ds)
			if errors.Is(err, ErrNotSupportedDataType) && o.skipUnsupported {
				return nil
			}
			results[i] = cols
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &Table{}
	for _, cols := range results {
		table.Columns = append(table.Columns, cols...)
	}
	return table, nil
}

// Columns converts one dataset node. Scalars and vectors give one column
// named after the dataset; a [R, C] matrix gives C columns named
// name[j] with R values each.
func Columns(n *tree.Node) ([]Column, error) {
	d := n.Dataset
	if d == nil || d.Data == nil || d.Diagnostic != nil {
		return nil, fmt.Errorf("%w: %s has no payload", ErrNotSupportedDataType, n.Path)
	}
	arr := d.Data
	if !arr.Kind().IsData() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotSupportedDataType, n.Path, arr.Kind())
	}

	switch arr.Rank() {
	case 0, 1:
		return []Column{{Name: n.Name, Kind: arr.Kind(), Values: arr.Values()}}, nil
	case 2:
		dims := arr.Dims()
		rows, cols := int(dims[0]), int(dims[1])
		out := make([]Column, cols)
		for j := range out {
			vals := make([]value.Value, rows)
			for i := range vals {
				vals[i] = arr.Index(i*cols + j)
			}
			out[j] = Column{Name: fmt.Sprintf("%s[%d]", n.Name, j), Kind: arr.Kind(), Values: vals}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s has rank %d", ErrNotSupportedDataType, n.Path, arr.Rank())
}

func defaultParallelism() int {
	return max(1, runtime.NumCPU()-1)
}
