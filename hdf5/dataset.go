package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/filter"
	"github.com/robert-malhotra/h5view/internal/layout"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/value"
)

// Dataset is an opened dataset. Its header is decoded once; data is read
// on demand.
type Dataset struct {
	file   *File
	path   string
	header *object.Header

	space   *message.Dataspace
	dt      *message.Datatype
	storage *message.DataLayout
	filters *message.FilterPipeline
}

func newDataset(f *File, p string, h *object.Header) (*Dataset, error) {
	d := &Dataset{
		file:    f,
		path:    p,
		header:  h,
		space:   h.Dataspace(),
		dt:      h.Datatype(),
		storage: h.DataLayout(),
		filters: h.FilterPipeline(),
	}
	for _, need := range []struct {
		missing bool
		what    string
	}{
		{d.space == nil, "dataspace"},
		{d.dt == nil, "datatype"},
		{d.storage == nil, "layout"},
	} {
		if need.missing {
			return nil, fmt.Errorf("dataset %s: no %s message", p, need.what)
		}
	}
	return d, nil
}

func (d *Dataset) Name() string { return path.Base(d.path) }
func (d *Dataset) Path() string { return d.path }

// Dims is nil for a scalar and [0] for a null dataspace.
func (d *Dataset) Dims() []uint64 {
	if d.space.IsNull() {
		return []uint64{0}
	}
	if d.space.IsScalar() {
		return nil
	}
	return d.space.Dimensions
}

func (d *Dataset) IsScalar() bool { return d.space.IsScalar() }

func (d *Dataset) elements() uint64 {
	n := uint64(1)
	for _, dim := range d.Dims() {
		n *= dim
	}
	return n
}

// Type maps the datatype message. The returned Type is usable even when
// the mapping fails.
func (d *Dataset) Type() (value.Type, error) {
	return dtype.TypeOf(d.dt)
}

func (d *Dataset) LayoutClass() message.LayoutClass { return d.storage.Class }

// Filters lists the pipeline stages in write order.
func (d *Dataset) Filters() []message.FilterInfo {
	if d.filters == nil {
		return nil
	}
	return d.filters.Filters
}

// FilterNames is Filters by name.
func (d *Dataset) FilterNames() []string {
	var names []string
	for _, fi := range d.Filters() {
		names = append(names, filter.Name(fi))
	}
	return names
}

// FillValue returns the element stored in place of unwritten data, or
// nil when that is all zeros.
func (d *Dataset) FillValue() []byte {
	fv := d.header.FillValue()
	if fv == nil || len(fv.Fill()) != int(d.dt.Size) {
		return nil
	}
	return fv.Fill()
}

// ReadRaw returns the stored bytes of every element in row-major order.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	if d.elements() == 0 {
		return nil, nil
	}
	l, err := layout.New(d.storage, d.space, d.dt, d.filters, d.file.reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	if f, ok := l.(layout.Filler); ok {
		f.SetFill(d.FillValue())
	}
	raw, err := l.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return raw, nil
}

// ReadArray reads and decodes the whole dataset.
func (d *Dataset) ReadArray() (*value.Array, error) {
	if _, err := d.Type(); err != nil {
		return nil, err
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	arr, err := dtype.Decode(d.dt, raw, d.Dims(), d.file.reader)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", d.path, err)
	}
	return arr, nil
}

// Attributes returns the attributes in header order.
func (d *Dataset) Attributes() ([]*Attribute, error) {
	return attributesOf(d.header, d.file.reader)
}

func (d *Dataset) Attr(name string) (*Attribute, error) {
	attrs, err := d.Attributes()
	if err != nil {
		return nil, err
	}
	return findAttr(attrs, name, d.path)
}
