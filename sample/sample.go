// Package sample writes the HDF5 files used for demos and tests.
package sample

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/value"
)

// Description is the value of the root Description attribute.
const Description = "sample"

// Write creates the sample file at path:
//
//	/                  @Description = "sample"
//	/Group1/Dataset1   int32 [10]     1..10
//	/Group2/Dataset2   float64 [3, 3] 1.1 1.2 1.3 / 2.1 2.2 2.3 / 3.1 3.2 3.3
func Write(path string) error {
	return write(path, func(f *hdf5.File) error { return populate(f) })
}

// WriteSeries writes the sample file plus a /Series group of n rows:
// time (float64), value (float32), label (string) and flags (bool).
func WriteSeries(path string, n int) error {
	if n <= 0 {
		return fmt.Errorf("series length must be positive, got %d", n)
	}
	return write(path, func(f *hdf5.File) error {
		if err := populate(f); err != nil {
			return err
		}
		return series(f, n)
	})
}

func write(path string, fill func(*hdf5.File) error) error {
	f, err := hdf5.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func populate(f *hdf5.File) error {
	root := f.Root()
	if err := root.SetAttr("Description", value.OfString(Description)); err != nil {
		return err
	}

	g1, err := root.CreateGroup("Group1")
	if err != nil {
		return err
	}
	ints := make([]int32, 10)
	for i := range ints {
		ints[i] = int32(i + 1)
	}
	if _, err := g1.CreateDataset("Dataset1", value.Vector(ints)); err != nil {
		return err
	}

	g2, err := root.CreateGroup("Group2")
	if err != nil {
		return err
	}
	m, err := value.NewArray([]uint64{3, 3}, []float64{
		1.1, 1.2, 1.3,
		2.1, 2.2, 2.3,
		3.1, 3.2, 3.3,
	})
	if err != nil {
		return err
	}
	_, err = g2.CreateDataset("Dataset2", m)
	return err
}

func series(f *hdf5.File, n int) error {
	g, err := f.Root().CreateGroup("Series")
	if err != nil {
		return err
	}
	if err := g.SetAttr("rows", value.OfInt64(int64(n))); err != nil {
		return err
	}

	times := make([]float64, n)
	vals := make([]float32, n)
	labels := make([]string, n)
	flags := make([]bool, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i) * 0.5
		vals[i] = float32(math.Sin(float64(i) / 10))
		labels[i] = fmt.Sprintf("row-%d", i)
		flags[i] = i%3 == 0
	}

	chunk := uint64(n)
	if chunk > 1024 {
		chunk = 1024
	}
	if _, err := g.CreateDataset("time", value.Vector(times),
		hdf5.WithChunks(chunk), hdf5.WithShuffle(), hdf5.WithCompression(6),
		hdf5.WithAttribute("units", value.OfString("s"))); err != nil {
		return err
	}
	if _, err := g.CreateDataset("value", value.Vector(vals), hdf5.WithChunks(chunk), hdf5.WithCompression(6)); err != nil {
		return err
	}
	if _, err := g.CreateDataset("label", value.Vector(labels), hdf5.WithVarLenStrings()); err != nil {
		return err
	}
	_, err = g.CreateDataset("flags", value.Vector(flags))
	return err
}
