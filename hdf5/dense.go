package hdf5

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
)

// denseStore locates the index over densely stored links or attributes.
type denseStore interface {
	Index() (addr uint64, byOrder bool)
}

// denseMessages reads the messages of typ held in dense storage. With a
// creation order index they come back in creation order, otherwise by
// name. Objects that do not decode become *message.Malformed.
func denseMessages(r *binary.Reader, typ message.Type, heapAddr uint64, store denseStore) ([]message.Message, error) {
	fh, err := heap.ReadFractalHeap(r, heapAddr)
	if err != nil {
		return nil, denseErr(err)
	}
	idx, byOrder := store.Index()
	refs, err := btree.ReadHeapRefsV2(r, idx)
	if err != nil {
		return nil, fmt.Errorf("%s index: %w", typ, err)
	}

	msgs := make([]message.Message, 0, len(refs))
	for _, ref := range refs {
		data, err := fh.Get(ref.ID)
		if err != nil {
			msgs = append(msgs, &message.Malformed{MsgType: typ, Err: denseErr(err)})
			continue
		}
		msgs = append(msgs, message.ParseOrMalformed(typ, data, ref.Flags, r))
	}
	if !byOrder {
		sort.SliceStable(msgs, func(i, j int) bool { return denseName(msgs[i]) < denseName(msgs[j]) })
	}
	return msgs, nil
}

func denseErr(err error) error {
	if errors.Is(err, heap.ErrUnsupported) {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return err
}

// denseName sorts malformed entries after named ones.
func denseName(m message.Message) string {
	switch m := m.(type) {
	case *message.Link:
		return m.Name
	case *message.Attribute:
		return m.Name
	}
	return "\uffff"
}
