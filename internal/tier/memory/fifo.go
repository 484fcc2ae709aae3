package memory

import "container/list"

// fifoDiscipline orders keys strictly by insertion time; reads never
// reorder the list. Front is newest-inserted, back is oldest-inserted.
type fifoDiscipline struct {
	order *list.List
	index map[uint64]*list.Element
}

func newFIFODiscipline() *fifoDiscipline {
	return &fifoDiscipline{
		order: list.New(),
		index: make(map[uint64]*list.Element),
	}
}

func (d *fifoDiscipline) onInsert(key uint64) {
	if _, exists := d.index[key]; exists {
		return
	}
	d.index[key] = d.order.PushFront(key)
}

func (d *fifoDiscipline) onAccess(uint64) {
	// insertion order is immutable on read/overwrite
}

func (d *fifoDiscipline) onDelete(key uint64) {
	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *fifoDiscipline) evictOne() (uint64, bool) {
	el := d.order.Back()
	if el == nil {
		return 0, false
	}
	key := el.Value.(uint64)
	d.order.Remove(el)
	delete(d.index, key)
	return key, true
}

func (d *fifoDiscipline) clear() {
	d.order.Init()
	d.index = make(map[uint64]*list.Element)
}
