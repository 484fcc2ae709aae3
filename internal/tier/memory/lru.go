package memory

import "container/list"

// lruDiscipline orders keys by recency: front is most-recently-used, back
// is least-recently-used. Generalized from the teacher's
// internal/cache/db/lru.go move-to-front machinery.
type lruDiscipline struct {
	order *list.List
	index map[uint64]*list.Element
}

func newLRUDiscipline() *lruDiscipline {
	return &lruDiscipline{
		order: list.New(),
		index: make(map[uint64]*list.Element),
	}
}

func (d *lruDiscipline) onInsert(key uint64) {
	d.index[key] = d.order.PushFront(key)
}

func (d *lruDiscipline) onAccess(key uint64) {
	if el, ok := d.index[key]; ok {
		d.order.MoveToFront(el)
	}
}

func (d *lruDiscipline) onDelete(key uint64) {
	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *lruDiscipline) evictOne() (uint64, bool) {
	el := d.order.Back()
	if el == nil {
		return 0, false
	}
	key := el.Value.(uint64)
	d.order.Remove(el)
	delete(d.index, key)
	return key, true
}

func (d *lruDiscipline) clear() {
	d.order.Init()
	d.index = make(map[uint64]*list.Element)
}
