package memory

import "container/heap"

// lfuItem is one entry in the frequency heap: freq is the hit+write
// counter, seq is a logical clock advanced on every touch, used to break
// ties by oldest last-access per spec.md §4.3.
type lfuItem struct {
	key   uint64
	freq  int64
	seq   uint64
	index int
}

type lfuHeap []*lfuItem

func (h lfuHeap) Len() int { return len(h) }
func (h lfuHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}
func (h lfuHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *lfuHeap) Push(x any) {
	item := x.(*lfuItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *lfuHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// lfuDiscipline evicts the least-frequently-used key, ties broken by
// oldest last access, in O(log n) via a heap.
type lfuDiscipline struct {
	h     lfuHeap
	index map[uint64]*lfuItem
	clock uint64
}

func newLFUDiscipline() *lfuDiscipline {
	return &lfuDiscipline{
		h:     lfuHeap{},
		index: make(map[uint64]*lfuItem),
	}
}

func (d *lfuDiscipline) touch(key uint64) {
	d.clock++
	if item, ok := d.index[key]; ok {
		item.freq++
		item.seq = d.clock
		heap.Fix(&d.h, item.index)
		return
	}
	item := &lfuItem{key: key, freq: 1, seq: d.clock}
	d.index[key] = item
	heap.Push(&d.h, item)
}

func (d *lfuDiscipline) onInsert(key uint64) { d.touch(key) }
func (d *lfuDiscipline) onAccess(key uint64) { d.touch(key) }

func (d *lfuDiscipline) onDelete(key uint64) {
	item, ok := d.index[key]
	if !ok {
		return
	}
	heap.Remove(&d.h, item.index)
	delete(d.index, key)
}

func (d *lfuDiscipline) evictOne() (uint64, bool) {
	if d.h.Len() == 0 {
		return 0, false
	}
	item := heap.Pop(&d.h).(*lfuItem)
	delete(d.index, item.key)
	return item.key, true
}

func (d *lfuDiscipline) clear() {
	d.h = lfuHeap{}
	d.index = make(map[uint64]*lfuItem)
}
