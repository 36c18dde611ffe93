package queue

import "fmt"

// ItemRef names one queued item, either by queue position or by handle.
// It is resolved exactly once at the API boundary.
type ItemRef struct {
	index   int
	id      string
	byIndex bool
}

// ByIndex refers to the item at the given queue position.
func ByIndex(i int) ItemRef {
	return ItemRef{index: i, byIndex: true}
}

// ByID refers to the item with the given handle.
func ByID(id string) ItemRef {
	return ItemRef{id: id}
}

// ByItem refers to an item by its handle.
func ByItem(it *Item) ItemRef {
	return ItemRef{id: it.ID}
}

func (r ItemRef) String() string {
	if r.byIndex {
		return fmt.Sprintf("index %d", r.index)
	}
	return fmt.Sprintf("item %s", r.id)
}
