package slotdb

// Store is a flat collection of independently addressable string slots.
//
// Every call must be atomic and durable once it returns. No ordering or
// transactional guarantee spans multiple calls.
type Store interface {
	// GetSlot returns the slot's value, or ok == false if the slot is absent.
	GetSlot(key string) (value string, ok bool, err error)

	// SetSlot creates or overwrites a slot.
	SetSlot(key, value string) error

	// DeleteSlot removes a slot. Deleting an absent slot is not an error.
	DeleteSlot(key string) error

	// ListKeys returns the keys of all present slots starting with prefix,
	// in no particular order.
	ListKeys(prefix string) ([]string, error)
}
