package event_bus

const (
	// StoreCommitted is published after the remote calls of a store mutation succeeded.
	StoreCommitted EventType = "store.committed"
	// StoreRolledBack is published after a store mutation failed remotely and the local
	// collection was restored.
	StoreRolledBack EventType = "store.rolled_back"
)

// StoreMutationCommitted describes a mutation the persistence layer accepted.
type StoreMutationCommitted struct {
	Operation string
	// EventIds are the ids created, updated or deleted by the mutation.
	EventIds []string
}

// StoreMutationRolledBack describes a mutation that was undone locally.
type StoreMutationRolledBack struct {
	Operation string
	EventIds  []string
	Err       error
}
