package store

import (
	"github.com/klokku/weekgrid/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Notifier receives the user-visible outcome of every networked store operation.
type Notifier interface {
	Committed(outcome event_bus.StoreMutationCommitted)
	RolledBack(outcome event_bus.StoreMutationRolledBack)
}

// Subscribe wires n to the store's outcome events. The returned function unsubscribes.
func Subscribe(bus *event_bus.EventBus, n Notifier) (unsubscribe func()) {
	unsubCommitted := event_bus.SubscribeTyped(bus, event_bus.StoreCommitted,
		func(e event_bus.EventT[event_bus.StoreMutationCommitted]) error {
			n.Committed(e.Data)
			return nil
		})
	unsubRolledBack := event_bus.SubscribeTyped(bus, event_bus.StoreRolledBack,
		func(e event_bus.EventT[event_bus.StoreMutationRolledBack]) error {
			n.RolledBack(e.Data)
			return nil
		})
	return func() {
		unsubCommitted()
		unsubRolledBack()
	}
}

// LogNotifier reports outcomes through logrus.
type LogNotifier struct{}

func (LogNotifier) Committed(outcome event_bus.StoreMutationCommitted) {
	log.Infof("%s saved (%d events)", outcome.Operation, len(outcome.EventIds))
}

func (LogNotifier) RolledBack(outcome event_bus.StoreMutationRolledBack) {
	log.Errorf("%s failed and was undone: %v", outcome.Operation, outcome.Err)
}
