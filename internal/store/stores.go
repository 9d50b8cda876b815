// Package store defines the storage collaborator contracts consumed by the
// reply engine, plus their shared data types. Implementations live in
// store/pg (managed mode) and store/memory (standalone mode and tests).
package store

// Stores is the top-level container for all storage backends.
type Stores struct {
	Business BusinessStore
	Orders   OrderStore
	Usage    UsageStore
	Events   EventStore
}
