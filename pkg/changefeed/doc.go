// Package changefeed turns row changes of the backing database into typed
// events.
//
// Event is a sum type over the watched tables (UserChange, AlertChange,
// DeliveryChange, InventoryChange) with UnknownChange as the fallback, so
// new tables add a variant instead of a new subscription. Decode never
// fails; malformed rows produce zero-valued fields.
//
// PostgresSource listens on a pg_notify channel fed by the trigger that
// Migrate installs; MemorySource is the in-process equivalent used by tests.
package changefeed
