// Package interfaces documents the abstractions that connect the tracking
// core and holds compile-time checks that the concrete types satisfy them.
//
// # Interface Categories
//
// ## Storage
//
//   - store.Store: ordered key/value access with versioned compare-and-swap
//     (internal/store/store.go). Implemented by the gorm/sqlite repository
//     (internal/database/keyvalue) and by pebble (internal/store/pebblestore).
//   - clock.Clock: the time source for sessions, dates and delete expiry.
//
// ## Consumer-side Interfaces
//
// Each package declares the narrow interface it needs next to the consumer:
//
//   - catalog.ProgressSource, catalog.Purger: progress snapshot for sorting
//     and the cascade run after a confirmed delete.
//   - progress.BookResolver, progress.FinishRecorder: catalog lookup and the
//     daily "finished" record.
//   - session.LedgerWriter, session.DailyWriter, session.AppLedger: where the
//     session clocks flush whole seconds.
//   - stats.LedgerReader, stats.DaysReader, stats.ReadBooksReader: inputs of
//     the stats summary.
//   - reader.BookSource, reader.DocumentLoader, reader.ProgressStore,
//     reader.SessionClock: what the reading surface drives.
//   - tasks.IndexRebuilder, tasks.PurgeAuditor, tasks.ReconcileAuditor,
//     tasks.AuditEventCleaner: background task dependencies.
//   - http.*: controller dependencies (internal/http).
//
// # Adding a Store Backend
//
//  1. Implement store.Store, including Version and CompareAndSwap.
//  2. Add a backend constant in internal/config and a case in
//     entrypoint.openStore.
//  3. Add a compile-time check to checks.go and run the shared store tests
//     against it.
package interfaces
