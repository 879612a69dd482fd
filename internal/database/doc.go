// Package database provides the gorm/sqlite connection used by the default
// store backend and the audit log.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── keyvalue/        # store.Store implementation over the kv_entries table
//	└── audit/           # Audit event persistence
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./readtrack.db")
//	kv := keyvalue.NewRepository(db.DB)
//	events := audit.NewRepository(db.DB)
//
// # Interface Implementations
//
//   - keyvalue.Repository: implements store.Store
//   - audit.Repository: backs audit.Service
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to the AutoMigrate call in database.go
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
