package config

const (
	// DefaultDatabasePath is the default path for the sqlite database
	DefaultDatabasePath = "./readtrack.db"

	// DefaultPebbleDir is used when DATABASE_BACKEND=pebble
	DefaultPebbleDir = "./readtrack-pebble"

	DefaultTheme = "light"
)
