package ir

// Version constants for persisted records.
const (
	// SchemaVersion is the relational schema version written to the store.
	SchemaVersion = 1

	// EngineVersion is the rematch engine version.
	EngineVersion = "0.1.0"
)
