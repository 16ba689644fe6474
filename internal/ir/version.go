package ir

// Version constants for the persisted schema and the engine.
const (
	// SchemaVersion is the persisted document version.
	SchemaVersion = "1"

	// EngineVersion is the craftloop engine version.
	EngineVersion = "0.1.0"
)
