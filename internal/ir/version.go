package ir

// Version constants for trace encodings and the runtime.
const (
	// TraceVersion is the trace record schema version.
	TraceVersion = "1"

	// RuntimeVersion is the reactor runtime version.
	RuntimeVersion = "0.1.0"
)
