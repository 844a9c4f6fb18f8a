package models

// ServingMode is the process-wide serving state. FULL means real backend calls
// subject to the spend cap; DEGRADED means the simulated path. Owned by the
// admission service, never mutated elsewhere.
type ServingMode string

const (
	ModeFull     ServingMode = "full"
	ModeDegraded ServingMode = "degraded"
)
