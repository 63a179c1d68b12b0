package driven

import "time"

// VaultMetrics records the outcome of each vault operation.
type VaultMetrics interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}
