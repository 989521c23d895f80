package types

// PushMode decides whether the immediate push after ingestion blocks the
// request or runs in the background. Both modes share the same delivery
// routine; the trade-off is sync latency vs ingestion latency.
type PushMode string

const (
	PushSync  PushMode = "sync"
	PushAsync PushMode = "async"
)

func (m PushMode) Valid() bool {
	switch m {
	case PushSync, PushAsync:
		return true
	default:
		return false
	}
}
