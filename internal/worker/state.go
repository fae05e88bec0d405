package worker

// State is the worker's position in its lifecycle.
type State string

const (
	StateCreated      State = "created"
	StateFetching     State = "fetching"
	StateParsing      State = "parsing"
	StateMapping      State = "mapping"
	StateThresholding State = "thresholding"
	StateEmitting     State = "emitting"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Outcome classifies how a worker finished.
type Outcome string

const (
	OutcomePending     Outcome = ""
	OutcomeEmitted     Outcome = "emitted"
	OutcomeEmpty       Outcome = "empty"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeParseFailed Outcome = "parse_failed"
	OutcomeSinkFailed  Outcome = "sink_failed"
	OutcomeCanceled    Outcome = "canceled"
)
