package orchestrator

type Phase int

const (
	Idle Phase = iota
	Connecting
	WaitingResponse
	FallbackTrying
	FallbackConnecting
	Success
	ErrorBothLimit
	TimedOut
	Cancelled
)

var phaseNames = [...]string{
	Idle:               "idle",
	Connecting:         "connecting",
	WaitingResponse:    "waiting_response",
	FallbackTrying:     "fallback_trying",
	FallbackConnecting: "fallback_connecting",
	Success:            "success",
	ErrorBothLimit:     "error_both_limit",
	TimedOut:           "timed_out",
	Cancelled:          "cancelled",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Slot names one of the two remote models.
type Slot int

const (
	Primary Slot = iota
	Secondary
)

func (s Slot) String() string {
	if s == Secondary {
		return "secondary"
	}
	return "primary"
}

func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Slot) other() Slot {
	if s == Primary {
		return Secondary
	}
	return Primary
}
