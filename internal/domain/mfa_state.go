package domain

// MFAState is the logical state of a user's TOTP factor
type MFAState int

const (
	StateNoFactor MFAState = iota
	StateKeyGenerated
	StateEnabled
)

func (s MFAState) String() string {
	switch s {
	case StateKeyGenerated:
		return "key_generated"
	case StateEnabled:
		return "enabled"
	default:
		return "no_factor"
	}
}

// MFAEvent is an action applied to the factor
type MFAEvent int

const (
	EventGenerateKey MFAEvent = iota
	EventAttach
	EventVerify
	EventRegenerateCodes
	EventDetach
)

func (e MFAEvent) String() string {
	switch e {
	case EventGenerateKey:
		return "mfa.generate-key"
	case EventAttach:
		return "mfa.attach"
	case EventVerify:
		return "mfa.verify"
	case EventRegenerateCodes:
		return "mfa.regenerate-codes"
	case EventDetach:
		return "mfa.detach"
	default:
		return "mfa.unknown"
	}
}

// NextState returns the state reached when event succeeds from state, or
// the error the event must fail with. Verify keeps Enabled; it only
// consumes recovery codes.
func NextState(state MFAState, event MFAEvent) (MFAState, error) {
	switch state {
	case StateNoFactor, StateKeyGenerated:
		switch event {
		case EventGenerateKey:
			return StateKeyGenerated, nil
		case EventAttach:
			return StateEnabled, nil
		case EventVerify:
			return state, ErrTOTPInvalid
		case EventRegenerateCodes, EventDetach:
			return state, ErrMFADisabled
		}
	case StateEnabled:
		switch event {
		case EventGenerateKey, EventAttach:
			return state, ErrMFAAlreadyEnabled
		case EventVerify, EventRegenerateCodes:
			return StateEnabled, nil
		case EventDetach:
			return StateNoFactor, nil
		}
	}
	return state, ErrInternal
}
