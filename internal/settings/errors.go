package settings

// VetoReason identifies which business rule rejected a settings write.
// Callers branch on the reason code, never on the message text.
type VetoReason string

const (
	// ReasonAPIError covers hard refusals outside the other categories, such
	// as a missing invite permission or a globally opted-out account.
	ReasonAPIError VetoReason = "api-error"
	// ReasonTargetValueAlreadySet rejects a write that would not change the
	// stored value.
	ReasonTargetValueAlreadySet VetoReason = "target-value-already-equals-goal-value"
	// ReasonAlreadyExplicitlySet rejects automated writes against a row the
	// user has already established, regardless of the stored value.
	ReasonAlreadyExplicitlySet VetoReason = "setting-already-explicitly-set"
	// ReasonPreventedByOtherSetting rejects a write that would violate a
	// cross-field invariant.
	ReasonPreventedByOtherSetting VetoReason = "setting-prevented-by-other-setting"
)

// VetoError is an expected business rejection of a settings write. It is
// always routed to the caller's OnError callback and never propagates past
// the policy boundary. The message is suitable for direct display.
type VetoError struct {
	Reason  VetoReason
	Message string
}

func (e *VetoError) Error() string {
	return e.Message
}

// NewVeto creates a veto error with the given reason and display message.
func NewVeto(reason VetoReason, message string) *VetoError {
	return &VetoError{Reason: reason, Message: message}
}
