package core

// Verdict is the outcome of a single guardrail inspection: either Allow or
// Block with a user-visible reason. Verdicts are produced fresh for every
// inspection and are never persisted.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a passing verdict.
func Allow() Verdict { return Verdict{Allowed: true} }

// Block returns a vetoing verdict carrying the policy message that becomes
// the user-facing response for the affected step.
func Block(reason string) Verdict { return Verdict{Allowed: false, Reason: reason} }

// Blocked reports whether the verdict vetoes the pending action.
func (v Verdict) Blocked() bool { return !v.Allowed }
