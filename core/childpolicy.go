package core

// ChildPolicy is the action applied to still-running child executions when a
// parent workflow execution is terminated.
type ChildPolicy string

const (
	// ChildPolicyTerminate terminates child executions.
	ChildPolicyTerminate ChildPolicy = "TERMINATE"

	// ChildPolicyRequestCancel requests cancellation of each child execution.
	ChildPolicyRequestCancel ChildPolicy = "REQUEST_CANCEL"

	// ChildPolicyAbandon takes no action on child executions.
	ChildPolicyAbandon ChildPolicy = "ABANDON"
)

// Validate checks cp against the set of policies the remote service accepts.
func (cp ChildPolicy) Validate() error {
	switch cp {
	case ChildPolicyTerminate, ChildPolicyRequestCancel, ChildPolicyAbandon:
		return nil
	default:
		return &InvalidChildPolicyError{Policy: cp}
	}
}

func (cp ChildPolicy) String() string {
	return string(cp)
}
