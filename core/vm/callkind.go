package vm

import "fmt"

// CallKind selects the call semantics an action is executed with. The numeric
// values are part of the config descriptor wire format and must not change.
type CallKind uint8

const (
	// ContextPreserving runs the target as if it were the executor itself:
	// balances and storage the target touches belong to the executor.
	ContextPreserving CallKind = 0
	// Reserved is an unused slot of the descriptor format. Actions carrying
	// it are rejected by the invoker.
	Reserved CallKind = 1
	// ValueCarrying runs the target as an independent callee, optionally
	// forwarding native currency decoded from the payload prefix.
	ValueCarrying CallKind = 2

	// maxCallKind is the highest kind the descriptor format defines.
	maxCallKind = ValueCarrying
)

// Defined reports whether the kind is one of the values the descriptor format
// assigns, including the reserved slot.
func (k CallKind) Defined() bool {
	return k <= maxCallKind
}

func (k CallKind) String() string {
	switch k {
	case ContextPreserving:
		return "context-preserving"
	case Reserved:
		return "reserved"
	case ValueCarrying:
		return "value-carrying"
	}
	return fmt.Sprintf("callkind(%d)", uint8(k))
}
