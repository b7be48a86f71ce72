package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallMetadata carries everything the invoker needs to run one action: who
// calls, what is called, with which semantics, the finalized calldata and the
// native value to forward.
//
// NOTE: Data never includes the value prefix of a value-carrying payload;
// SplitValue strips it before the payload is spliced.
type CallMetadata struct {
	From  common.Address // executor identity
	To    common.Address // action target
	Kind  CallKind
	Data  []byte       // calldata, selector first
	Value *uint256.Int // native value, value-carrying only
	Depth int          // nesting depth of the owning batch
}

// SplitValue separates a value-carrying payload into the forwarded value
// (first word) and the calldata that follows it. The returned calldata aliases
// payload.
func SplitValue(payload []byte) (*uint256.Int, []byte, error) {
	if len(payload) < WordSize {
		return nil, nil, fmt.Errorf("%w: have %d bytes", ErrMissingValue, len(payload))
	}
	value := new(uint256.Int).SetBytes32(payload[:WordSize])
	return value, payload[WordSize:], nil
}

// JoinValue is the inverse of SplitValue and builds a value-carrying payload.
func JoinValue(value *uint256.Int, calldata []byte) []byte {
	out := make([]byte, WordSize+len(calldata))
	if value != nil {
		word := value.Bytes32()
		copy(out, word[:])
	}
	copy(out[WordSize:], calldata)
	return out
}
