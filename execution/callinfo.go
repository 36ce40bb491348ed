package execution

import (
	"fmt"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
)

// CallType distinguishes a regular external call from a delegate (library)
// call running in the caller's storage context.
type CallType uint8

const (
	CallTypeCall CallType = iota
	CallTypeDelegate
)

func (c CallType) String() string {
	switch c {
	case CallTypeCall:
		return "CALL"
	case CallTypeDelegate:
		return "DELEGATE"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// OrderedEvent is one emitted event, ordered across the whole transaction.
type OrderedEvent struct {
	Order uint64       `json:"order"`
	From  *felt.Felt   `json:"from_address,omitempty"`
	Keys  []*felt.Felt `json:"keys"`
	Data  []*felt.Felt `json:"data"`
}

// OrderedL2toL1Message is one message sent to L1, ordered across the whole
// transaction.
type OrderedL2toL1Message struct {
	Order   uint64       `json:"order"`
	From    *felt.Felt   `json:"from_address,omitempty"`
	To      *felt.Felt   `json:"to_address"`
	Payload []*felt.Felt `json:"payload"`
}

// CallInfo is the recorded result of one entry-point invocation, including
// its nested calls. Nodes are finalized bottom-up as each entry point
// completes and are immutable once produced.
type CallInfo struct {
	CallerAddress      felt.Felt           `json:"caller_address"`
	ContractAddress    felt.Felt           `json:"contract_address"`
	ClassHash          *felt.Felt          `json:"class_hash,omitempty"`
	EntryPointSelector *felt.Felt          `json:"entry_point_selector,omitempty"`
	EntryPointType     core.EntryPointType `json:"-"`
	CallType           CallType            `json:"-"`

	Calldata []felt.Felt `json:"calldata"`
	Retdata  []felt.Felt `json:"result"`

	Events        []OrderedEvent         `json:"events"`
	Messages      []OrderedL2toL1Message `json:"messages"`
	InternalCalls []*CallInfo            `json:"calls"`

	Resources   ExecutionResources `json:"execution_resources"`
	GasConsumed uint64             `json:"gas_consumed"`
}

// AllEvents returns the events of the call tree, nested calls first, in the
// order they were emitted.
func (c *CallInfo) AllEvents() []OrderedEvent {
	events := make([]OrderedEvent, 0, len(c.Events))
	for _, internal := range c.InternalCalls {
		events = append(events, internal.AllEvents()...)
	}
	return append(events, c.Events...)
}

// AllMessages returns the L2-to-L1 messages of the call tree.
func (c *CallInfo) AllMessages() []OrderedL2toL1Message {
	messages := make([]OrderedL2toL1Message, 0, len(c.Messages))
	for _, internal := range c.InternalCalls {
		messages = append(messages, internal.AllMessages()...)
	}
	return append(messages, c.Messages...)
}

// TransactionExecutionInfo aggregates the call trees one transaction
// produced, plus the fee actually charged. Produced once per transaction,
// never mutated after.
type TransactionExecutionInfo struct {
	TxType core.TransactionType `json:"type"`

	// The __validate__ (or __validate_declare__/__validate_deploy__) call.
	ValidateCallInfo *CallInfo `json:"validate_invocation,omitempty"`
	// The main execution call (or the constructor call for deploys).
	CallInfo *CallInfo `json:"execute_invocation,omitempty"`
	// The fee debit/credit call.
	FeeTransferCallInfo *CallInfo `json:"fee_transfer_invocation,omitempty"`

	ActualFee      uint64             `json:"actual_fee"`
	TotalResources ExecutionResources `json:"execution_resources"`
	SyscallCounter map[string]uint64  `json:"-"`
}

// CallInfos returns the non-nil top-level call trees in execution order.
func (t *TransactionExecutionInfo) CallInfos() []*CallInfo {
	infos := make([]*CallInfo, 0, 3)
	for _, info := range []*CallInfo{t.ValidateCallInfo, t.CallInfo, t.FeeTransferCallInfo} {
		if info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}
