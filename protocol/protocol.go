// Package protocol implements the coherence protocol state machines that
// drive the L1 cache: MESI, Dragon, and the MOESI extension. Dispatch is a
// closed, small enumeration rather than an open plugin registry — each
// protocol is a concrete type satisfying the Protocol interface, and
// ByName is the one place that switches over the closed set.
package protocol

import "fmt"

// State is a coherence state drawn from the union of every protocol's state
// set. A given protocol only ever produces and accepts the subset relevant
// to it; Invalid means "no valid line" and is never itself an occupied
// state (see l1cache, which treats an invalid line as absent).
type State int

const (
	Invalid State = iota
	Modified
	Exclusive
	Shared
	SharedClean   // Dragon Sc
	SharedModified // Dragon Sm, the update-protocol owner state
	Owned         // MOESI O
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "I"
	case Modified:
		return "M"
	case Exclusive:
		return "E"
	case Shared:
		return "S"
	case SharedClean:
		return "Sc"
	case SharedModified:
		return "Sm"
	case Owned:
		return "O"
	default:
		return "?"
	}
}

// Op is a bus transaction type a protocol can request.
type Op int

const (
	// NoOp means the processor event is handled without a bus transaction
	// (a silent state transition).
	NoOp Op = iota
	BusRd
	BusRdX
	BusUpgr
	BusUpd
)

func (o Op) String() string {
	switch o {
	case NoOp:
		return "-"
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpgr:
		return "BusUpgr"
	case BusUpd:
		return "BusUpd"
	default:
		return "?"
	}
}

// Classification reports whether a hit line was privately or shared held
// at the moment of access.
type Classification int

const (
	Private Classification = iota
	SharedAccess
)

// Decision is the result of a processor event. Op (and the optional
// second op Op2, used only by Dragon's write-miss BusRd-then-BusUpd) name
// the bus transactions the cache must carry out; StateAlone and
// StateShared are the two possible resulting line states, selected by the
// cache once it knows whether any peer participated in the (last) bus
// transaction.
type Decision struct {
	Op          Op
	Op2         Op
	StateAlone  State
	StateShared State
	// Op2OnlyIfPresent, when set, means Op2 should only be carried out if
	// Op's transaction found a peer holding the block — used by Dragon's
	// write-miss, which fetches with BusRd and only pushes a BusUpd if
	// anyone else is left to receive it.
	Op2OnlyIfPresent bool
}

// SnoopDecision is the result of a snoop event delivered to a cache that
// holds (or held) the addressed block.
type SnoopDecision struct {
	NextState State
	// Supplied reports whether this cache furnished the block's data,
	// making a cache-to-cache transfer possible instead of a memory fill.
	Supplied bool
	// Present reports whether this cache held a valid copy of the block
	// before the snoop was applied.
	Present bool
}

// InvariantError reports a snoop that found a line in a state that is
// impossible for the bus operation observed — an implementation bug, not
// a recoverable condition (spec §7).
type InvariantError struct {
	Op    Op
	State State
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("protocol: state %s cannot observe snoop %s", e.State, e.Op)
}

// Protocol is a coherence protocol's transition logic: classify a
// processor event and choose the resulting states and bus operations, and
// react to snoop events observed on the bus.
type Protocol interface {
	Name() string
	OnProcessorEvent(hit, isWrite bool, cur State) (Decision, error)
	OnSnoopEvent(op Op, cur State) (SnoopDecision, error)
	Classify(cur State) Classification
}

// ByName resolves a protocol identifier to a Protocol instance. It is the
// one place in the module that switches over the closed set of protocols.
func ByName(name string) (Protocol, error) {
	switch name {
	case "MESI":
		return NewMESI(), nil
	case "Dragon":
		return NewDragon(), nil
	case "MOESI":
		return NewMOESI(), nil
	default:
		return nil, fmt.Errorf("protocol: unknown protocol %q", name)
	}
}

func silent(s State) Decision {
	return Decision{Op: NoOp, StateAlone: s, StateShared: s}
}
