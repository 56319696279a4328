// Package units models the video function's unit and terminal graph.
package units

import (
	"fmt"

	"github.com/efficientgo/core/errors"
)

type Kind int

const (
	KindCameraTerminal Kind = iota + 1
	KindProcessingUnit
	KindExtensionUnit
	KindEncodingUnit
	KindOutputTerminal
)

func (k Kind) String() string {
	switch k {
	case KindCameraTerminal:
		return "CameraTerminal"
	case KindProcessingUnit:
		return "ProcessingUnit"
	case KindExtensionUnit:
		return "ExtensionUnit"
	case KindEncodingUnit:
		return "EncodingUnit"
	case KindOutputTerminal:
		return "OutputTerminal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one unit or terminal. A zero SourceID means the node has no input.
type Node struct {
	ID       uint8
	Kind     Kind
	SourceID uint8
}

// Graph lists nodes in descriptor emission order.
type Graph []Node

const (
	CameraTerminalID uint8 = 1
	ProcessingUnitID uint8 = 2
	ExtensionUnitID  uint8 = 3
	OutputTerminalID uint8 = 4
	EncodingUnitID   uint8 = 5
)

// Default is the camera's fixed chain. The output terminal holds ID 4 and the
// encoding unit that feeds it holds ID 5.
var Default = Graph{
	{ID: CameraTerminalID, Kind: KindCameraTerminal},
	{ID: ProcessingUnitID, Kind: KindProcessingUnit, SourceID: CameraTerminalID},
	{ID: ExtensionUnitID, Kind: KindExtensionUnit, SourceID: ProcessingUnitID},
	{ID: EncodingUnitID, Kind: KindEncodingUnit, SourceID: ExtensionUnitID},
	{ID: OutputTerminalID, Kind: KindOutputTerminal, SourceID: EncodingUnitID},
}

var (
	ErrZeroID          = errors.New("unit id 0 is reserved")
	ErrDuplicateID     = errors.New("duplicate unit id")
	ErrDanglingSource  = errors.New("source does not precede its user")
	ErrUnknownKind     = errors.New("unknown unit kind")
	ErrMissingTerminal = errors.New("graph needs exactly one camera terminal and one output terminal")
)

// Validate checks that IDs are unique and non-zero and that every source is
// emitted before the node that uses it, which makes emission order a
// topological order of the graph.
func Validate(g Graph) error {
	seen := make(map[uint8]bool, len(g))
	var cameras, outputs int
	for i, n := range g {
		if n.ID == 0 {
			return errors.Wrapf(ErrZeroID, "node %d", i)
		}
		if seen[n.ID] {
			return errors.Wrapf(ErrDuplicateID, "id %d", n.ID)
		}
		switch n.Kind {
		case KindCameraTerminal:
			cameras++
		case KindOutputTerminal:
			outputs++
		case KindProcessingUnit, KindExtensionUnit, KindEncodingUnit:
		default:
			return errors.Wrapf(ErrUnknownKind, "id %d", n.ID)
		}
		if n.SourceID != 0 && !seen[n.SourceID] {
			return errors.Wrapf(ErrDanglingSource, "id %d references %d", n.ID, n.SourceID)
		}
		seen[n.ID] = true
	}
	if cameras != 1 || outputs != 1 {
		return ErrMissingTerminal
	}
	return nil
}

// Find returns the node with the given ID.
func (g Graph) Find(id uint8) (Node, bool) {
	for _, n := range g {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// First returns the first node of the given kind.
func (g Graph) First(kind Kind) (Node, bool) {
	for _, n := range g {
		if n.Kind == kind {
			return n, true
		}
	}
	return Node{}, false
}
