// Package core defines core types.
package core

// VarType selects the name space a registered annotation name lives in.
type VarType int

const (
	VarTypeFlowVar VarType = iota + 1
	VarTypeFlowInt
	VarTypeFlowBit
	VarTypePktVar
)

func (t VarType) String() string {
	switch t {
	case VarTypeFlowVar:
		return "flowvar"
	case VarTypeFlowInt:
		return "flowint"
	case VarTypeFlowBit:
		return "flowbit"
	case VarTypePktVar:
		return "pktvar"
	default:
		return "unknown"
	}
}

// NameResolver resolves annotation ids to their registered names.
// A missing name is a valid outcome.
type NameResolver interface {
	LookupName(id uint32, t VarType) (string, bool)
}

// Flow-bit name prefixes that classify traffic. Bits carrying them are logged
// under the top-level "traffic" object with the prefix stripped.
const (
	TrafficIDPrefix    = "traffic/id/"
	TrafficLabelPrefix = "traffic/label/"
)
