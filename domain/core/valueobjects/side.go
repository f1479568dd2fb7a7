package valueobjects

import "errors"

// Side identifies the connector anchor point on a node's border
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// NewSideFromString parses a side read from host data
func NewSideFromString(s string) (Side, error) {
	switch Side(s) {
	case SideTop, SideRight, SideBottom, SideLeft:
		return Side(s), nil
	case "":
		return "", nil
	default:
		return "", errors.New("side must be one of top, right, bottom, left")
	}
}

// String returns the string representation
func (s Side) String() string {
	return string(s)
}

// IsZero checks if the side is unset
func (s Side) IsZero() bool {
	return s == ""
}

// Opposite returns the facing side
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}

// SidePair describes the anchoring of a directed edge
type SidePair struct {
	From Side
	To   Side
}
