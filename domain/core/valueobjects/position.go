package valueobjects

// Position is a value object for a node's origin on the canvas.
// Value objects are immutable and have no identity beyond their value.
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position from canvas coordinates
func NewPosition(x, y float64) Position {
	return Position{x: x, y: y}
}

// X returns the horizontal coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the vertical coordinate
func (p Position) Y() float64 {
	return p.y
}

// Translate returns a new position shifted by (dx, dy)
func (p Position) Translate(dx, dy float64) Position {
	return Position{x: p.x + dx, y: p.y + dy}
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.x == other.x && p.y == other.y
}

// Size is a value object for a node's width and height
type Size struct {
	width  float64
	height float64
}

// NewSize creates a size; non-positive dimensions are allowed because the
// host sometimes reports zero-sized nodes during layout
func NewSize(width, height float64) Size {
	return Size{width: width, height: height}
}

// Width returns the horizontal extent
func (s Size) Width() float64 {
	return s.width
}

// Height returns the vertical extent
func (s Size) Height() float64 {
	return s.height
}

// Equals checks if two sizes are equal
func (s Size) Equals(other Size) bool {
	return s.width == other.width && s.height == other.height
}
