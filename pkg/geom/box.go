// Package geom provides shared geometry objects for use by the coordinator.
package geom

// Box represents a rectangular 3-dimensional axis-aligned bounding box.
type Box struct {
	MinCorner Vector	// The position of the corner with the smallest coordinate values.
	MaxCorner Vector	// The position of the corner with the largest coordinate values.
}

// NewBox returns the smallest box containing both corners, regardless of the order they're given in.
func NewBox(a, b Vector) Box {
	return Box{MinCorner: a.Min(b), MaxCorner: a.Max(b)}
}

// Union returns the smallest box containing both b and other.
func (b Box) Union(other Box) Box {
	return Box{MinCorner: b.MinCorner.Min(other.MinCorner), MaxCorner: b.MaxCorner.Max(other.MaxCorner)}
}

// Center returns the midpoint of the box.
func (b Box) Center() Vector {
	return b.MinCorner.Add(b.MaxCorner).Scale(0.5)
}

// Lengths returns the box's extent along each axis.
func (b Box) Lengths() Vector {
	return b.MaxCorner.Sub(b.MinCorner)
}