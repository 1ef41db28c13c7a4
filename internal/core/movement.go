package core

import (
	"fmt"
	"math"
)

const (
	// CellSize is the number of fine units per grid cell.
	CellSize = 32
	// MaxStep is the largest per-axis cell displacement of a non-teleport move.
	MaxStep = 10

	// maxCoordinate keeps floor(fine/CellSize) well inside int range.
	maxCoordinate = 1 << 40
)

// Cell is a grid position.
type Cell struct {
	X int
	Y int
}

// Fine returns the fine-unit position of the cell's top-left corner.
func (c Cell) Fine() (float64, float64) {
	return float64(c.X * CellSize), float64(c.Y * CellSize)
}

// ToCell converts fine coordinates to a cell with floor semantics.
func ToCell(x, y float64) (Cell, error) {
	if !finite(x) || !finite(y) {
		return Cell{}, coreError(ErrCodeInvalidPosition, fmt.Sprintf("position (%v, %v) is not finite", x, y))
	}
	if math.Abs(x) > maxCoordinate || math.Abs(y) > maxCoordinate {
		return Cell{}, coreError(ErrCodeInvalidPosition, fmt.Sprintf("position (%v, %v) is out of range", x, y))
	}
	return Cell{
		X: int(math.Floor(x / CellSize)),
		Y: int(math.Floor(y / CellSize)),
	}, nil
}

// CheckStep rejects non-teleport moves further than MaxStep cells on either axis.
func CheckStep(from, to Cell, teleport bool) error {
	if teleport {
		return nil
	}
	if abs(to.X-from.X) > MaxStep || abs(to.Y-from.Y) > MaxStep {
		return coreError(ErrCodeTooFar, fmt.Sprintf("step from %v to %v exceeds %d cells", from, to, MaxStep))
	}
	return nil
}

// CheckCell rejects cells outside the room or inside an obstacle.
func (g *Geometry) CheckCell(c Cell) error {
	if !g.InBounds(c) {
		return coreError(ErrCodeOutOfBounds, fmt.Sprintf("cell %v is outside %dx%d", c, g.Width, g.Height))
	}
	if g.Blocked(c) {
		return coreError(ErrCodeObstacle, fmt.Sprintf("cell %v is blocked", c))
	}
	return nil
}

// InBounds reports whether c lies in [0,w)x[0,h).
func (g *Geometry) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

// Blocked reports whether c lies inside any obstacle.
func (g *Geometry) Blocked(c Cell) bool {
	for _, o := range g.Obstacles {
		if c.X >= o.X && c.X < o.X+o.Width && c.Y >= o.Y && c.Y < o.Y+o.Height {
			return true
		}
	}
	return false
}

// Walkable reports whether c is inside the room and not blocked.
func (g *Geometry) Walkable(c Cell) bool {
	return g.InBounds(c) && !g.Blocked(c)
}

// NearestFree returns the walkable, unoccupied cell closest to want by
// searching outward ring by ring. When nothing is free want is returned.
func (g *Geometry) NearestFree(want Cell, occupied func(Cell) bool) Cell {
	if g.Width <= 0 || g.Height <= 0 {
		return want
	}
	start := Cell{X: clamp(want.X, 0, g.Width-1), Y: clamp(want.Y, 0, g.Height-1)}

	free := func(c Cell) bool {
		return g.Walkable(c) && (occupied == nil || !occupied(c))
	}

	if free(start) {
		return start
	}
	maxRadius := max(g.Width, g.Height)
	for r := 1; r <= maxRadius; r++ {
		if c, ok := g.ringFree(start, r, free); ok {
			return c
		}
	}
	return want
}

// ringFree scans the perimeter of the square of radius r around center in
// row order: top edge, both sides, bottom edge. Cells off the grid are skipped.
func (g *Geometry) ringFree(center Cell, r int, free func(Cell) bool) (Cell, bool) {
	row := func(y int) (Cell, bool) {
		if y < 0 || y >= g.Height {
			return Cell{}, false
		}
		for x := max(center.X-r, 0); x <= min(center.X+r, g.Width-1); x++ {
			if c := (Cell{X: x, Y: y}); free(c) {
				return c, true
			}
		}
		return Cell{}, false
	}

	if c, ok := row(center.Y - r); ok {
		return c, true
	}
	for y := max(center.Y-r+1, 0); y <= min(center.Y+r-1, g.Height-1); y++ {
		for _, x := range [2]int{center.X - r, center.X + r} {
			if c := (Cell{X: x, Y: y}); free(c) {
				return c, true
			}
		}
	}
	return row(center.Y + r)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
