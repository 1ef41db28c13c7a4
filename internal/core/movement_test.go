package core

import (
	"errors"
	"math"
	"testing"

	"github.com/vovakirdan/gridverse/internal/store"
)

func TestToCell(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		want    Cell
		wantErr bool
	}{
		{name: "exact", x: 384, y: 320, want: Cell{12, 10}},
		{name: "fractional floors", x: 31.9, y: 63.99, want: Cell{0, 1}},
		{name: "negative floors down", x: -1, y: -33, want: Cell{-1, -2}},
		{name: "nan", x: math.NaN(), y: 0, wantErr: true},
		{name: "inf", x: 0, y: math.Inf(1), wantErr: true},
		{name: "huge", x: 1e300, y: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToCell(tt.x, tt.y)
			if tt.wantErr {
				var ce *CoreError
				if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidPosition {
					t.Fatalf("expected invalid position error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ToCell(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestCheckStep(t *testing.T) {
	from := Cell{10, 10}
	tests := []struct {
		name     string
		to       Cell
		teleport bool
		ok       bool
	}{
		{"stay", Cell{10, 10}, false, true},
		{"max diagonal", Cell{20, 0}, false, true},
		{"too far x", Cell{21, 10}, false, false},
		{"too far y", Cell{10, -1}, false, false},
		{"teleport bypasses", Cell{100, 100}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckStep(from, tt.to, tt.teleport)
			if tt.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.ok {
				var ce *CoreError
				if !errors.As(err, &ce) || ce.Code != ErrCodeTooFar {
					t.Fatalf("expected too_far, got %v", err)
				}
			}
		})
	}
}

func TestGeometryCheckCell(t *testing.T) {
	geo := &Geometry{
		Width:     20,
		Height:    15,
		Obstacles: []store.Obstacle{{X: 5, Y: 5, Width: 2, Height: 2}},
	}
	tests := []struct {
		cell Cell
		code string
	}{
		{Cell{0, 0}, ""},
		{Cell{19, 14}, ""},
		{Cell{20, 0}, ErrCodeOutOfBounds},
		{Cell{0, 15}, ErrCodeOutOfBounds},
		{Cell{-1, 3}, ErrCodeOutOfBounds},
		{Cell{5, 5}, ErrCodeObstacle},
		{Cell{6, 6}, ErrCodeObstacle},
		{Cell{7, 6}, ""},
		{Cell{6, 7}, ""},
	}
	for _, tt := range tests {
		err := geo.CheckCell(tt.cell)
		if tt.code == "" {
			if err != nil {
				t.Errorf("cell %v: unexpected error %v", tt.cell, err)
			}
			continue
		}
		var ce *CoreError
		if !errors.As(err, &ce) || ce.Code != tt.code {
			t.Errorf("cell %v: expected %s, got %v", tt.cell, tt.code, err)
		}
	}
}

func TestNearestFree(t *testing.T) {
	geo := &Geometry{
		Width:     20,
		Height:    20,
		Obstacles: []store.Obstacle{{X: 9, Y: 9, Width: 3, Height: 3}},
	}

	if got := geo.NearestFree(Cell{2, 2}, nil); got != (Cell{2, 2}) {
		t.Fatalf("free cell should be kept, got %v", got)
	}

	got := geo.NearestFree(Cell{10, 10}, nil)
	if !geo.Walkable(got) {
		t.Fatalf("expected walkable cell, got %v", got)
	}
	if abs(got.X-10) != 2 && abs(got.Y-10) != 2 {
		t.Fatalf("expected a cell on the first free ring, got %v", got)
	}

	occupied := func(c Cell) bool { return c == Cell{0, 0} }
	if got := geo.NearestFree(Cell{0, 0}, occupied); got == (Cell{0, 0}) || !geo.Walkable(got) {
		t.Fatalf("expected a neighbour of an occupied origin, got %v", got)
	}

	if got := geo.NearestFree(Cell{50, 50}, nil); !geo.InBounds(got) {
		t.Fatalf("out of bounds request should land inside, got %v", got)
	}

	full := &Geometry{Width: 2, Height: 1, Obstacles: []store.Obstacle{{X: 0, Y: 0, Width: 2, Height: 1}}}
	if got := full.NearestFree(Cell{1, 0}, nil); got != (Cell{1, 0}) {
		t.Fatalf("with no free cell the request is kept, got %v", got)
	}
}

func TestNearestFreeVisitsEachCellOnce(t *testing.T) {
	geo := &Geometry{Width: 37, Height: 23}
	seen := make(map[Cell]int)
	occupied := func(c Cell) bool {
		seen[c]++
		return true
	}

	want := Cell{5, 17}
	if got := geo.NearestFree(want, occupied); got != want {
		t.Fatalf("fully occupied room should keep the request, got %v", got)
	}
	if len(seen) != geo.Width*geo.Height {
		t.Fatalf("expected every cell checked, got %d of %d", len(seen), geo.Width*geo.Height)
	}
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("cell %v checked %d times", c, n)
		}
	}
}

func TestNearestFreePrefersCloserRing(t *testing.T) {
	geo := &Geometry{Width: 30, Height: 30}
	free := map[Cell]bool{{20, 20}: true, {12, 15}: true, {28, 2}: true}
	occupied := func(c Cell) bool { return !free[c] }

	if got := geo.NearestFree(Cell{15, 15}, occupied); got != (Cell{12, 15}) {
		t.Fatalf("expected the ring-3 cell, got %v", got)
	}
}
