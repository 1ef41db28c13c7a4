// Package seed loads fixture users and rooms from a YAML layout file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/gridverse/internal/store"
)

// Layout is the on-disk fixture format.
type Layout struct {
	Users []UserSpec `yaml:"users"`
	Rooms []RoomSpec `yaml:"rooms"`
}

// UserSpec describes a user to create.
type UserSpec struct {
	Username  string `yaml:"username"`
	AvatarURL string `yaml:"avatar_url"`
}

// RoomSpec describes a space or map and its obstacles.
type RoomSpec struct {
	Kind      string         `yaml:"kind"`
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Obstacles []ObstacleSpec `yaml:"obstacles"`
}

// ObstacleSpec is a blocked rectangle in cell units.
type ObstacleSpec struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Result summarizes what Apply wrote.
type Result struct {
	Users int
	Rooms int
}

// Load reads and validates a layout file.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates layout YAML.
func Parse(data []byte) (*Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// Validate checks room kinds, dimensions and that obstacles fit the grid.
func (l *Layout) Validate() error {
	var errs []error
	for i, u := range l.Users {
		if u.Username == "" {
			errs = append(errs, fmt.Errorf("users[%d]: username is required", i))
		}
	}
	for i, r := range l.Rooms {
		if !store.RoomKind(r.Kind).Valid() {
			errs = append(errs, fmt.Errorf("rooms[%d]: kind must be space or map, got %q", i, r.Kind))
		}
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("rooms[%d]: id is required", i))
		}
		if r.Width <= 0 || r.Height <= 0 {
			errs = append(errs, fmt.Errorf("rooms[%d]: width and height must be positive", i))
		}
		for j, o := range r.Obstacles {
			if o.Width <= 0 || o.Height <= 0 || o.X < 0 || o.Y < 0 || o.X+o.Width > r.Width || o.Y+o.Height > r.Height {
				errs = append(errs, fmt.Errorf("rooms[%d].obstacles[%d]: outside the %dx%d grid", i, j, r.Width, r.Height))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply writes the layout. Rooms are upserted; users are created.
func Apply(ctx context.Context, s store.Seeder, l *Layout) (Result, error) {
	var res Result
	for _, u := range l.Users {
		if _, err := s.CreateUser(ctx, u.Username, u.AvatarURL); err != nil {
			return res, fmt.Errorf("create user %q: %w", u.Username, err)
		}
		res.Users++
	}
	for _, r := range l.Rooms {
		room := &store.Room{
			Kind:   store.RoomKind(r.Kind),
			ID:     r.ID,
			Name:   r.Name,
			Width:  r.Width,
			Height: r.Height,
		}
		for _, o := range r.Obstacles {
			room.Obstacles = append(room.Obstacles, store.Obstacle{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height})
		}
		if err := s.UpsertRoom(ctx, room); err != nil {
			return res, fmt.Errorf("upsert room %s:%s: %w", r.Kind, r.ID, err)
		}
		res.Rooms++
	}
	return res, nil
}
