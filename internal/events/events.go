// Package events holds the minimal event catalog the authorization layer
// protects. Deliberately thin: create, list, delete.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"konnekt.org/internal/ids"
)

var (
	ErrNotFound     = errors.New("events: not found")
	ErrInvalidInput = errors.New("events: invalid input")
)

// Event is one concert or club night on the schedule.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Genre     string    `json:"genre,omitempty"`
	Venue     string    `json:"venue,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists events.
type Store interface {
	Create(ctx context.Context, ev Event) (Event, error)
	Find(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, limit int) ([]Event, error)
	Delete(ctx context.Context, id string) error
}

// NewEvent is the input to Service.Create.
type NewEvent struct {
	Title    string
	Genre    string
	Venue    string
	StartsAt time.Time
}

// Service validates and persists events.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	return &Service{store: store}, nil
}

func (s *Service) Create(ctx context.Context, in NewEvent) (Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Event{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() {
		return Event{}, fmt.Errorf("%w: starts_at is required", ErrInvalidInput)
	}
	return s.store.Create(ctx, Event{
		ID:       ids.New(),
		Title:    title,
		Genre:    strings.TrimSpace(in.Genre),
		Venue:    strings.TrimSpace(in.Venue),
		StartsAt: in.StartsAt.UTC(),
	})
}

func (s *Service) Find(ctx context.Context, id string) (Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Event{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.store.List(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}
