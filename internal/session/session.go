// Package session provides server-side session storage for the portal.
//
// A session is keyed by an opaque random identifier carried in a cookie.
// The record holds the authenticated principal (empty while anonymous) and
// the one-shot flash messages queued for the next rendered page.
package session

import (
	"context"
	"errors"
	"time"

	"taxportal/api/internal/rbac"
)

var ErrNotFound = errors.New("session not found")

// Flash is a one-shot categorized message surfaced on the next page only.
type Flash struct {
	Category string `json:"category"` // success | danger | info | warning
	Message  string `json:"message"`
}

// Data is the server-side state of one session.
type Data struct {
	Principal rbac.Principal `json:"principal"`
	Flash     []Flash        `json:"flash,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (d Data) IsLoggedIn() bool {
	return !d.Principal.IsZero()
}

// Store is the storage backend for sessions. Every write refreshes the
// session's TTL.
type Store interface {
	Create(ctx context.Context, data Data) (string, error)
	Get(ctx context.Context, id string) (Data, error)
	Put(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
}

// AddFlash appends a flash message to the session, creating the session
// record if it vanished in the meantime.
func AddFlash(ctx context.Context, store Store, id, category, message string) error {
	data, err := store.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	data.Flash = append(data.Flash, Flash{Category: category, Message: message})
	return store.Put(ctx, id, data)
}

// ConsumeFlash returns the queued flash messages and clears them, so each
// message is rendered exactly once.
func ConsumeFlash(ctx context.Context, store Store, id string) ([]Flash, error) {
	data, err := store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(data.Flash) == 0 {
		return nil, nil
	}
	flash := data.Flash
	data.Flash = nil
	if err := store.Put(ctx, id, data); err != nil {
		return nil, err
	}
	return flash, nil
}
