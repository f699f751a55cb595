// Package store contains the registry of known catalogs.
package store

import (
	"context"
	"errors"

	"github.com/Semior001/opdsnet/app/catalog"
)

// ErrNotFound is an error that is returned when the requested entity is not found.
var ErrNotFound = errors.New("not found")

//go:generate moq -out mock_store.go . Interface

// Interface defines methods for store
type Interface interface {
	Put(ctx context.Context, l catalog.Link) error
	Get(ctx context.Context, siteName string) (catalog.Link, error)
	List(ctx context.Context) ([]catalog.Link, error)
	Delete(ctx context.Context, siteName string) error
}
