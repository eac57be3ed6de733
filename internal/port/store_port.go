// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"io"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
)

// KVStore is the persisted string key space (accounts collection, current
// session). Values are whole JSON documents; writers always replace a value
// completely.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ImageIngester turns an uploaded file into a self-contained embeddable
// representation (a data URL). contentType is the media type the client
// declared for the file and may be empty.
type ImageIngester interface {
	Ingest(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// DocumentPrinter renders the current document into a printable form.
type DocumentPrinter interface {
	Print(w io.Writer, view domain.InvoiceView) error
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
