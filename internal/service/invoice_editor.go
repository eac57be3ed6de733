package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var invoiceTracer = otel.Tracer("service/invoice")

// ImageSlot names the upload slot an ingested image lands in.
type ImageSlot string

const (
	SlotLogo      ImageSlot = "logo"
	SlotWatermark ImageSlot = "watermark"
)

func (s ImageSlot) field() (string, error) {
	switch s {
	case SlotLogo:
		return domain.FieldLogo, nil
	case SlotWatermark:
		return domain.FieldWatermarkImage, nil
	}
	return "", &domain.ErrValidation{Field: "slot", Message: fmt.Sprintf("unknown upload slot %q", s)}
}

// ChangeListener receives every new snapshot with its totals. Listeners run
// while the editor is locked and must not call back into it.
type ChangeListener func(doc domain.Document, totals domain.Totals)

// InvoiceEditor holds the session's invoice. Each operation reads the latest
// snapshot, produces a new one, recomputes totals and notifies listeners, all
// in one critical section, so concurrent edits are totally ordered.
type InvoiceEditor struct {
	ingester port.ImageIngester
	opts     domain.DocumentOptions
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	doc       domain.Document
	totals    domain.Totals
	listeners []ChangeListener
}

// NewInvoiceEditor creates an editor holding a default document built from opts.
func NewInvoiceEditor(ingester port.ImageIngester, opts domain.DocumentOptions, metrics *observability.Metrics, logger *zap.Logger) *InvoiceEditor {
	if opts.NewID == nil {
		opts.NewID = domain.NewLineItemID
	}
	e := &InvoiceEditor{
		ingester: ingester,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
	e.doc = domain.NewDocument(opts)
	e.totals = domain.ComputeTotals(e.doc)
	return e
}

// OnChange registers a listener for new snapshots.
func (e *InvoiceEditor) OnChange(l ChangeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Snapshot returns a copy of the current document.
func (e *InvoiceEditor) Snapshot() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Totals returns the totals of the current document.
func (e *InvoiceEditor) Totals() domain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals
}

// View returns the current document and totals as one consistent read.
func (e *InvoiceEditor) View() domain.InvoiceView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.NewInvoiceView(e.doc.Clone(), e.totals)
}

// ============================================================
// Document fields
// ============================================================

// UpdateField replaces one top-level field.
func (e *InvoiceEditor) UpdateField(field string, value any) (domain.Document, error) {
	return e.apply(field, func(d domain.Document) (domain.Document, error) {
		return d.WithField(field, value)
	})
}

// UpdateClientInfo replaces one client info field.
func (e *InvoiceEditor) UpdateClientInfo(field, value string) (domain.Document, error) {
	return e.apply(domain.FieldClientInfo, func(d domain.Document) (domain.Document, error) {
		return d.WithClientInfo(field, value)
	})
}

// UpdateProjectInfo replaces one project info field.
func (e *InvoiceEditor) UpdateProjectInfo(field, value string) (domain.Document, error) {
	return e.apply(domain.FieldProjectInfo, func(d domain.Document) (domain.Document, error) {
		return d.WithProjectInfo(field, value)
	})
}

// SetCurrency selects a currency from the table, updating code and symbol in
// the same snapshot.
func (e *InvoiceEditor) SetCurrency(code string) (domain.Document, error) {
	return e.apply(domain.FieldCurrency, func(d domain.Document) (domain.Document, error) {
		return d.WithCurrency(code)
	})
}

// ============================================================
// Line items
// ============================================================

// ChangeLineItem edits the item at index; see domain.Document.WithLineItemChange.
func (e *InvoiceEditor) ChangeLineItem(index int, field string, value any) (domain.Document, error) {
	return e.apply(domain.FieldLineItems, func(d domain.Document) (domain.Document, error) {
		return d.WithLineItemChange(index, field, value)
	})
}

// AddLineItem appends an empty item with a fresh id.
func (e *InvoiceEditor) AddLineItem() domain.Document {
	doc, _ := e.apply(domain.FieldLineItems, func(d domain.Document) (domain.Document, error) {
		return d.WithLineItemAdded(e.opts.NewID()), nil
	})
	return doc
}

// RemoveLineItem deletes the item at index; out-of-range indexes change nothing.
func (e *InvoiceEditor) RemoveLineItem(index int) domain.Document {
	doc, _ := e.apply(domain.FieldLineItems, func(d domain.Document) (domain.Document, error) {
		return d.WithLineItemRemoved(index), nil
	})
	return doc
}

// ============================================================
// Images
// ============================================================

// Ingest reads an uploaded file into a data URL and stores it in slot. When
// ctx has ended by the time the read completes the result is discarded and
// the document is left as is.
func (e *InvoiceEditor) Ingest(ctx context.Context, slot ImageSlot, name, contentType string, r io.Reader) (domain.Document, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceEditor.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("upload.slot", string(slot)))

	field, err := slot.field()
	if err != nil {
		return domain.Document{}, err
	}

	dataURL, err := e.ingester.Ingest(ctx, name, contentType, r)
	if err != nil {
		return domain.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		e.logger.Debug("ingest: caller gone, discarding result", zap.String("slot", string(slot)))
		return domain.Document{}, err
	}

	return e.UpdateField(field, dataURL)
}

// Reset replaces the document with a fresh default one.
func (e *InvoiceEditor) Reset() domain.Document {
	doc, _ := e.apply("reset", func(domain.Document) (domain.Document, error) {
		opts := e.opts
		opts.Now = time.Now()
		return domain.NewDocument(opts), nil
	})
	return doc
}

// apply runs one update against the latest snapshot.
func (e *InvoiceEditor) apply(field string, update func(domain.Document) (domain.Document, error)) (domain.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := update(e.doc)
	if err != nil {
		e.logger.Debug("invoice: update rejected", zap.String("field", field), zap.Error(err))
		return e.doc.Clone(), err
	}

	e.doc = next
	e.totals = domain.ComputeTotals(next)
	e.metrics.IncrDocumentUpdate(field)

	for _, l := range e.listeners {
		l(next.Clone(), e.totals)
	}
	return next.Clone(), nil
}
