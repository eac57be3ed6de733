package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxUploadMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const maxUploadMemory = 8 << 20

// fieldUpdate is the body of every single-field PATCH.
type fieldUpdate struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type currencyRequest struct {
	Code string `json:"code"`
}

// ============================================================
// Document
// ============================================================

func getInvoiceHandler(editor *service.InvoiceEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func updateFieldHandler(editor *service.InvoiceEditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PATCH /v1/invoice/fields")
		defer span.End()

		var req fieldUpdate
		if !decodeJSON(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("invoice.field", req.Field))

		value, err := decodeFieldValue(req.Field, req.Value)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if _, err := editor.UpdateField(req.Field, value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func updateClientHandler(editor *service.InvoiceEditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field, value, ok := decodeTextUpdate(w, r, logger)
		if !ok {
			return
		}
		if _, err := editor.UpdateClientInfo(field, value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func updateProjectHandler(editor *service.InvoiceEditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field, value, ok := decodeTextUpdate(w, r, logger)
		if !ok {
			return
		}
		if _, err := editor.UpdateProjectInfo(field, value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func setCurrencyHandler(editor *service.InvoiceEditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req currencyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := editor.SetCurrency(req.Code); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func resetInvoiceHandler(editor *service.InvoiceEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor.Reset()
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func listCurrenciesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.Currencies)
	}
}

// ============================================================
// Line items
// ============================================================

func addLineItemHandler(editor *service.InvoiceEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor.AddLineItem()
		writeJSON(w, http.StatusCreated, editor.View())
	}
}

func changeLineItemHandler(editor *service.InvoiceEditor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := lineItemIndex(w, r)
		if !ok {
			return
		}

		var req fieldUpdate
		if !decodeJSON(w, r, &req) {
			return
		}
		var value any
		if len(req.Value) > 0 {
			if err := json.Unmarshal(req.Value, &value); err != nil {
				writeError(w, http.StatusBadRequest, "invalid value")
				return
			}
		}

		if _, err := editor.ChangeLineItem(index, req.Field, value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func removeLineItemHandler(editor *service.InvoiceEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := lineItemIndex(w, r)
		if !ok {
			return
		}
		editor.RemoveLineItem(index)
		writeJSON(w, http.StatusOK, editor.View())
	}
}

// ============================================================
// Uploads & printing
// ============================================================

func uploadImageHandler(editor *service.InvoiceEditor, slot service.ImageSlot, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), fmt.Sprintf("POST /v1/invoice/%s", slot))
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "expected multipart form")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing 'file' part")
			return
		}
		defer file.Close()

		if _, err := editor.Ingest(ctx, slot, header.Filename, header.Header.Get("Content-Type"), file); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("image uploaded",
			zap.String("account_id", AccountIDFromContext(ctx)),
			zap.String("slot", string(slot)),
			zap.Int64("bytes", header.Size),
		)
		writeJSON(w, http.StatusOK, editor.View())
	}
}

func printInvoiceHandler(editor *service.InvoiceEditor, printer port.DocumentPrinter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invoice/print")
		defer span.End()

		view := editor.View()
		var buf bytes.Buffer
		if err := printer.Print(&buf, view); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("invoice printed",
			zap.String("account_id", AccountIDFromContext(ctx)),
			zap.String("invoice_number", view.Document.ProjectInfo.InvoiceNumber),
			zap.Int("bytes", buf.Len()),
		)

		filename := "invoice.pdf"
		if n := view.Document.ProjectInfo.InvoiceNumber; n != "" {
			filename = fmt.Sprintf("invoice-%s.pdf", n)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// ============================================================
// Request decoding
// ============================================================

// decodeFieldValue turns a raw JSON value into the Go type the document
// expects for field.
func decodeFieldValue(field string, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var (
		dst any
		err error
	)
	switch field {
	case domain.FieldClientInfo:
		var v domain.ClientInfo
		err = json.Unmarshal(raw, &v)
		dst = v
	case domain.FieldProjectInfo:
		var v domain.ProjectInfo
		err = json.Unmarshal(raw, &v)
		dst = v
	case domain.FieldLineItems:
		var v []domain.LineItem
		err = json.Unmarshal(raw, &v)
		dst = v
	default:
		err = json.Unmarshal(raw, &dst)
	}
	if err != nil {
		return nil, &domain.ErrValidation{Field: field, Message: "malformed value"}
	}
	return dst, nil
}

func decodeTextUpdate(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (field, value string, ok bool) {
	var req fieldUpdate
	if !decodeJSON(w, r, &req) {
		return "", "", false
	}
	if err := json.Unmarshal(req.Value, &value); err != nil {
		handleServiceError(w, &domain.ErrValidation{Field: req.Field, Message: "must be text"}, logger)
		return "", "", false
	}
	return req.Field, value, true
}

func lineItemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "line item index must be an integer")
		return 0, false
	}
	return index, true
}
