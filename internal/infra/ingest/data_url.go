// Package ingest turns uploaded image files into embeddable data URLs.
package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ingest")

// DataURLIngester reads a whole file and encodes it as
// data:<media type>;base64,<payload>. Size and type are not validated.
type DataURLIngester struct {
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDataURLIngester creates an ingester allowing maxConcurrent reads at once.
func NewDataURLIngester(maxConcurrent int, metrics *observability.Metrics, logger *zap.Logger) *DataURLIngester {
	return &DataURLIngester{
		bulkhead: resilience.NewBulkhead(maxConcurrent),
		metrics:  metrics,
		logger:   logger,
	}
}

// Ingest reads r to the end and returns its data URL. Read errors and empty
// files fail with *domain.ErrUnreadableFile. The media type is chosen by
// mediaTypeOf.
func (i *DataURLIngester) Ingest(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ctx, span := tracer.Start(ctx, "DataURLIngester.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", name))

	if err := i.bulkhead.Acquire(ctx); err != nil {
		return "", err
	}
	defer i.bulkhead.Release()

	start := time.Now()
	data, err := io.ReadAll(r)
	if err == nil && len(data) == 0 {
		err = errors.New("empty file")
	}
	if err != nil {
		i.metrics.IncrIngestFailure()
		i.logger.Warn("ingest: unreadable file", zap.String("name", name), zap.Error(err))
		return "", &domain.ErrUnreadableFile{Name: name, Err: err}
	}

	mediaType := mediaTypeOf(name, contentType, data)

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	fmt.Fprintf(&b, "data:%s;base64,", mediaType)
	b.WriteString(base64.StdEncoding.EncodeToString(data))

	i.metrics.AddIngestedBytes(len(data))
	i.metrics.RecordDuration("ingest", time.Since(start))
	i.logger.Debug("ingest: file encoded",
		zap.String("name", name),
		zap.String("mime", mediaType),
		zap.Int("bytes", len(data)),
	)

	return b.String(), nil
}

// mediaTypeOf picks the data URL media type. A declared type wins unless it is
// empty or application/octet-stream; then the content is sniffed, and a
// non-image sniff result gives way to an image type implied by the file
// extension (SVG, AVIF and HEIC sniff as text or octet-stream).
func mediaTypeOf(name, declared string, data []byte) string {
	if declared = bareType(declared); declared != "" && declared != "application/octet-stream" {
		return declared
	}

	sniffed := bareType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := bareType(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); strings.HasPrefix(byExt, "image/") {
		return byExt
	}
	return sniffed
}

// bareType strips parameters such as charset and lowercases the type.
func bareType(v string) string {
	if v == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(v)
	if err != nil {
		if idx := strings.IndexByte(v, ';'); idx >= 0 {
			v = v[:idx]
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
	return t
}
