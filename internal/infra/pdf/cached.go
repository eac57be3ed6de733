package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/cache"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"
)

// CachedPrinter reuses a rendered PDF while the view it was rendered from is
// unchanged. Views are keyed by the SHA-256 of their JSON form.
type CachedPrinter struct {
	next  port.DocumentPrinter
	cache *cache.TTL[[]byte]
}

// NewCachedPrinter wraps next with c.
func NewCachedPrinter(next port.DocumentPrinter, c *cache.TTL[[]byte]) *CachedPrinter {
	return &CachedPrinter{next: next, cache: c}
}

// Print writes the cached rendering of view, rendering it first on a miss.
func (p *CachedPrinter) Print(w io.Writer, view domain.InvoiceView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("fingerprint view: %w", err)
	}
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])

	if out, ok := p.cache.Get(key); ok {
		_, err := w.Write(out)
		return err
	}

	var buf bytes.Buffer
	if err := p.next.Print(&buf, view); err != nil {
		return err
	}
	p.cache.Set(key, buf.Bytes())
	_, err = w.Write(buf.Bytes())
	return err
}
