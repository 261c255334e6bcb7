// Package loader reads directory tables from their upstream sources: a
// Google Sheets CSV export, a published HTML table, a local file or an
// object-store key. Every loader returns a normalized directory.Table.
package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/garyellow/campus-assist-go/internal/directory"
	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
)

// Fetcher retrieves remote documents. *scraper.Client satisfies it.
type Fetcher interface {
	GetBytes(ctx context.Context, source, url string) ([]byte, string, error)
	GetDocument(ctx context.Context, source, url string) (*goquery.Document, error)
}

// ObjectReader downloads an object by key. *objectstore.Client satisfies it.
type ObjectReader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

var (
	_ directory.Loader = (*SheetsCSV)(nil)
	_ directory.Loader = (*HTMLTable)(nil)
	_ directory.Loader = (*File)(nil)
	_ directory.Loader = (*Object)(nil)
	_ directory.Loader = Multi(nil)
)

// Multi routes each kind to its own loader.
type Multi map[directory.Kind]directory.Loader

// Load delegates to the loader registered for kind.
func (m Multi) Load(ctx context.Context, kind directory.Kind) (*directory.Table, error) {
	l, ok := m[kind]
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: no source for table %s", domerrors.ErrNotConfigured, kind)
	}
	return l.Load(ctx, kind)
}

// Kinds returns the kinds with a configured loader, in directory.Kinds order.
func (m Multi) Kinds() []directory.Kind {
	var kinds []directory.Kind
	for _, k := range directory.Kinds {
		if m[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
