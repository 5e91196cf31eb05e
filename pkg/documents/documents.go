// Package documents assembles and extracts the transaction set bodies for
// the supported document types (850, 810, 856, 997). Builders emit ordered
// segment strings for the x12 generator to envelope; extractors pull the
// canonical line rows back out of a parsed transaction set so that
// extract(parse(build(h, lines))) reproduces lines.
//
// Numeric line fields are canonically float64: builders format them with
// the shortest lossless representation and extractors parse them back.
package documents

import (
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// Header is the document-level data shared by the builders: the document
// number, its date, the counterpart document reference (e.g. the PO an
// invoice bills against) and a total where the type carries one.
type Header struct {
	Number    string
	Date      time.Time
	Reference string
	Total     float64
}

// Builder builds and extracts one document type.
type Builder interface {
	DocumentType() models.DocumentType
	Build(h Header, lines []models.Row, d x12.Delimiters) []string
	Extract(ts *x12.TransactionSet) (Header, []models.Row, error)
}

// Registry maps document types to their builders. Populated by Register,
// read by the exchange service.
var Registry = map[models.DocumentType]Builder{}

func Register(b Builder) {
	Registry[b.DocumentType()] = b
}

func init() {
	Register(&PurchaseOrder850{})
	Register(&Invoice810{})
	Register(&ShipNotice856{})
}

// Get returns the builder for a document type.
func Get(docType models.DocumentType) (Builder, error) {
	b, ok := Registry[docType]
	if !ok {
		return nil, edierr.Newf(edierr.KindConfiguration, "no builder registered for document type %s", docType)
	}
	return b, nil
}

func joinSegment(d x12.Delimiters, elements ...string) string {
	// Trailing empty elements are dropped; X12 never emits them.
	last := len(elements)
	for last > 1 && elements[last-1] == "" {
		last--
	}
	return strings.Join(elements[:last], string(d.Element))
}

func rowString(row models.Row, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

const dateFormat = "20060102"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
