package documents

import (
	"math"
	"strconv"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// Invoice810 builds and extracts the X12 810 Invoice.
//
// Segment grammar:
//
//	BIG  date, invoice number, , PO reference
//	IT1  line: counter, quantity, unit, unit price, VP qualifier, sku
//	TDS  total amount in cents
//	CTT  line count
type Invoice810 struct{}

func (b *Invoice810) DocumentType() models.DocumentType {
	return models.DocTypeInvoice
}

func (b *Invoice810) Build(h Header, lines []models.Row, d x12.Delimiters) []string {
	segments := []string{
		joinSegment(d, "BIG", formatDate(h.Date), h.Number, "", h.Reference),
	}

	for i, line := range lines {
		segments = append(segments, joinSegment(d, "IT1",
			strconv.Itoa(i+1),
			rowString(line, "quantity"),
			rowString(line, "unit"),
			rowString(line, "unit_price"),
			"",
			"VP",
			rowString(line, "sku"),
		))
	}

	// TDS01 is expressed in cents per the standard. Credit memos carry a
	// negative total, so rounding must be half away from zero.
	cents := int64(math.Round(h.Total * 100))
	segments = append(segments,
		joinSegment(d, "TDS", strconv.FormatInt(cents, 10)),
		joinSegment(d, "CTT", strconv.Itoa(len(lines))),
	)
	return segments
}

func (b *Invoice810) Extract(ts *x12.TransactionSet) (Header, []models.Row, error) {
	var h Header
	lines := []models.Row{}

	for _, seg := range ts.Segments {
		switch seg.ID {
		case "BIG":
			if len(seg.Elements) < 2 {
				return h, nil, edierr.Newf(edierr.KindFormat, "810 BIG has %d elements, want at least 2", len(seg.Elements))
			}
			h.Date = parseDate(seg.Element(1))
			h.Number = seg.Element(2)
			h.Reference = seg.Element(4)
		case "IT1":
			lines = append(lines, models.Row{
				"quantity":   parseAmount(seg.Element(2)),
				"unit":       seg.Element(3),
				"unit_price": parseAmount(seg.Element(4)),
				"sku":        seg.Element(7),
			})
		case "TDS":
			h.Total = parseAmount(seg.Element(1)) / 100
		}
	}

	if h.Number == "" {
		return h, nil, edierr.New(edierr.KindFormat, "810 missing BIG segment")
	}
	return h, lines, nil
}
