package documents

import (
	"strconv"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// PurchaseOrder850 builds and extracts the X12 850 Purchase Order.
//
// Segment grammar:
//
//	BEG  purpose, type, PO number, date
//	REF  counterpart reference (optional)
//	PO1  line: counter, quantity, unit, unit price, VP qualifier, sku
//	PID  line description (optional, follows its PO1)
//	CTT  line count
type PurchaseOrder850 struct{}

func (b *PurchaseOrder850) DocumentType() models.DocumentType {
	return models.DocTypePurchaseOrder
}

func (b *PurchaseOrder850) Build(h Header, lines []models.Row, d x12.Delimiters) []string {
	segments := []string{
		joinSegment(d, "BEG", "00", "SA", h.Number, "", formatDate(h.Date)),
	}
	if h.Reference != "" {
		segments = append(segments, joinSegment(d, "REF", "VR", h.Reference))
	}

	for i, line := range lines {
		segments = append(segments, joinSegment(d, "PO1",
			strconv.Itoa(i+1),
			rowString(line, "quantity"),
			rowString(line, "unit"),
			rowString(line, "unit_price"),
			"",
			"VP",
			rowString(line, "sku"),
		))
		if desc := rowString(line, "description"); desc != "" {
			segments = append(segments, joinSegment(d, "PID", "F", "", "", "", desc))
		}
	}

	segments = append(segments, joinSegment(d, "CTT", strconv.Itoa(len(lines))))
	return segments
}

func (b *PurchaseOrder850) Extract(ts *x12.TransactionSet) (Header, []models.Row, error) {
	var h Header
	lines := []models.Row{}

	for _, seg := range ts.Segments {
		switch seg.ID {
		case "BEG":
			if len(seg.Elements) < 3 {
				return h, nil, edierr.Newf(edierr.KindFormat, "850 BEG has %d elements, want at least 3", len(seg.Elements))
			}
			h.Number = seg.Element(3)
			h.Date = parseDate(seg.Element(5))
		case "REF":
			if seg.Element(1) == "VR" {
				h.Reference = seg.Element(2)
			}
		case "PO1":
			lines = append(lines, models.Row{
				"quantity":   parseAmount(seg.Element(2)),
				"unit":       seg.Element(3),
				"unit_price": parseAmount(seg.Element(4)),
				"sku":        seg.Element(7),
			})
		case "PID":
			if len(lines) > 0 {
				lines[len(lines)-1]["description"] = seg.Element(5)
			}
		}
	}

	if h.Number == "" {
		return h, nil, edierr.New(edierr.KindFormat, "850 missing BEG segment")
	}
	return h, lines, nil
}
