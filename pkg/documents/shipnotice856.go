package documents

import (
	"strconv"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// ShipNotice856 builds and extracts the X12 856 Advance Ship Notice.
//
// Segment grammar (flattened HL hierarchy: one shipment level, one item
// level per line):
//
//	BSN  purpose, shipment number, date, time
//	HL   1, , S                 shipment level
//	REF  counterpart reference (optional)
//	HL   n, 1, I                item level per line
//	LIN  , VP, sku
//	SN1  , quantity, unit
type ShipNotice856 struct{}

func (b *ShipNotice856) DocumentType() models.DocumentType {
	return models.DocTypeShipNotice
}

func (b *ShipNotice856) Build(h Header, lines []models.Row, d x12.Delimiters) []string {
	segments := []string{
		joinSegment(d, "BSN", "00", h.Number, formatDate(h.Date), h.Date.Format("1504")),
		joinSegment(d, "HL", "1", "", "S"),
	}
	if h.Reference != "" {
		segments = append(segments, joinSegment(d, "REF", "PO", h.Reference))
	}

	for i, line := range lines {
		segments = append(segments,
			joinSegment(d, "HL", strconv.Itoa(i+2), "1", "I"),
			joinSegment(d, "LIN", "", "VP", rowString(line, "sku")),
			joinSegment(d, "SN1", "", rowString(line, "quantity"), rowString(line, "unit")),
		)
	}

	segments = append(segments, joinSegment(d, "CTT", strconv.Itoa(len(lines))))
	return segments
}

func (b *ShipNotice856) Extract(ts *x12.TransactionSet) (Header, []models.Row, error) {
	var h Header
	lines := []models.Row{}

	for _, seg := range ts.Segments {
		switch seg.ID {
		case "BSN":
			if len(seg.Elements) < 3 {
				return h, nil, edierr.Newf(edierr.KindFormat, "856 BSN has %d elements, want at least 3", len(seg.Elements))
			}
			h.Number = seg.Element(2)
			h.Date = parseDate(seg.Element(3))
		case "REF":
			if seg.Element(1) == "PO" {
				h.Reference = seg.Element(2)
			}
		case "LIN":
			lines = append(lines, models.Row{
				"sku": seg.Element(3),
			})
		case "SN1":
			if len(lines) > 0 {
				lines[len(lines)-1]["quantity"] = parseAmount(seg.Element(2))
				lines[len(lines)-1]["unit"] = seg.Element(3)
			}
		}
	}

	if h.Number == "" {
		return h, nil, edierr.New(edierr.KindFormat, "856 missing BSN segment")
	}
	return h, lines, nil
}
