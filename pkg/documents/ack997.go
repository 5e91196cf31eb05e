package documents

import (
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/x12"
)

// Acknowledgment describes a 997 Functional Acknowledgment against one
// received transaction set. Building a 997 never has side effects: the
// exchange service persists and links the result separately.
type Acknowledgment struct {
	DocumentType  string // the acknowledged set's type, e.g. "850"
	ControlNumber string // the acknowledged set's ST02
	GroupControl  string // the acknowledged group's GS06
	Accepted      bool
}

// Build997 emits the segment body of a 997.
//
//	AK1  functional ID of the acknowledged group, group control
//	AK2  acknowledged set type, set control
//	AK5  A (accepted) or R (rejected)
//	AK9  group-level disposition with set counts
func Build997(ack Acknowledgment, d x12.Delimiters) []string {
	status := "A"
	accepted := "1"
	if !ack.Accepted {
		status = "R"
		accepted = "0"
	}

	return []string{
		joinSegment(d, "AK1", x12.FunctionalIDFor(ack.DocumentType), ack.GroupControl),
		joinSegment(d, "AK2", ack.DocumentType, ack.ControlNumber),
		joinSegment(d, "AK5", status),
		joinSegment(d, "AK9", status, "1", "1", accepted),
	}
}

// Extract997 reads the acknowledgment status back out of a parsed 997.
func Extract997(ts *x12.TransactionSet) (Acknowledgment, error) {
	var ack Acknowledgment
	sawAK1 := false

	for _, seg := range ts.Segments {
		switch seg.ID {
		case "AK1":
			ack.GroupControl = seg.Element(2)
			sawAK1 = true
		case "AK2":
			ack.DocumentType = seg.Element(1)
			ack.ControlNumber = seg.Element(2)
		case "AK5":
			ack.Accepted = seg.Element(1) == "A"
		}
	}

	if !sawAK1 {
		return ack, edierr.New(edierr.KindFormat, "997 missing AK1 segment")
	}
	return ack, nil
}
