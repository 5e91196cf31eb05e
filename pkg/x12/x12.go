// Package x12 implements parsing and generation of X12 interchanges.
//
// An interchange nests three envelope levels:
//
//	ISA ... IEA   interchange
//	GS  ... GE    functional group
//	ST  ... SE    transaction set
//
// The three delimiter characters (element, sub-element, segment) are not
// fixed: they are declared by the ISA segment itself, so the parser reads
// the ISA first to learn them before tokenizing the rest. Segments the
// codec does not specifically model are preserved opaquely so that new
// partner documents never get rejected or silently dropped.
package x12

// Delimiters are the three separator characters of an interchange.
type Delimiters struct {
	Element    byte
	SubElement byte
	Segment    byte
}

// DefaultDelimiters is the conventional set used for generation.
var DefaultDelimiters = Delimiters{Element: '*', SubElement: '>', Segment: '~'}

// Segment is one line of an X12 document: an ID and its delimited elements.
// Elements[0] is the first element after the segment ID.
type Segment struct {
	ID       string   `json:"id"`
	Elements []string `json:"elements"`
}

// Element returns the 1-based element n, or "" when absent. X12 reference
// material numbers elements from 1 (e.g. BEG03), so the accessor does too.
func (s Segment) Element(n int) string {
	if n < 1 || n > len(s.Elements) {
		return ""
	}
	return s.Elements[n-1]
}

// TransactionSet is one ST..SE envelope. Segments holds everything between
// ST and SE, exclusive.
type TransactionSet struct {
	DocumentType  string    `json:"document_type"`  // ST01
	ControlNumber string    `json:"control_number"` // ST02
	Segments      []Segment `json:"segments"`
}

// FunctionalGroup is one GS..GE envelope.
type FunctionalGroup struct {
	FunctionalID    string           `json:"functional_id"` // GS01
	SenderID        string           `json:"sender_id"`     // GS02
	ReceiverID      string           `json:"receiver_id"`   // GS03
	Date            string           `json:"date"`          // GS04
	Time            string           `json:"time"`          // GS05
	ControlNumber   string           `json:"control_number"`
	Version         string           `json:"version"` // GS08
	TransactionSets []TransactionSet `json:"transaction_sets"`
}

// Interchange is one ISA..IEA envelope.
type Interchange struct {
	SenderQualifier   string            `json:"sender_qualifier"`   // ISA05
	SenderID          string            `json:"sender_id"`          // ISA06, trailing pad stripped
	ReceiverQualifier string            `json:"receiver_qualifier"` // ISA07
	ReceiverID        string            `json:"receiver_id"`        // ISA08
	Date              string            `json:"date"`               // ISA09
	Time              string            `json:"time"`               // ISA10
	Version           string            `json:"version"`            // ISA12
	ControlNumber     string            `json:"control_number"`     // ISA13
	TestIndicator     string            `json:"test_indicator"`     // ISA15
	Delimiters        Delimiters        `json:"-"`
	FunctionalGroups  []FunctionalGroup `json:"functional_groups"`
}

// FunctionalIDFor maps a transaction set document type to its GS01
// functional identifier code.
func FunctionalIDFor(docType string) string {
	switch docType {
	case "850":
		return "PO"
	case "810":
		return "IN"
	case "856":
		return "SH"
	case "997":
		return "FA"
	default:
		return "ZZ"
	}
}
