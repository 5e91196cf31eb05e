package x12

import (
	"fmt"
	"strings"
	"time"
)

// Envelope carries everything Generate needs to wrap a transaction set:
// the caller supplies the sender/receiver identifiers (from partner and
// tenant settings) and the interchange control number (allocated by the
// caller, monotonic per tenant).
type Envelope struct {
	SenderQualifier   string
	SenderID          string
	ReceiverQualifier string
	ReceiverID        string
	GSSenderID        string
	GSReceiverID      string
	ControlNumber     int
	Test              bool
	Timestamp         time.Time  // zero = now (UTC)
	Delimiters        Delimiters // zero = DefaultDelimiters
}

// Generate wraps pre-built transaction set segments in the ISA/GS/ST ...
// SE/GE/IEA envelope and joins everything with the segment terminator.
// Generation is the left inverse of Parse for any document it produces.
func Generate(env Envelope, docType string, segments []string) string {
	delims := env.Delimiters
	if delims == (Delimiters{}) {
		delims = DefaultDelimiters
	}
	ts := env.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	sep := string(delims.Element)
	term := string(delims.Segment)

	usage := "P"
	if env.Test {
		usage = "T"
	}

	isa := strings.Join([]string{
		"ISA",
		"00", strings.Repeat(" ", 10),
		"00", strings.Repeat(" ", 10),
		pad(env.SenderQualifier, 2), pad(env.SenderID, 15),
		pad(env.ReceiverQualifier, 2), pad(env.ReceiverID, 15),
		ts.Format("060102"), ts.Format("1504"),
		"U", "00401",
		fmt.Sprintf("%09d", env.ControlNumber),
		"0", usage,
		string(delims.SubElement),
	}, sep)

	gs := strings.Join([]string{
		"GS",
		FunctionalIDFor(docType),
		env.GSSenderID, env.GSReceiverID,
		ts.Format("20060102"), ts.Format("1504"),
		fmt.Sprintf("%d", env.ControlNumber),
		"X", "004010",
	}, sep)

	stControl := fmt.Sprintf("%04d", env.ControlNumber%10000)
	st := strings.Join([]string{"ST", docType, stControl}, sep)

	// SE01 counts every segment in the set, ST and SE included.
	se := strings.Join([]string{"SE", fmt.Sprintf("%d", len(segments)+2), stControl}, sep)
	ge := strings.Join([]string{"GE", "1", fmt.Sprintf("%d", env.ControlNumber)}, sep)
	iea := strings.Join([]string{"IEA", "1", fmt.Sprintf("%09d", env.ControlNumber)}, sep)

	all := make([]string, 0, len(segments)+6)
	all = append(all, isa, gs, st)
	all = append(all, segments...)
	all = append(all, se, ge, iea)

	return strings.Join(all, term) + term
}

// pad right-pads a fixed-width ISA field with spaces, truncating values
// that exceed the field width.
func pad(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
