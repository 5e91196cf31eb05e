package x12

import (
	"strings"

	"github.com/Ramsey-B/sedge/pkg/edierr"
)

// isaElementCount is the fixed element count of an ISA segment (ISA01..ISA16).
const isaElementCount = 16

// Parse tokenizes a raw interchange using the delimiters declared in its
// own ISA segment and returns the nested envelope structure. Structural
// violations return a format error carrying the offending segment index
// and byte offset so the caller can mark the owning transaction failed.
func Parse(raw string) (*Interchange, error) {
	raw = strings.TrimLeft(raw, " \t\r\n")
	if len(raw) < 4 || !strings.HasPrefix(raw, "ISA") {
		return nil, edierr.New(edierr.KindFormat, "malformed interchange: missing ISA segment at offset 0")
	}

	delims, err := readDelimiters(raw)
	if err != nil {
		return nil, err
	}

	segments, err := tokenize(raw, delims)
	if err != nil {
		return nil, err
	}

	return assemble(segments, delims)
}

// readDelimiters learns the three separators from the ISA segment. The
// element separator is the byte immediately after "ISA"; the sub-element
// separator is ISA16, which sits right before the segment terminator.
func readDelimiters(raw string) (Delimiters, error) {
	element := raw[3]

	// Walk to the separator in front of ISA16: the 16th occurrence of the
	// element separator after the segment ID.
	count := 0
	pos := -1
	for i := 3; i < len(raw); i++ {
		if raw[i] == element {
			count++
			if count == isaElementCount {
				pos = i
				break
			}
		}
	}
	if pos < 0 || pos+2 >= len(raw) {
		return Delimiters{}, edierr.Newf(edierr.KindFormat, "malformed interchange: truncated ISA segment (found %d of %d element separators)", count, isaElementCount)
	}

	return Delimiters{
		Element:    element,
		SubElement: raw[pos+1],
		Segment:    raw[pos+2],
	}, nil
}

// tokenize splits the interchange into segments, splitting each segment
// into its elements. Line breaks around segment terminators are tolerated.
func tokenize(raw string, delims Delimiters) ([]Segment, error) {
	parts := strings.Split(raw, string(delims.Segment))

	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		part = strings.Trim(part, " \t\r\n")
		if part == "" {
			continue
		}

		elems := strings.Split(part, string(delims.Element))
		if elems[0] == "" {
			return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: empty segment ID").AddSegmentIndex(i)
		}

		segments = append(segments, Segment{
			ID:       elems[0],
			Elements: elems[1:],
		})
	}

	if len(segments) == 0 {
		return nil, edierr.New(edierr.KindFormat, "malformed interchange: no segments")
	}
	return segments, nil
}

// assemble walks the flat segment list and rebuilds the envelope tree.
// Unknown segment IDs inside ST..SE are preserved opaquely.
func assemble(segments []Segment, delims Delimiters) (*Interchange, error) {
	if segments[0].ID != "ISA" {
		return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: expected ISA, got %s", segments[0].ID).AddSegmentIndex(0)
	}
	isa := segments[0]
	if len(isa.Elements) < isaElementCount {
		return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: ISA has %d elements, want %d", len(isa.Elements), isaElementCount).AddSegmentIndex(0)
	}

	ic := &Interchange{
		SenderQualifier:   strings.TrimSpace(isa.Element(5)),
		SenderID:          strings.TrimSpace(isa.Element(6)),
		ReceiverQualifier: strings.TrimSpace(isa.Element(7)),
		ReceiverID:        strings.TrimSpace(isa.Element(8)),
		Date:              isa.Element(9),
		Time:              isa.Element(10),
		Version:           isa.Element(12),
		ControlNumber:     isa.Element(13),
		TestIndicator:     isa.Element(15),
		Delimiters:        delims,
	}

	var (
		group *FunctionalGroup
		txn   *TransactionSet
	)

	sawIEA := false
	for i := 1; i < len(segments); i++ {
		seg := segments[i]

		switch seg.ID {
		case "GS":
			if txn != nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: GS inside open transaction set").AddSegmentIndex(i)
			}
			if len(seg.Elements) < 8 {
				return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: GS has %d elements, want 8", len(seg.Elements)).AddSegmentIndex(i)
			}
			ic.FunctionalGroups = append(ic.FunctionalGroups, FunctionalGroup{
				FunctionalID:  seg.Element(1),
				SenderID:      seg.Element(2),
				ReceiverID:    seg.Element(3),
				Date:          seg.Element(4),
				Time:          seg.Element(5),
				ControlNumber: seg.Element(6),
				Version:       seg.Element(8),
			})
			group = &ic.FunctionalGroups[len(ic.FunctionalGroups)-1]

		case "GE":
			if group == nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: GE without open group").AddSegmentIndex(i)
			}
			if txn != nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: GE inside open transaction set").AddSegmentIndex(i)
			}
			group = nil

		case "ST":
			if group == nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: ST outside functional group").AddSegmentIndex(i)
			}
			if len(seg.Elements) < 2 {
				return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: ST has %d elements, want 2", len(seg.Elements)).AddSegmentIndex(i)
			}
			group.TransactionSets = append(group.TransactionSets, TransactionSet{
				DocumentType:  seg.Element(1),
				ControlNumber: seg.Element(2),
			})
			txn = &group.TransactionSets[len(group.TransactionSets)-1]

		case "SE":
			if txn == nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: SE without open transaction set").AddSegmentIndex(i)
			}
			txn = nil

		case "IEA":
			if group != nil || txn != nil {
				return nil, edierr.New(edierr.KindFormat, "malformed interchange: IEA with open envelope").AddSegmentIndex(i)
			}
			sawIEA = true

		default:
			// Anything else belongs to the open transaction set, opaquely.
			if txn == nil {
				return nil, edierr.Newf(edierr.KindFormat, "malformed interchange: segment %s outside transaction set", seg.ID).AddSegmentIndex(i)
			}
			txn.Segments = append(txn.Segments, seg)
		}
	}

	if !sawIEA {
		return nil, edierr.New(edierr.KindFormat, "malformed interchange: missing IEA trailer")
	}

	return ic, nil
}
