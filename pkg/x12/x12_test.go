package x12

import (
	"strings"
	"testing"
	"time"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample850 = "ISA*00*          *00*          *ZZ*ACMEMFG        *01*004321519      *260314*0930*U*00401*000000042*0*P*>~" +
	"GS*PO*ACMEMFG*004321519*20260314*0930*42*X*004010~" +
	"ST*850*0042~" +
	"BEG*00*SA*PO-2026-001**20260314~" +
	"PO1*1*10*EA*4.25**VP*WID-100~" +
	"SE*4*0042~" +
	"GE*1*42~" +
	"IEA*1*000000042~"

func TestParse(t *testing.T) {
	t.Run("should parse envelope identifiers and delimiters", func(t *testing.T) {
		ic, err := Parse(sample850)
		require.NoError(t, err)

		assert.Equal(t, "ZZ", ic.SenderQualifier)
		assert.Equal(t, "ACMEMFG", ic.SenderID)
		assert.Equal(t, "01", ic.ReceiverQualifier)
		assert.Equal(t, "004321519", ic.ReceiverID)
		assert.Equal(t, "000000042", ic.ControlNumber)
		assert.Equal(t, "P", ic.TestIndicator)
		assert.Equal(t, Delimiters{Element: '*', SubElement: '>', Segment: '~'}, ic.Delimiters)

		require.Len(t, ic.FunctionalGroups, 1)
		group := ic.FunctionalGroups[0]
		assert.Equal(t, "PO", group.FunctionalID)
		require.Len(t, group.TransactionSets, 1)

		ts := group.TransactionSets[0]
		assert.Equal(t, "850", ts.DocumentType)
		assert.Equal(t, "0042", ts.ControlNumber)
		require.Len(t, ts.Segments, 2)
		assert.Equal(t, "BEG", ts.Segments[0].ID)
		assert.Equal(t, "PO-2026-001", ts.Segments[0].Element(3))
	})

	t.Run("should honor delimiters declared by the ISA", func(t *testing.T) {
		custom := strings.NewReplacer("*", "|", ">", "^", "~", "\n").Replace(sample850)

		ic, err := Parse(custom)
		require.NoError(t, err)
		assert.Equal(t, Delimiters{Element: '|', SubElement: '^', Segment: '\n'}, ic.Delimiters)
		assert.Equal(t, "ACMEMFG", ic.SenderID)
		assert.Equal(t, "WID-100", ic.FunctionalGroups[0].TransactionSets[0].Segments[1].Element(7))
	})

	t.Run("should tolerate line breaks between segments", func(t *testing.T) {
		padded := strings.ReplaceAll(sample850, "~", "~\r\n")

		ic, err := Parse(padded)
		require.NoError(t, err)
		assert.Len(t, ic.FunctionalGroups[0].TransactionSets[0].Segments, 2)
	})

	t.Run("should preserve unknown segments opaquely", func(t *testing.T) {
		withUnknown := strings.Replace(sample850, "SE*4*0042", "ZZZ*custom*stuff~SE*5*0042", 1)

		ic, err := Parse(withUnknown)
		require.NoError(t, err)

		segs := ic.FunctionalGroups[0].TransactionSets[0].Segments
		require.Len(t, segs, 3)
		assert.Equal(t, "ZZZ", segs[2].ID)
		assert.Equal(t, []string{"custom", "stuff"}, segs[2].Elements)
	})

	t.Run("should reject input without ISA", func(t *testing.T) {
		_, err := Parse("GS*PO*A*B~")
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindFormat))
	})

	t.Run("should reject truncated ISA", func(t *testing.T) {
		_, err := Parse("ISA*00*          *00~")
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindFormat))
	})

	t.Run("should reject missing IEA trailer", func(t *testing.T) {
		truncated := strings.Replace(sample850, "IEA*1*000000042~", "", 1)

		_, err := Parse(truncated)
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindFormat))
		assert.Contains(t, err.Error(), "IEA")
	})

	t.Run("should reject segments outside a transaction set", func(t *testing.T) {
		misplaced := strings.Replace(sample850, "ST*850*0042~", "", 1)

		_, err := Parse(misplaced)
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindFormat))
	})

	t.Run("should parse multiple transaction sets in one group", func(t *testing.T) {
		two := strings.Replace(sample850,
			"SE*4*0042~GE",
			"SE*4*0042~ST*850*0043~BEG*00*SA*PO-2026-002**20260315~SE*3*0043~GE", 1)

		ic, err := Parse(two)
		require.NoError(t, err)
		require.Len(t, ic.FunctionalGroups[0].TransactionSets, 2)
		assert.Equal(t, "0043", ic.FunctionalGroups[0].TransactionSets[1].ControlNumber)
	})
}

func TestGenerate(t *testing.T) {
	env := Envelope{
		SenderQualifier:   "ZZ",
		SenderID:          "ACMEMFG",
		ReceiverQualifier: "01",
		ReceiverID:        "004321519",
		GSSenderID:        "ACMEMFG",
		GSReceiverID:      "004321519",
		ControlNumber:     42,
		Timestamp:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	t.Run("should produce a parseable interchange", func(t *testing.T) {
		raw := Generate(env, "850", []string{
			"BEG*00*SA*PO-2026-001**20260314",
			"PO1*1*10*EA*4.25**VP*WID-100",
		})

		ic, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "ACMEMFG", ic.SenderID)
		assert.Equal(t, "000000042", ic.ControlNumber)
		assert.Equal(t, "PO", ic.FunctionalGroups[0].FunctionalID)
		assert.Equal(t, "850", ic.FunctionalGroups[0].TransactionSets[0].DocumentType)
		assert.Len(t, ic.FunctionalGroups[0].TransactionSets[0].Segments, 2)
	})

	t.Run("should pad fixed-width ISA identifier fields", func(t *testing.T) {
		raw := Generate(env, "850", []string{"BEG*00*SA*PO-1**20260314"})

		assert.Contains(t, raw, "*ACMEMFG        *")
		assert.Contains(t, raw, "*ZZ*")
	})

	t.Run("should count ST and SE in the SE01 segment count", func(t *testing.T) {
		raw := Generate(env, "850", []string{"BEG*00*SA*PO-1**20260314", "CTT*0"})

		assert.Contains(t, raw, "SE*4*")
	})

	t.Run("should mark test interchanges with T usage", func(t *testing.T) {
		testEnv := env
		testEnv.Test = true

		raw := Generate(testEnv, "850", []string{"BEG*00*SA*PO-1**20260314"})

		ic, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "T", ic.TestIndicator)
	})

	t.Run("should generate with custom delimiters", func(t *testing.T) {
		custom := env
		custom.Delimiters = Delimiters{Element: '|', SubElement: '^', Segment: '\n'}

		raw := Generate(custom, "810", []string{"BIG|20260402|INV-1||PO-1"})

		ic, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, custom.Delimiters, ic.Delimiters)
		assert.Equal(t, "IN", ic.FunctionalGroups[0].FunctionalID)
	})
}
