// Package formats converts non-X12 wire payloads to and from canonical
// rows. CSV uses the header row as field names; JSON is an array of flat
// objects; XML is a <rows> document of <row> elements whose children are
// the fields. Values always decode as strings since these formats carry
// no reliable type information; mapping transforms retype them.
package formats

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// InferFormat guesses the wire format from a polled file's extension.
// The second return reports whether the extension was recognized; callers
// can fall back to a partner default when it was not. Unrecognized
// extensions still map to X12, the dominant wire format.
func InferFormat(filename string) (models.WireFormat, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return models.FormatCSV, true
	case ".xml":
		return models.FormatXML, true
	case ".json":
		return models.FormatJSON, true
	case ".edi", ".x12", ".txt":
		return models.FormatX12, true
	default:
		return models.FormatX12, false
	}
}

// ParseRows decodes a payload in the given format into canonical rows.
// X12 payloads are not handled here; the exchange service routes those
// through the x12 package.
func ParseRows(format models.WireFormat, payload []byte) ([]models.Row, error) {
	switch format {
	case models.FormatCSV:
		return parseCSV(payload)
	case models.FormatXML:
		return parseXML(payload)
	case models.FormatJSON:
		return parseJSON(payload)
	default:
		return nil, edierr.Newf(edierr.KindConfiguration, "no row codec for format %s", format)
	}
}

// SerializeRows encodes canonical rows in the given format.
func SerializeRows(format models.WireFormat, rows []models.Row) ([]byte, error) {
	switch format {
	case models.FormatCSV:
		return serializeCSV(rows)
	case models.FormatXML:
		return serializeXML(rows)
	case models.FormatJSON:
		return json.MarshalIndent(rows, "", "  ")
	default:
		return nil, edierr.Newf(edierr.KindConfiguration, "no row codec for format %s", format)
	}
}

func parseCSV(payload []byte) ([]models.Row, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, edierr.Newf(edierr.KindFormat, "invalid CSV payload: %w", err)
	}
	if len(records) == 0 {
		return []models.Row{}, nil
	}

	header := records[0]
	rows := make([]models.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(models.Row, len(header))
		for i, field := range header {
			if i < len(record) {
				row[field] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func serializeCSV(rows []models.Row) ([]byte, error) {
	header := fieldNames(rows)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, edierr.Newf(edierr.KindFormat, "writing CSV header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, field := range header {
			record[i] = stringValue(row[field])
		}
		if err := writer.Write(record); err != nil {
			return nil, edierr.Newf(edierr.KindFormat, "writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func parseJSON(payload []byte) ([]models.Row, error) {
	var rows []models.Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, edierr.Newf(edierr.KindFormat, "invalid JSON payload: expected an array of objects: %w", err)
	}
	return rows, nil
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlRow struct {
	XMLName xml.Name   `xml:"row"`
	Fields  []xmlField `xml:",any"`
}

type xmlRows struct {
	XMLName xml.Name `xml:"rows"`
	Rows    []xmlRow `xml:"row"`
}

func parseXML(payload []byte) ([]models.Row, error) {
	var doc xmlRows
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, edierr.Newf(edierr.KindFormat, "invalid XML payload: expected a <rows> document: %w", err)
	}

	rows := make([]models.Row, 0, len(doc.Rows))
	for _, xr := range doc.Rows {
		row := make(models.Row, len(xr.Fields))
		for _, f := range xr.Fields {
			row[f.XMLName.Local] = f.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func serializeXML(rows []models.Row) ([]byte, error) {
	doc := xmlRows{}
	for _, row := range rows {
		xr := xmlRow{}
		for _, field := range fieldNames([]models.Row{row}) {
			xr.Fields = append(xr.Fields, xmlField{
				XMLName: xml.Name{Local: field},
				Value:   stringValue(row[field]),
			})
		}
		doc.Rows = append(doc.Rows, xr)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, edierr.Newf(edierr.KindFormat, "writing XML rows: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// fieldNames collects the union of field names across rows, sorted for
// deterministic output.
func fieldNames(rows []models.Row) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}
