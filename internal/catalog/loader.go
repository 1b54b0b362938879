package catalog

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const recordDateFormat = "02.01.2006"

// Column names in the published dataset header. Positions vary between
// catalog versions, so rows are mapped through the header.
const (
	colOID    = "OID"
	colType   = "TYPE"
	colName   = "NAME"
	colStart  = "START_DATE"
	colEnd    = "END_DATE"
	colFormat = "FORMAT"
)

// Load opens a downloaded catalog archive and parses the CSV dataset
// inside it.
func Load(path string) ([]Record, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		records, err := parseCSV(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("no csv entry in %s", path)
}

func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToUpper(name))] = i
	}
	for _, required := range []string{colOID, colType, colName, colStart} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, ok := parseRow(row, cols)
		if !ok {
			// Datasets occasionally carry trailing junk rows.
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (Record, bool) {
	oid, err := strconv.ParseInt(field(row, cols, colOID), 10, 64)
	if err != nil {
		return Record{}, false
	}
	// Record dates are calendar days in the server's zone; report
	// windows are built the same way.
	start, err := time.ParseInLocation(recordDateFormat, field(row, cols, colStart), time.Local)
	if err != nil {
		return Record{}, false
	}
	rec := Record{
		OID:       oid,
		DocType:   field(row, cols, colType),
		Name:      field(row, cols, colName),
		StartDate: start,
		Format:    field(row, cols, colFormat),
	}
	if raw := field(row, cols, colEnd); raw != "" {
		end, err := time.ParseInLocation(recordDateFormat, raw, time.Local)
		if err != nil {
			return Record{}, false
		}
		rec.EndDate = &end
	}
	return rec, true
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
