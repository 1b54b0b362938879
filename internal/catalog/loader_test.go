package catalog

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeArchive(t *testing.T, path, entryName, csv string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(entryName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(csv)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

const sampleCSV = "OID;TYPE;NAME;START_DATE;END_DATE;FORMAT\n" +
	"101;Protocol;Consultation protocol;03.03.2025;;CDA\n" +
	"102;Referral;Lab referral;15.03.2025;20.06.2025;CDA\n" +
	"junk row\n" +
	"103;Protocol;Discharge summary;01.04.2025;;PDF\n"

func TestLoadParsesArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.2.3_4.0_csv.zip")
	writeArchive(t, path, "data.csv", sampleCSV)

	records, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.OID != 101 || first.DocType != "Protocol" || first.Format != "CDA" {
		t.Errorf("first record = %+v", first)
	}
	want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.Local)
	if !first.StartDate.Equal(want) {
		t.Errorf("start date = %v, want %v", first.StartDate, want)
	}
	if first.EndDate != nil {
		t.Error("open-ended record should have nil EndDate")
	}

	second := records[1]
	if second.EndDate == nil || !second.EndDate.Equal(time.Date(2025, time.June, 20, 0, 0, 0, 0, time.Local)) {
		t.Errorf("end date = %v", second.EndDate)
	}
}

func TestLoadMonthStartDateInWesternZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	orig := time.Local
	time.Local = loc
	defer func() { time.Local = orig }()

	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, "data.csv", sampleCSV)
	records, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// A record starting on the 1st must land inside that month's
	// report window even west of UTC.
	snap := NewSnapshot("4.0", records)
	report := MonthlyReport(snap, time.Date(2025, time.April, 15, 12, 0, 0, 0, loc))
	if !strings.Contains(report, "Discharge summary") {
		t.Errorf("record starting on the 1st missing from the monthly report:\n%s", report)
	}
}

func TestLoadShuffledColumns(t *testing.T) {
	csv := "NAME;OID;START_DATE;TYPE\n" +
		"Reordered;7;01.01.2025;Protocol\n"
	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, "data.csv", csv)

	records, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].OID != 7 || records[0].Name != "Reordered" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestLoadMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, "data.csv", "OID;NAME\n1;x\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for dataset without required columns")
	}
}

func TestLoadNoCSVEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, "readme.txt", "nothing here")

	if _, err := Load(path); err == nil {
		t.Error("expected error for archive without a csv entry")
	}
}

func TestSnapshotByType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.zip")
	writeArchive(t, path, "data.csv", sampleCSV)
	records, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	snap := NewSnapshot("4.0", records)
	protocols := snap.ByType("Protocol")
	if len(protocols) != 2 {
		t.Fatalf("expected 2 protocols, got %d", len(protocols))
	}
	if protocols[0].OID != 101 || protocols[1].OID != 103 {
		t.Errorf("protocol order = %d, %d", protocols[0].OID, protocols[1].OID)
	}
	if snap.ByType("Unknown") != nil {
		t.Error("unknown type should return nil")
	}
}
