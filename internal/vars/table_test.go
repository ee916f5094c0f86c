package vars

import (
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	in := "name,city\nAnn,Oslo\nBo,Porto\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0] != "name" {
		t.Errorf("columns: %v", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Row(1)["name"] != "Bo" || tbl.Row(1)["city"] != "Porto" {
		t.Errorf("row 1: %v", tbl.Row(1))
	}
}

func TestReadCSVShortRecordPadsEmpty(t *testing.T) {
	// A short record still yields every column so substitution never
	// hits a missing key for a declared column.
	tbl, err := ReadCSV(strings.NewReader("a,b\nonly\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := tbl.Row(0)["b"]; !ok || v != "" {
		t.Errorf("expected empty b, got %q ok=%v", v, ok)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFromWorkflowData(t *testing.T) {
	tbl := FromWorkflowData([]string{"v"}, []map[string]string{{"v": "1"}})
	if tbl.Len() != 1 || tbl.Row(0)["v"] != "1" {
		t.Errorf("unexpected table: %+v", tbl)
	}
}
