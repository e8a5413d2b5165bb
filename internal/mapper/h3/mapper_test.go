package h3mapper

import (
	"reflect"
	"sort"
	"testing"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
)

func hasDups(cells model.Cells) bool {
	seen := map[string]struct{}{}
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			return true
		}
		seen[c] = struct{}{}
	}
	return false
}

func TestBBox_HappyPath_SortedUnique(t *testing.T) {
	m := New(0)
	bb := model.Area{Lat: 51.52, Lng: -0.12, Width: 0.04, Height: 0.03}.BBox()

	cov, err := m.CellsForBBox(bb, 8)
	if err != nil {
		t.Fatalf("CellsForBBox err: %v", err)
	}
	if cov.Res != 8 || len(cov.Cells) == 0 || cov.Truncated {
		t.Fatalf("unexpected coverage: res=%d n=%d truncated=%v", cov.Res, len(cov.Cells), cov.Truncated)
	}
	if !sort.StringsAreSorted([]string(cov.Cells)) {
		t.Fatalf("cells must be sorted")
	}
	if hasDups(cov.Cells) {
		t.Fatalf("cells must be de-duplicated")
	}

	again, err := m.CellsForBBox(bb, 8)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !reflect.DeepEqual(cov, again) {
		t.Fatal("expected identical output for identical input")
	}
}

func TestBBox_ZeroSizeGivesAnchorCell(t *testing.T) {
	m := New(0)
	bb := model.Area{Lat: 51.51, Lng: -0.1}.BBox()

	cov, err := m.CellsForBBox(bb, 8)
	if err != nil {
		t.Fatalf("CellsForBBox err: %v", err)
	}
	want, err := m.CellForPoint(51.51, -0.1, 8)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	if len(cov.Cells) != 1 || cov.Cells[0] != want {
		t.Fatalf("cells=%v want [%s]", cov.Cells, want)
	}
}

func TestBBox_LargeAreaCoarsensResolution(t *testing.T) {
	m := New(500)
	bb := model.BBox{X1: -5, Y1: 50, X2: 2, Y2: 55, SRID: "EPSG:4326"}

	cov, err := m.CellsForBBox(bb, 9)
	if err != nil {
		t.Fatalf("CellsForBBox err: %v", err)
	}
	if cov.Res >= 9 {
		t.Fatalf("res=%d, expected coarser than 9", cov.Res)
	}
	if len(cov.Cells) > 500 {
		t.Fatalf("cap exceeded: %d", len(cov.Cells))
	}
}

func TestInvalidResolution(t *testing.T) {
	m := New(0)
	if _, err := m.CellsForBBox(model.BBox{}, 16); err == nil {
		t.Fatal("expected error for res 16")
	}
	if _, err := m.CellForPoint(0, 0, -1); err == nil {
		t.Fatal("expected error for res -1")
	}
}
