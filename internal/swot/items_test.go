package swot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLinesRoundTripDropsBlankLines(t *testing.T) {
	encoded := JoinLines([]string{"A", "", "B"})
	if encoded != "A\nB" {
		t.Fatalf("JoinLines() = %q, want %q", encoded, "A\nB")
	}
	if diff := cmp.Diff([]string{"A", "B"}, SplitLines(encoded)); diff != "" {
		t.Fatalf("SplitLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitLinesKeepsInteriorWhitespace(t *testing.T) {
	got := SplitLines("  Novo  mercado \n   \n\t\nB")
	want := []string{"  Novo  mercado ", "B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SplitLines() mismatch (-want +got):\n%s", diff)
	}
	if got := SplitLines(""); len(got) != 0 {
		t.Fatalf("SplitLines(\"\") = %v, want empty", got)
	}
}

func TestFinalListAddStopsAtCap(t *testing.T) {
	list := NewItemList(Opportunities, FinalQuadrantCap)
	for i := 0; i < FinalQuadrantCap; i++ {
		if err := list.Add(); err != nil {
			t.Fatalf("Add() #%d error = %v", i+1, err)
		}
	}

	err := list.Add()
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Add() past cap error = %v, want *CapacityError", err)
	}
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected errors.Is(err, ErrCapacity)")
	}
	if list.Len() != FinalQuadrantCap {
		t.Fatalf("Len() = %d, want %d", list.Len(), FinalQuadrantCap)
	}
}

func TestGroupListIsUncapped(t *testing.T) {
	list := NewItemList(Threats, 0)
	for i := 0; i < 20; i++ {
		if err := list.Add(); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if list.Len() != 20 {
		t.Fatalf("Len() = %d, want 20", list.Len())
	}
}

func TestItemListIndexValidation(t *testing.T) {
	list := NewItemList(Strengths, 0, "A")
	cases := []struct {
		name string
		run  func() error
	}{
		{name: "update negative", run: func() error { return list.Update(-1, "x") }},
		{name: "update past end", run: func() error { return list.Update(1, "x") }},
		{name: "remove past end", run: func() error { return list.Remove(3) }},
		{name: "certainty past end", run: func() error { return list.SetCertainty(1, CertaintyCertain) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestEffectiveSkipsBlankItems(t *testing.T) {
	list := NewItemList(Weaknesses, 0, "A", "   ", "B")
	if diff := cmp.Diff([]string{"A", "B"}, list.Effective()); diff != "" {
		t.Fatalf("Effective() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "   ", "B"}, list.Texts()); diff != "" {
		t.Fatalf("Texts() mismatch (-want +got):\n%s", diff)
	}
	if idx := list.Index(" b "); idx != 2 {
		t.Fatalf("Index(\" b \") = %d, want 2", idx)
	}
}

func TestParseQuadrantAndCertainty(t *testing.T) {
	if q, err := ParseQuadrant(" Threats "); err != nil || q != Threats {
		t.Fatalf("ParseQuadrant() = %q, %v", q, err)
	}
	if _, err := ParseQuadrant("risks"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseQuadrant(risks) error = %v", err)
	}
	if c, err := ParseCertainty("CERTAIN"); err != nil || c != CertaintyCertain {
		t.Fatalf("ParseCertainty() = %q, %v", c, err)
	}
	if c, err := ParseCertainty(""); err != nil || c != CertaintyUnset {
		t.Fatalf("ParseCertainty(\"\") = %q, %v", c, err)
	}
	if _, err := ParseCertainty("maybe"); err == nil {
		t.Fatal("expected error for unknown certainty")
	}
}

func TestMatchKeyFoldsCaseAndTrims(t *testing.T) {
	if !SameItem("Novo Mercado ", "novo mercado") {
		t.Fatal("expected trimmed case-insensitive match")
	}
	if !SameItem("AÇÃO", "ação") {
		t.Fatal("expected unicode case folding")
	}
	if SameItem("novo  mercado", "novo mercado") {
		t.Fatal("interior whitespace must stay significant")
	}
}
