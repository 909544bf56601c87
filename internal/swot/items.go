package swot

import (
	"strings"
)

type Quadrant string

const (
	Strengths     Quadrant = "strengths"
	Weaknesses    Quadrant = "weaknesses"
	Opportunities Quadrant = "opportunities"
	Threats       Quadrant = "threats"
)

// Quadrants lists the quadrants in display order.
var Quadrants = [...]Quadrant{Strengths, Weaknesses, Opportunities, Threats}

func (q Quadrant) Valid() bool {
	switch q {
	case Strengths, Weaknesses, Opportunities, Threats:
		return true
	default:
		return false
	}
}

func ParseQuadrant(raw string) (Quadrant, error) {
	q := Quadrant(strings.ToLower(strings.TrimSpace(raw)))
	if !q.Valid() {
		return "", &ValidationError{Field: "quadrant", Value: raw, Reason: "unknown quadrant"}
	}
	return q, nil
}

// Certainty is the per-item mark that gates consolidation. Only items
// marked certain are carried into the final matrix.
type Certainty string

const (
	CertaintyUnset     Certainty = ""
	CertaintyCertain   Certainty = "certain"
	CertaintyUncertain Certainty = "uncertain"
)

func ParseCertainty(raw string) (Certainty, error) {
	switch c := Certainty(strings.ToLower(strings.TrimSpace(raw))); c {
	case CertaintyUnset, CertaintyCertain, CertaintyUncertain:
		return c, nil
	default:
		return CertaintyUnset, &ValidationError{Field: "certainty", Value: raw, Reason: "expected certain, uncertain or empty"}
	}
}

type Item struct {
	Text      string    `json:"text"`
	Certainty Certainty `json:"certainty,omitempty"`
}

// Blank items are placeholders being edited; they never reach computations or storage.
func (it Item) Blank() bool {
	return isBlank(it.Text)
}

// FinalQuadrantCap bounds each quadrant of a consolidated matrix.
const FinalQuadrantCap = 5

// ItemList is one owner's ordered statements for a single quadrant.
// Cap of zero means uncapped.
type ItemList struct {
	Quadrant Quadrant `json:"quadrant"`
	Cap      int      `json:"cap,omitempty"`
	Items    []Item   `json:"items"`
}

func NewItemList(q Quadrant, capacity int, texts ...string) *ItemList {
	list := &ItemList{Quadrant: q, Cap: capacity, Items: make([]Item, 0, len(texts))}
	for _, text := range texts {
		list.Items = append(list.Items, Item{Text: text})
	}
	return list
}

func (l *ItemList) Len() int {
	return len(l.Items)
}

func (l *ItemList) Full() bool {
	return l.Cap > 0 && len(l.Items) >= l.Cap
}

// Add appends a blank item. At cap the list is left untouched and a
// *CapacityError is returned.
func (l *ItemList) Add() error {
	return l.Append(Item{})
}

func (l *ItemList) Append(item Item) error {
	if l.Full() {
		return &CapacityError{Quadrant: l.Quadrant, Cap: l.Cap}
	}
	l.Items = append(l.Items, item)
	return nil
}

func (l *ItemList) Update(index int, text string) error {
	if index < 0 || index >= len(l.Items) {
		return indexError(string(l.Quadrant), index, len(l.Items))
	}
	l.Items[index].Text = text
	return nil
}

func (l *ItemList) SetCertainty(index int, c Certainty) error {
	if index < 0 || index >= len(l.Items) {
		return indexError(string(l.Quadrant), index, len(l.Items))
	}
	l.Items[index].Certainty = c
	return nil
}

func (l *ItemList) Remove(index int) error {
	if index < 0 || index >= len(l.Items) {
		return indexError(string(l.Quadrant), index, len(l.Items))
	}
	l.Items = append(l.Items[:index], l.Items[index+1:]...)
	return nil
}

// Texts returns every item's text by position, blanks included. Grids are
// sized from this list.
func (l *ItemList) Texts() []string {
	texts := make([]string, len(l.Items))
	for i, item := range l.Items {
		texts[i] = item.Text
	}
	return texts
}

// Effective returns the non-blank texts in order.
func (l *ItemList) Effective() []string {
	texts := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		if !item.Blank() {
			texts = append(texts, item.Text)
		}
	}
	return texts
}

// Index returns the position of the first item matching text, or -1.
func (l *ItemList) Index(text string) int {
	key := MatchKey(text)
	for i, item := range l.Items {
		if !item.Blank() && MatchKey(item.Text) == key {
			return i
		}
	}
	return -1
}

func (l *ItemList) Clone() *ItemList {
	if l == nil {
		return nil
	}
	out := &ItemList{Quadrant: l.Quadrant, Cap: l.Cap, Items: make([]Item, len(l.Items))}
	copy(out.Items, l.Items)
	return out
}

// JoinLines encodes texts in the storage format: newline-joined with blank
// entries dropped. Interior whitespace is preserved as-is.
func JoinLines(texts []string) string {
	kept := make([]string, 0, len(texts))
	for _, text := range texts {
		if !isBlank(text) {
			kept = append(kept, text)
		}
	}
	return strings.Join(kept, "\n")
}

// SplitLines is the inverse of JoinLines. All-whitespace lines are dropped.
func SplitLines(encoded string) []string {
	if encoded == "" {
		return []string{}
	}
	parts := strings.Split(encoded, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if !isBlank(part) {
			lines = append(lines, part)
		}
	}
	return lines
}
