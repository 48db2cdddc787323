package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths, line heights and page presets.
// All layout geometry is expressed in millimeters.

// Unit represents the original unit of a length value as written in a descriptor.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 25.4 / 72
	MmToPt = 72 / 25.4
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Pt is shorthand for a length in points.
func Pt(v float64) Length { return Length{Value: v, Unit: UnitPT} }

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimeters. Unit-less values are taken as millimeters.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT converts the length to points.
func (l Length) ToPT() float64 { return l.ToMM() * MmToPt }

// ParseRawLengthStr parses a length string such as "50pt" or "1.5cm" preserving its unit.
// The second return value reports whether the numeric part was valid.
func ParseRawLengthStr(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec is either a factor of the font size ("1.2x") or an absolute length ("12pt").
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight parses "1.2x", "1.2" or an absolute length.
func ParseLineHeight(value string) (LineHeightSpec, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 {
			return LineHeightSpec{}, false
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, true
	}
	l, ok := ParseRawLengthStr(v)
	if !ok || l.Value <= 0 {
		return LineHeightSpec{}, false
	}
	if l.Unit == UnitNone {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, true
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, true
}

// Resolve computes the absolute line height in millimeters for the given font size (mm).
func (s LineHeightSpec) Resolve(fontSizeMM float64) float64 {
	switch s.Kind {
	case LineHeightFactor:
		if s.Factor > 0 {
			return fontSizeMM * s.Factor
		}
	case LineHeightAbsolute:
		return s.Len.ToMM()
	}
	return fontSizeMM * defaultLineHeightFactor
}

// pagePresets holds portrait page sizes in millimeters.
var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

// PageSize returns the preset size in millimeters, swapped for landscape.
func PageSize(name string, landscape bool) (width, height float64, ok bool) {
	base, ok := pagePresets[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, 0, false
	}
	width, height = base[0], base[1]
	if landscape {
		width, height = height, width
	}
	return width, height, true
}
