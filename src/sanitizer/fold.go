package sanitizer

import (
	"strings"
	"unicode/utf8"
)

const (
	fullwidthASCIIOffset = 0xFEE0
	fullwidthLeftAngle   = 0xFF1C
	fullwidthRightAngle  = 0xFF1E
)

// FoldRune maps a fullwidth lookalike of a marker character to its ASCII
// form: fullwidth A-Z, a-z, '<' and '>'. Every other rune is returned as is.
// The mapping is one rune to one rune.
func FoldRune(r rune) rune {
	switch {
	case r >= 0xFF21 && r <= 0xFF3A: // fullwidth A-Z
		return r - fullwidthASCIIOffset
	case r >= 0xFF41 && r <= 0xFF5A: // fullwidth a-z
		return r - fullwidthASCIIOffset
	case r == fullwidthLeftAngle:
		return '<'
	case r == fullwidthRightAngle:
		return '>'
	}
	return r
}

// Fold applies FoldRune to every code point of s. Bytes that are not valid
// UTF-8 are copied through untouched, so the result always has the same
// number of code points as s.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if f := FoldRune(r); f != r {
			b.WriteRune(f)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// foldedView is Fold(raw) plus, for each byte of the folded text, the
// offset of the raw byte it was produced from. A fold shrinks a 3-byte
// fullwidth rune to 1 ASCII byte, so byte offsets into the folded text
// cannot be used on raw directly.
type foldedView struct {
	text string
	// rawOffset has len(text)+1 entries; the last one is len(raw).
	rawOffset []int
}

func newFoldedView(raw string) foldedView {
	var b strings.Builder
	b.Grow(len(raw))
	offsets := make([]int, 0, len(raw)+1)

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteByte(raw[i])
			offsets = append(offsets, i)
			i++
			continue
		}
		if f := FoldRune(r); f != r {
			// Folds always land in ASCII.
			b.WriteByte(byte(f))
			offsets = append(offsets, i)
		} else {
			b.WriteString(raw[i : i+size])
			for j := 0; j < size; j++ {
				offsets = append(offsets, i+j)
			}
		}
		i += size
	}
	offsets = append(offsets, len(raw))

	return foldedView{text: b.String(), rawOffset: offsets}
}

// rawSpan translates a [start, end) byte range of the folded text into the
// matching range of the raw text.
func (v foldedView) rawSpan(start, end int) (int, int) {
	return v.rawOffset[start], v.rawOffset[end]
}
