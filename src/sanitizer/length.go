package sanitizer

import (
	"context"
	"unicode/utf8"
)

const truncationNotice = "\n[truncated]"

// LengthScanner caps content at MaxChars code points. It runs before the
// boundary so the end marker is never cut off. MaxChars <= 0 disables it.
type LengthScanner struct {
	MaxChars int
}

// NewLengthScanner creates a LengthScanner with the given code point limit.
func NewLengthScanner(maxChars int) *LengthScanner {
	return &LengthScanner{MaxChars: maxChars}
}

func (s *LengthScanner) Name() string { return "length" }

func (s *LengthScanner) Scan(_ context.Context, content string) (ScanResult, error) {
	cut, ok := cutIndex(content, s.MaxChars)
	if !ok {
		return ScanResult{
			Verdict:     VerdictPass,
			Content:     content,
			ScannerName: s.Name(),
		}, nil
	}

	return ScanResult{
		Verdict:     VerdictModify,
		Content:     content[:cut] + truncationNotice,
		Threats:     []string{"content exceeded character limit"},
		ScannerName: s.Name(),
	}, nil
}

// cutIndex returns the byte offset just past the first limit code points of
// s, and false when s has no more than limit code points.
func cutIndex(s string, limit int) (int, bool) {
	if limit <= 0 || len(s) <= limit {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); {
		if n == limit {
			return i, true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n++
	}
	return 0, false
}
