// Package sanitizer turns untrusted text into a delimited block an LLM can
// be given safely. Forged boundary markers, including fullwidth lookalikes,
// are neutralized before the content is wrapped, so the untrusted region
// cannot be closed early from the inside.
package sanitizer

import "context"

// Scanner inspects and optionally transforms text content.
// Implementations must not mutate the input; return transformed
// content in the ScanResult.
type Scanner interface {
	// Name returns a human-readable identifier for logging.
	Name() string

	// Scan inspects content and returns a ScanResult.
	Scan(ctx context.Context, content string) (ScanResult, error)
}
