package sanitizer

// Verdict represents the outcome of a scan.
type Verdict int

const (
	// VerdictPass means the content went through unchanged.
	VerdictPass Verdict = iota
	// VerdictModify means the scanner rewrote the content and the
	// rewritten form replaces the original.
	VerdictModify
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictModify:
		return "modify"
	default:
		return "unknown"
	}
}

// ScanResult is the outcome of a single Scanner.
type ScanResult struct {
	Verdict     Verdict
	Content     string   // original or modified content
	Threats     []string // human-readable findings
	ScannerName string
}

// PipelineResult aggregates results from all scanners in a pipeline.
type PipelineResult struct {
	FinalVerdict Verdict
	FinalContent string
	AllThreats   []string
	ScanResults  []ScanResult
}
