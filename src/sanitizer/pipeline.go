package sanitizer

import "context"

// Pipeline executes an ordered sequence of Scanners against content,
// threading each modification into the next scanner.
type Pipeline struct {
	scanners []Scanner
}

// NewPipeline creates a pipeline from the given scanners. Execution
// order matches the slice order.
func NewPipeline(scanners ...Scanner) *Pipeline {
	return &Pipeline{scanners: scanners}
}

// Process runs all scanners in order and returns an aggregated result.
// It stops early only if ctx is done or a scanner fails.
func (p *Pipeline) Process(ctx context.Context, content string) (PipelineResult, error) {
	current := content
	result := PipelineResult{
		FinalVerdict: VerdictPass,
		ScanResults:  make([]ScanResult, 0, len(p.scanners)),
	}

	for _, s := range p.scanners {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sr, err := s.Scan(ctx, current)
		if err != nil {
			return result, err
		}

		result.ScanResults = append(result.ScanResults, sr)
		result.AllThreats = append(result.AllThreats, sr.Threats...)

		if sr.Verdict == VerdictModify {
			result.FinalVerdict = VerdictModify
			current = sr.Content
		}
	}

	result.FinalContent = current
	return result, nil
}
