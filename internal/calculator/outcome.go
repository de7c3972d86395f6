package calculator

// OutcomeKind classifies the terminal state reached for one identifier.
type OutcomeKind int

const (
	// OutcomeSuccess means a valid margin was extracted and is carried in
	// Outcome.Margin.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeNoMargin means the calculator produced no valid percentage.
	// It is a soft result, not an error; nothing is written back.
	OutcomeNoMargin
	// OutcomeFailed means an unrecoverable per-identifier fault occurred,
	// carried in Outcome.Err.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoMargin:
		return "no_margin"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the write-once result of processing one identifier.
type Outcome struct {
	Kind   OutcomeKind
	Margin string
	Err    error
}

func succeeded(margin string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Margin: margin}
}

func noMargin() Outcome {
	return Outcome{Kind: OutcomeNoMargin}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}
