package judgment

// FailureCause enumerates why a verdict or judgment is not a pass.
type FailureCause string

const (
	CauseCompileError       FailureCause = "COMPILE_ERROR"
	CauseCompileTimeout     FailureCause = "COMPILE_TIMEOUT"
	CauseCompileOutOfMemory FailureCause = "COMPILE_OUT_OF_MEMORY"
	CauseRuntimeError       FailureCause = "RUNTIME_ERROR"
	CauseRuntimeTimeout     FailureCause = "RUNTIME_TIMEOUT"
	CauseRuntimeOutOfMemory FailureCause = "RUNTIME_OUT_OF_MEMORY"
	CauseWrongAnswer        FailureCause = "WRONG_ANSWER"
	CauseSandboxTimeout     FailureCause = "SANDBOX_TIMEOUT"
	CauseSandboxOutOfMemory FailureCause = "SANDBOX_OUT_OF_MEMORY"
)

// Verdict is the outcome of one test case or one terminal failure.
// TestCaseIndex is 1-based; 0 marks compile- or sandbox-level verdicts.
// MemoryUsedMb and ElapsedTimeMs are set only on passing verdicts; a real run
// always reports nonzero memory, so MemoryUsedMb == 0 on a pass marks a
// runner contract violation.
type Verdict struct {
	Passed        bool         `json:"passed"`
	TestCaseIndex int          `json:"testCaseIndex,omitempty"`
	MemoryUsedMb  float64      `json:"memoryUsedMb,omitempty"`
	ElapsedTimeMs int64        `json:"elapsedTimeMs,omitempty"`
	FailureCause  FailureCause `json:"failureCause,omitempty"`
	FailureDetail string       `json:"failureDetail,omitempty"`
}

// FirstNonPassing returns the earliest non-passing verdict, if any.
func FirstNonPassing(verdicts []Verdict) (Verdict, bool) {
	for _, v := range verdicts {
		if !v.Passed {
			return v, true
		}
	}
	return Verdict{}, false
}
