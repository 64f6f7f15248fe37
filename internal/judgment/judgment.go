package judgment

import (
	appErr "judgeworker/pkg/errors"
)

// BuildJudgment aggregates a verdict sequence into the final event for a
// job. The earliest non-passing verdict decides an unpassed judgment; a
// fully passing sequence yields element-wise maxima. An empty sequence is
// a pass with zero maxima.
func BuildJudgment(job *Job, verdicts []Verdict) (Event, error) {
	if v, ok := FirstNonPassing(verdicts); ok {
		return UnpassedJudgment{
			JobSummary:    job.Summary(),
			FailureCause:  v.FailureCause,
			FailureDetail: v.FailureDetail,
		}, nil
	}

	var maxMemory float64
	var maxElapsed int64
	for _, v := range verdicts {
		if v.MemoryUsedMb == 0 {
			return nil, appErr.Newf(appErr.JudgmentContract,
				"passing verdict for job %s case %d lacks resource usage", job.JobID, v.TestCaseIndex)
		}
		if v.MemoryUsedMb > maxMemory {
			maxMemory = v.MemoryUsedMb
		}
		if v.ElapsedTimeMs > maxElapsed {
			maxElapsed = v.ElapsedTimeMs
		}
	}
	return PassedJudgment{
		JobSummary:       job.Summary(),
		MaxMemoryUsedMb:  maxMemory,
		MaxElapsedTimeMs: maxElapsed,
	}, nil
}
