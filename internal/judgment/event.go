package judgment

// EventKind discriminates webhook event payloads.
type EventKind string

const (
	KindTestCaseResult   EventKind = "testCaseResult"
	KindPassedJudgment   EventKind = "passedJudgment"
	KindUnpassedJudgment EventKind = "unpassedJudgment"
	KindError            EventKind = "error"
	KindJobCancellation  EventKind = "jobCancellation"
)

const defaultErrorDetail = "Internal server error"

// Event is a payload the webhook dispatcher knows how to route.
type Event interface {
	Kind() EventKind
}

// JobSummary carries the identifying fields shared by both judgment
// variants.
type JobSummary struct {
	UserID       int64        `json:"userId"`
	JobID        string       `json:"jobId"`
	ChallengeID  int64        `json:"challengeId"`
	CodeLanguage CodeLanguage `json:"codeLanguage"`
	Code         string       `json:"code"`
	CodeByteSize int          `json:"codeByteSize"`
	SubmittedAt  string       `json:"submittedAt"`
}

// Summary projects the identifying fields of a job.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		UserID:       j.UserID,
		JobID:        j.JobID,
		ChallengeID:  j.ChallengeID,
		CodeLanguage: j.CodeLanguage,
		Code:         j.Code,
		CodeByteSize: j.CodeByteSize(),
		SubmittedAt:  j.SubmittedAt,
	}
}

// TestCaseResult is the per-case webhook event.
type TestCaseResult struct {
	JobID string `json:"jobId"`
	Verdict
}

func (TestCaseResult) Kind() EventKind { return KindTestCaseResult }

// PassedJudgment is the final event when every test case passed.
type PassedJudgment struct {
	JobSummary
	MaxMemoryUsedMb  float64 `json:"maxMemoryUsedMb"`
	MaxElapsedTimeMs int64   `json:"maxElapsedTimeMs"`
}

func (PassedJudgment) Kind() EventKind { return KindPassedJudgment }

// UnpassedJudgment is the final event when any test case failed.
type UnpassedJudgment struct {
	JobSummary
	FailureCause  FailureCause `json:"failureCause"`
	FailureDetail string       `json:"failureDetail,omitempty"`
}

func (UnpassedJudgment) Kind() EventKind { return KindUnpassedJudgment }

// ErrorEvent notifies the receiver of an internal failure. The detail
// stays opaque to callers.
type ErrorEvent struct {
	JobID  string `json:"jobId"`
	Detail string `json:"detail"`
}

func (ErrorEvent) Kind() EventKind { return KindError }

// NewErrorEvent builds an ErrorEvent with the default opaque detail.
func NewErrorEvent(jobID string) ErrorEvent {
	return ErrorEvent{JobID: jobID, Detail: defaultErrorDetail}
}

// JobCancellation notifies the receiver that a job was stopped before
// execution began.
type JobCancellation struct {
	JobID string `json:"jobId"`
}

func (JobCancellation) Kind() EventKind { return KindJobCancellation }
