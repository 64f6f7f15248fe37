package judgment

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	appErr "judgeworker/pkg/errors"
)

// Job is the unit of work delivered by the queue and persisted in the
// job store under key {userId}:{jobId}.
type Job struct {
	JobID             string       `json:"jobId"`
	UserID            int64        `json:"userId"`
	ChallengeID       int64        `json:"challengeId"`
	CodeLanguage      CodeLanguage `json:"codeLanguage"`
	Code              string       `json:"code"` // base64-encoded source
	SubmittedAt       string       `json:"submittedAt"`
	TotalTestCases    int          `json:"totalTestCases"`
	StopFlag          bool         `json:"stopFlag"`
	LastTestCaseIndex int          `json:"lastTestCaseIndex"`
	Verdicts          []Verdict    `json:"verdicts"`
}

// NewJob creates a fresh job for an accepted submission.
func NewJob(userID, challengeID int64, lang CodeLanguage, code string, totalTestCases int) *Job {
	return &Job{
		JobID:          uuid.NewString(),
		UserID:         userID,
		ChallengeID:    challengeID,
		CodeLanguage:   lang,
		Code:           code,
		SubmittedAt:    time.Now().Format("2006-01-02T15:04:05"),
		TotalTestCases: totalTestCases,
	}
}

// DecodeJob parses a job payload. Producers are inconsistent about key
// casing, so snake_case keys are normalized to camelCase before decoding.
func DecodeJob(raw []byte) (*Job, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, appErr.Wrapf(err, appErr.JobDecodeFailed, "invalid job payload")
	}
	obj, ok := CamelizeKeys(generic).(map[string]any)
	if !ok {
		return nil, appErr.Newf(appErr.JobDecodeFailed, "job payload is not an object")
	}
	normalized, err := json.Marshal(obj)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JobDecodeFailed, "job payload normalization failed")
	}
	var job Job
	if err := json.Unmarshal(normalized, &job); err != nil {
		return nil, appErr.Wrapf(err, appErr.JobDecodeFailed, "invalid job payload")
	}
	if job.JobID == "" {
		return nil, appErr.Newf(appErr.JobDecodeFailed, "job payload missing jobId")
	}
	if _, err := ParseCodeLanguage(string(job.CodeLanguage)); err != nil {
		return nil, err
	}
	return &job, nil
}

// DecodeSource base64-decodes the submitted source code.
func (j *Job) DecodeSource() ([]byte, error) {
	src, err := base64.StdEncoding.DecodeString(j.Code)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JobDecodeFailed, "job %s carries invalid base64 code", j.JobID)
	}
	return src, nil
}

// CodeByteSize reports the size of the code payload as it travels on the
// wire, i.e. the length of its base64 form.
func (j *Job) CodeByteSize() int {
	return len(j.Code)
}
