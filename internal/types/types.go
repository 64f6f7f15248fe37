package types

// GetJobReq identifies a job on the status surface.
type GetJobReq struct {
	JobID string `path:"jobId"`
}

// ListUserJobsReq identifies a user whose jobs are listed.
type ListUserJobsReq struct {
	UserID int64 `path:"userId"`
}

// ErrorResp is the JSON error body the status surface returns.
type ErrorResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
