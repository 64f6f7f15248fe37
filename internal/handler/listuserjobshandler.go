package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"judgeworker/internal/logic"
	"judgeworker/internal/svc"
	"judgeworker/internal/types"
	appErr "judgeworker/pkg/errors"
)

// ListUserJobsHandler serves GET /api/v1/users/:userId/jobs.
func ListUserJobsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListUserJobsReq
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.InvalidParams))
			return
		}
		l := logic.NewListUserJobsLogic(r.Context(), svcCtx)
		jobs, err := l.ListUserJobs(req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, jobs)
	}
}
