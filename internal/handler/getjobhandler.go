package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"judgeworker/internal/logic"
	"judgeworker/internal/svc"
	"judgeworker/internal/types"
	appErr "judgeworker/pkg/errors"
)

// GetJobHandler serves GET /api/v1/jobs/:jobId.
func GetJobHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GetJobReq
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, appErr.Wrap(err, appErr.InvalidParams))
			return
		}
		l := logic.NewGetJobLogic(r.Context(), svcCtx)
		job, err := l.GetJob(req.JobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, job)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := appErr.GetCode(err)
	httpx.WriteJsonCtx(r.Context(), w, code.HTTPStatus(), types.ErrorResp{
		Code:    int(code),
		Message: err.Error(),
	})
}
