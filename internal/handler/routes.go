package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"judgeworker/internal/svc"
)

// RegisterHandlers mounts the read-only status surface.
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/api/v1/jobs/:jobId",
			Handler: GetJobHandler(svcCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/v1/users/:userId/jobs",
			Handler: ListUserJobsHandler(svcCtx),
		},
	})
}
