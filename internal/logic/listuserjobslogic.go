package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"judgeworker/internal/judgment"
	"judgeworker/internal/svc"
)

type ListUserJobsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListUserJobsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListUserJobsLogic {
	return &ListUserJobsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ListUserJobs returns every stored job owned by the user.
func (l *ListUserJobsLogic) ListUserJobs(userID int64) ([]*judgment.Job, error) {
	return l.svcCtx.Jobs.FindByUserID(l.ctx, userID)
}
