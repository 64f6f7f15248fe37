package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"judgeworker/internal/judgment"
	"judgeworker/internal/svc"
)

type GetJobLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetJobLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetJobLogic {
	return &GetJobLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// GetJob looks a running or pending job up by its id alone.
func (l *GetJobLogic) GetJob(jobID string) (*judgment.Job, error) {
	return l.svcCtx.Jobs.FindByJobID(l.ctx, jobID)
}
