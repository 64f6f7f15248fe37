package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"judgeworker/internal/common/mq"
	"judgeworker/internal/judgment"
	"judgeworker/internal/svc"
	"judgeworker/internal/webhook"
	appErr "judgeworker/pkg/errors"
)

// JudgeConsumerLogic handles judgment jobs delivered by the queue.
type JudgeConsumerLogic struct {
	svcCtx *svc.ServiceContext
}

func NewJudgeConsumerLogic(svcCtx *svc.ServiceContext) *JudgeConsumerLogic {
	return &JudgeConsumerLogic{svcCtx: svcCtx}
}

// HandleMessage decodes one queued job and judges it. Undecodable
// payloads bubble up so the queue can retry and dead-letter them; once a
// job is identified the supervisor owns all failure reporting, so the
// message is always acknowledged.
func (l *JudgeConsumerLogic) HandleMessage(ctx context.Context, msg *mq.Message) error {
	logger := logx.WithContext(ctx)

	job, err := judgment.DecodeJob(msg.Body)
	if err != nil {
		logger.Errorf("consumer: undecodable job message %s: %v", msg.ID, err)
		return err
	}
	logger.Infof("consumer: job %s received (user %d, challenge %d, %s)",
		job.JobID, job.UserID, job.ChallengeID, job.CodeLanguage)

	// Prefer the stored record: the backend may have set the stop flag
	// after enqueueing. Absent records are written back with the
	// configured TTL so the status surface can see the job.
	stored, err := l.svcCtx.Jobs.FindByUserAndJob(ctx, job.UserID, job.JobID)
	switch {
	case err == nil:
		job = stored
	case appErr.Is(err, appErr.JobNotFound):
		ttl := time.Duration(l.svcCtx.Config.Job.TtlSeconds) * time.Second
		if _, err := l.svcCtx.Jobs.Save(ctx, job, ttl); err != nil {
			logger.Errorf("consumer: job %s could not be stored: %v", job.JobID, err)
		}
	default:
		logger.Errorf("consumer: job %s store lookup failed: %v", job.JobID, err)
	}

	// One webhook session per job invocation.
	dispatcher := webhook.NewDispatcher(l.svcCtx.WebhookCfg)
	defer dispatcher.Shutdown()

	if err := l.svcCtx.Supervisor.Execute(ctx, job, dispatcher); err != nil {
		logger.Errorf("consumer: job %s failed: %v", job.JobID, err)
	}
	return nil
}
