package svc

import (
	"context"
	"time"

	"judgeworker/internal/catalog"
	"judgeworker/internal/common/cache"
	"judgeworker/internal/common/mq"
	"judgeworker/internal/common/storage"
	"judgeworker/internal/config"
	"judgeworker/internal/repository"
	"judgeworker/internal/sandbox"
	"judgeworker/internal/webhook"
	appErr "judgeworker/pkg/errors"
)

// ServiceContext wires the worker's long-lived collaborators: the job
// store, the queue, the limits catalog and the supervisor.
type ServiceContext struct {
	Config     config.Config
	Store      cache.Cache
	Jobs       *repository.JobRepository
	Catalog    *catalog.Catalog
	Queue      mq.MessageQueue
	Supervisor *sandbox.Supervisor
	WebhookCfg webhook.Config
}

// NewServiceContext builds the context from config.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	storeCfg := cache.DefaultRedisConfig()
	storeCfg.Addr = c.Redis.Addr
	storeCfg.Password = c.Redis.Password
	storeCfg.DB = c.Redis.DB
	store, err := cache.NewRedisCacheWithConfig(storeCfg)
	if err != nil {
		return nil, err
	}

	jobs := repository.NewJobRepository(store)

	src, err := catalogSource(c.Catalog)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	cat, err := catalog.Load(context.Background(), src)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	queue, err := mq.NewKafkaQueue(mq.KafkaConfig{
		Brokers:  c.Kafka.Brokers,
		ClientID: c.Name,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	builder := sandbox.NewDockerCommandBuilder(sandbox.DockerConfig{
		Binary:         c.Sandbox.Binary,
		ImagePrefix:    c.Sandbox.ImagePrefix,
		SeccompProfile: c.Sandbox.SeccompProfile,
		RunnerRoot:     c.Sandbox.RunnerRoot,
		CPUFraction:    c.Sandbox.CpuFraction,
	})

	return &ServiceContext{
		Config:     c,
		Store:      store,
		Jobs:       jobs,
		Catalog:    cat,
		Queue:      queue,
		Supervisor: sandbox.NewSupervisor(cat, jobs, builder, c.Sandbox.ScratchRoot),
		WebhookCfg: webhook.Config{
			VerdictURL:          c.Webhook.VerdictUrl,
			SubmissionResultURL: c.Webhook.SubmissionResultUrl,
			ErrorURL:            c.Webhook.ErrorUrl,
			RequestTimeout:      time.Duration(c.Webhook.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Close releases the context's connections.
func (s *ServiceContext) Close() {
	if s.Queue != nil {
		_ = s.Queue.Close()
	}
	if s.Store != nil {
		_ = s.Store.Close()
	}
}

func catalogSource(c config.CatalogConf) (catalog.Source, error) {
	switch c.Source {
	case "", "local":
		if c.Dir == "" {
			return nil, appErr.New(appErr.ConfigMissing).WithMessage("catalog dir is required for local source")
		}
		return catalog.NewLocalSource(c.Dir), nil
	case "minio":
		store, err := storage.NewMinIOStorage(c.MinIO)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.ConfigInvalid)
		}
		return catalog.NewObjectSource(store, c.MinIO.Bucket, c.Prefix), nil
	default:
		return nil, appErr.Newf(appErr.ConfigInvalid, "unknown catalog source %q", c.Source)
	}
}
