package config

import (
	"github.com/zeromicro/go-zero/rest"

	"judgeworker/internal/common/storage"
)

// Config is the worker configuration, loaded from YAML.
type Config struct {
	rest.RestConf

	Redis   RedisConf
	Kafka   KafkaConf
	Webhook WebhookConf
	Sandbox SandboxConf
	Catalog CatalogConf
	Job     JobConf
	Worker  WorkerConf
}

// RedisConf locates the job store.
type RedisConf struct {
	Addr     string
	Password string `json:",optional"`
	DB       int    `json:",optional"`
}

// KafkaConf describes the inbound job queue.
type KafkaConf struct {
	Brokers         []string
	Topic           string
	ConsumerGroup   string `json:",optional"`
	DeadLetterTopic string `json:",optional"`
	MaxRetries      int    `json:",optional"`
}

// WebhookConf holds the receiver endpoints.
type WebhookConf struct {
	VerdictUrl          string
	SubmissionResultUrl string
	ErrorUrl            string
	TimeoutSeconds      int `json:",optional"`
}

// SandboxConf configures the docker sandbox.
type SandboxConf struct {
	Binary         string  `json:",optional"`
	ImagePrefix    string  `json:",optional"`
	SeccompProfile string
	RunnerRoot     string
	CpuFraction    float64 `json:",optional"`
	ScratchRoot    string  `json:",optional"`
}

// CatalogConf selects and locates the limits catalog source.
type CatalogConf struct {
	// Source is "local" or "minio".
	Source string              `json:",default=local,options=local|minio"`
	Dir    string              `json:",optional"`
	Prefix string              `json:",optional"`
	MinIO  storage.MinIOConfig `json:",optional"`
}

// JobConf holds job record settings.
type JobConf struct {
	TtlSeconds int `json:",default=3600"`
}

// WorkerConf sizes the judgment pool.
type WorkerConf struct {
	PoolSize int `json:",default=4"`
}
