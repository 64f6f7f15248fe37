package main

import (
	"context"
	"flag"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"

	"judgeworker/internal/common/mq"
	"judgeworker/internal/config"
	"judgeworker/internal/handler"
	"judgeworker/internal/logic"
	"judgeworker/internal/svc"
)

var configFile = flag.String("f", "etc/judge-worker.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	svcCtx, err := svc.NewServiceContext(c)
	logx.Must(err)
	defer svcCtx.Close()

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()
	handler.RegisterHandlers(server, svcCtx)

	consumer := logic.NewJudgeConsumerLogic(svcCtx)
	limiter := mq.NewTokenLimiter(c.Worker.PoolSize)
	opts := &mq.SubscribeOptions{
		ConsumerGroup:   c.Kafka.ConsumerGroup,
		Concurrency:     c.Worker.PoolSize,
		MaxRetries:      c.Kafka.MaxRetries,
		DeadLetterTopic: c.Kafka.DeadLetterTopic,
	}
	logx.Must(svcCtx.Queue.SubscribeWithOptions(context.Background(), c.Kafka.Topic, consumer.HandleMessage, opts, limiter))
	logx.Must(svcCtx.Queue.Start())

	logx.Infof("judge worker listening on %s:%d, consuming %s", c.Host, c.Port, c.Kafka.Topic)
	server.Start()
}
