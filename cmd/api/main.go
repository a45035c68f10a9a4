package main

import (
	"context"
	"log"
	"os"

	"phlock_server/internal/model"
	"phlock_server/internal/pkg"
	"phlock_server/internal/repository/mysql"
	"phlock_server/internal/repository/redis"
	"phlock_server/internal/router"
	"phlock_server/internal/service"
)

func main() {
	dsn := "user:password@tcp(127.0.0.1:3306)/phlock?charset=utf8mb4&parseTime=True"
	if err := mysql.InitDB(dsn); err != nil {
		panic(err)
	}

	// 连接redis
	if err := redis.Init("127.0.0.1:6379", "", 0); err != nil {
		panic(err)
	}

	// 自动建表（开发阶段 OK）
	mysql.DB.AutoMigrate(
		&model.User{},
		&model.Follow{},
		&model.DailyPick{},
		&model.ReachEntry{},
		&model.ScheduledMutation{},
		&model.Notification{},
		&model.PushOutbox{},
	)

	ctx := context.Background()

	// 曲库客户端；没配凭证就用兜底解析（只回填ref，歌名靠客户端缓存）
	resolve := fallbackResolver
	if id, secret := os.Getenv("SPOTIFY_ID"), os.Getenv("SPOTIFY_SECRET"); id != "" && secret != "" {
		catalog, err := pkg.NewCatalogClient(ctx, pkg.CatalogConfig{ClientID: id, ClientSecret: secret})
		if err != nil {
			log.Printf("catalog init err: %v", err)
		} else {
			resolve = catalog.Resolve
		}
	}

	// 推送事件投递：kafka 不可用时降级打日志
	sender := service.LogSender
	if producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Topic:   pkg.DefaultPushTopic,
	}); err == nil {
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}

	// 后台任务：零点变更 worker、推送 relayer、计数对账
	go service.NewMutationWorker().Run(ctx)
	go service.NewOutboxRelayer(sender).Run(ctx)
	go service.NewCountReconciler().Run(ctx)

	// Gin
	r := router.InitRouter(resolve)
	if err := r.Run(":8080"); err != nil {
		return
	}
}

// fallbackResolver 曲库不可用时的占位解析
func fallbackResolver(ctx context.Context, trackRef string) (*pkg.TrackInfo, error) {
	return nil, pkg.ErrTrackUnavailable
}
