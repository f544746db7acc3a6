package main

import (
	"context"
	"log"
	"time"

	"Talk_Flow/internal/config"
	"Talk_Flow/internal/handler"
	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/repository/mysql"
	"Talk_Flow/internal/repository/redis"
	"Talk_Flow/internal/router"
	"Talk_Flow/internal/service"
	"Talk_Flow/internal/ws"
)

func main() {
	cfg := config.Load()
	pkg.SetTokenSecrets(cfg.AccessSecret, cfg.RefreshSecret)

	if err := mysql.InitDB(cfg.DBDSN); err != nil {
		panic(err)
	}

	if err := redis.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		panic(err)
	}

	// dev-time schema sync
	mysql.DB.AutoMigrate(
		&model.User{},
		&model.Relation{},
		&model.Conversation{},
		&model.Message{},
		&model.SocialOutbox{},
	)

	blobs, err := pkg.NewDiskBlobStore(cfg.BlobDir, "/blobs")
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub()
	bus := &redis.EventBus{}
	go redis.RunBridge(ctx, hub)

	userRepo := mysql.NewUserRepository()
	relationRepo := mysql.NewRelationRepository()
	messageRepo := mysql.NewMessageRepository()
	relCache := redis.NewRelationCacheRepository()
	sessions := &redis.SessionRepository{}
	allocLock := &redis.AllocLock{RDB: redis.Client}

	smtpCfg := pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	emailSvc := service.NewEmailService(smtpCfg)
	presenceSvc := service.NewPresenceService(userRepo, bus)
	userSvc := service.NewUserService(userRepo, sessions, emailSvc, allocLock, presenceSvc, bus)
	followSvc := service.NewFollowService(relationRepo, relCache, bus)
	chatSvc := service.NewChatService(messageRepo, followSvc, bus, hub, blobs)
	notifSvc := service.NewNotificationService(relationRepo, userRepo, hub)

	// background loops: outbox drain, counter repair, idle sweep
	sender := service.LogSender
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	go service.NewOutboxRelayer(sender).Run(ctx)
	go service.NewCountReconciler().Run(ctx)
	go presenceSvc.RunAwayReaper(ctx, time.Minute, 5*time.Minute)

	r := router.InitRouter(&router.Handlers{
		User:         handler.NewUserHandler(userSvc),
		Email:        handler.NewEmailHandler(emailSvc),
		Follow:       handler.NewFollowHandler(followSvc, userRepo),
		Chat:         handler.NewChatHandler(chatSvc),
		Notification: handler.NewNotificationHandler(notifSvc),
		Presence:     handler.NewPresenceHandler(presenceSvc, userSvc),
		BlobDir:      cfg.BlobDir,
	})
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
