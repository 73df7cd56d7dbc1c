package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"neosocial/internal/auth"
	"neosocial/internal/config"
	"neosocial/internal/handlers/apiserver"
	appKafka "neosocial/internal/kafka"
	kafkahandlers "neosocial/internal/kafka/handlers"
	"neosocial/internal/logging"
	"neosocial/internal/middleware"
	appRedis "neosocial/internal/redis"
	"neosocial/internal/services"
	"neosocial/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv("NEOSOCIAL_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("app", cfg.AppName), zap.String("version", cfg.AppVersion))
	logger.Info("API 服务器配置加载成功")

	ctx := context.Background()

	// 2. 初始化图存储
	graph, err := storage.InitGraphStore(ctx, cfg.Graph, logger)
	if err != nil {
		logger.Fatal("无法初始化图存储", zap.Error(err))
	}
	defer func() {
		if err := graph.Close(context.Background()); err != nil {
			logger.Warn("关闭图存储失败", zap.Error(err))
		}
	}()
	logger.Info("图存储连接成功", zap.String("type", cfg.Graph.Type), zap.String("uri", cfg.Graph.URI))

	// 3. 帖子库 (内容协作方)，可选
	var posts services.PostReader
	if cfg.Database.Type != "none" {
		db, err := storage.InitDB(cfg.Database, logger)
		if err != nil {
			logger.Fatal("无法初始化数据库", zap.Error(err))
		}
		if err := storage.AutoMigrateTables(db, logger); err != nil {
			logger.Warn("数据库表迁移可能失败", zap.Error(err))
		}
		posts = storage.NewGormPostRepository(db)
	}

	// 4. Redis: 推荐缓存与令牌吊销列表，可选
	var (
		suggestionCache services.SuggestionCache
		revoked         auth.RevocationList
	)
	if cfg.Redis.Enabled {
		redisClient := redisDriver.NewClient(&redisDriver.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("无法连接到 Redis", zap.Error(err))
		}
		suggestionCache = appRedis.NewSuggestionCache(redisClient, cfg.Redis.SuggestionTTL)
		revoked = appRedis.NewTokenRevocationList(redisClient)
		logger.Info("成功连接到 Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Kafka: 领域事件，可选
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.Kafka.Enabled {
		producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("无法创建 Kafka 生产者", zap.Error(err))
		}
		defer producer.Close()
		notifier = appKafka.NewEventPublisher(producer, cfg.Kafka.EventsTopic)
		logger.Info("Kafka 生产者初始化成功", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.EventsTopic))
	}

	// 6. 初始化 Services
	guard := services.NewAuthorizationGuard(graph)
	friendService := services.NewFriendshipService(graph, notifier, suggestionCache, logger)
	groupService := services.NewGroupMembershipService(graph, guard, posts, notifier, suggestionCache, logger)
	suggestionService := services.NewSuggestionService(graph, suggestionCache, cfg.Suggestions, logger)
	userService := services.NewUserService(graph, logger)

	// 6.1 Kafka 消费者: 同步身份服务的用户
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()
	var consumersDone sync.WaitGroup
	if cfg.Kafka.Enabled && cfg.Kafka.UsersTopic != "" {
		userConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("无法创建用户事件 Kafka 消费者", zap.Error(err))
		}
		defer userConsumer.Close()

		userEvents := kafkahandlers.NewUserEventHandler(userService, logger)
		consumersDone.Add(1)
		go func() {
			defer consumersDone.Done()
			if err := userConsumer.Consume(consumerCtx, []string{cfg.Kafka.UsersTopic}, userEvents.Handle); err != nil {
				logger.Error("用户事件消费者退出", zap.Error(err))
			}
		}()
	}

	// 7. 设置 HTTP 路由
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, revoked, logger))
	apiserver.RegisterRoutes(apiRouter,
		apiserver.NewFriendshipHandler(friendService, logger),
		apiserver.NewGroupHandler(groupService, logger),
		apiserver.NewSuggestionHandler(suggestionService, logger),
	)

	// 8. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handlers.CORS(corsOptions...)(r),
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	go func() {
		logger.Info("API 服务器启动", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API 服务器启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到关闭信号，正在关闭 API 服务器...")

	cancelConsumers()
	consumersDone.Wait()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("API 服务器强制关闭", zap.Error(err))
		return
	}
	logger.Info("API 服务器已成功关闭")
}
