package main

import (
	"SocialSync/apps/connect/internal/dispatch"
	"SocialSync/apps/connect/internal/handler"
	"SocialSync/apps/connect/internal/manager"
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/apps/connect/internal/server"
	"SocialSync/apps/connect/internal/service"
	"SocialSync/apps/connect/internal/svc"
	"SocialSync/apps/connect/mq"
	"SocialSync/config"
	"SocialSync/pkg/async"
	"SocialSync/pkg/ctxmeta"
	pkgkafka "SocialSync/pkg/kafka"
	"SocialSync/pkg/logger"
	pkgmongo "SocialSync/pkg/mongo"
	pkgredis "SocialSync/pkg/redis"
	"SocialSync/pkg/util"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
)

// appConfig 启动期加载的全部配置
type appConfig struct {
	connect config.ConnectConfig
	async   config.AsyncConfig
	mongo   config.MongoConfig
	redis   config.RedisConfig
	kafka   config.KafkaConfig
}

func loadConfig() (appConfig, error) {
	var (
		cfg appConfig
		err error
	)
	if cfg.connect, err = config.DefaultConnectConfig(); err != nil {
		return cfg, err
	}
	if cfg.async, err = config.DefaultAsyncConfig(); err != nil {
		return cfg, err
	}
	if cfg.mongo, err = config.DefaultMongoConfig(); err != nil {
		return cfg, err
	}
	if cfg.redis, err = config.DefaultRedisConfig(); err != nil {
		return cfg, err
	}
	if cfg.kafka, err = config.DefaultKafkaConfig(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// stores 文档存储的四个仓储视图
type stores struct {
	users    repository.IUserRepository
	requests repository.IFriendRequestRepository
	chats    repository.IChatRepository
	messages repository.IMessageRepository
	db       *mongo.Database
}

func main() {
	// 本地开发时从 .env 读取配置，文件不存在不影响启动。
	_ = godotenv.Load()

	// 初始化根上下文，并放入一个默认 trace_id。
	// connect 服务不是从 HTTP 请求起步，因此先放一个固定值用于启动期日志串联。
	ctx := ctxmeta.WithTraceID(context.Background(), "0")

	// 1) 初始化日志组件（必须最先完成，后续模块初始化都依赖日志输出）。
	logCfg, err := config.DefaultLoggerConfig()
	if err != nil {
		panic(err)
	}
	l, err := logger.Build(logCfg)
	if err != nil {
		panic(err)
	}
	logger.ReplaceGlobal(l)
	defer func() {
		_ = l.Sync()
	}()

	// 其余配置一次性加载，任何变量格式非法都直接终止启动。
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal(ctx, "配置加载失败", logger.ErrorField("error", err))
	}
	connectCfg := cfg.connect
	if err := util.InitSnowflake(connectCfg.NodeID); err != nil {
		logger.Fatal(ctx, "雪花算法节点初始化失败", logger.ErrorField("error", err))
	}
	util.SetJWTSecret(connectCfg.JWTSecret)

	// 2) 初始化协程池：每个上行事件都是池中的一个任务。
	if err := async.Init(cfg.async); err != nil {
		logger.Fatal(ctx, "协程池初始化失败", logger.ErrorField("error", err))
	}

	// 3) 初始化文档存储。
	st, err := buildStores(ctx, cfg.mongo)
	if err != nil {
		logger.Fatal(ctx, "文档存储初始化失败", logger.ErrorField("error", err))
	}

	// 4) 初始化 Redis（吊销检查）。
	// 降级策略：Redis 不可用时服务仍可启动，鉴权退化为仅 JWT 校验。
	var revocations svc.RevocationStore
	redisCfg := cfg.redis
	redisClient, err := pkgredis.Build(redisCfg)
	if err != nil {
		logger.Warn(ctx, "Connect 服务 Redis 初始化失败，降级为无 Redis 模式",
			logger.ErrorField("error", err),
		)
	} else {
		pkgredis.ReplaceGlobal(redisClient)
		revocations = svc.NewRedisRevocationStore(redisClient)
		logger.Info(ctx, "Connect 服务 Redis 初始化成功",
			logger.String("addr", redisCfg.Addr),
		)
	}

	// 5) 初始化好友边修复队列（未配置 broker 时不启用）。
	kafkaCfg := cfg.kafka
	var (
		repairer service.EdgeRepairer
		producer *pkgkafka.Producer
		consumer *pkgkafka.Consumer
	)
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if len(kafkaCfg.Brokers) > 0 {
		producer = pkgkafka.NewProducer(kafkaCfg.Brokers, kafkaCfg.FriendEdgeTopic, kafkaCfg.WriteTimeout)
		repairer = mq.NewFriendEdgeRepairer(producer, kafkaCfg.MaxRepairRetries)

		consumer = pkgkafka.NewConsumer(kafkaCfg.Brokers, kafkaCfg.FriendEdgeTopic, kafkaCfg.ConsumerConfig, logger.L())
		repairConsumer := mq.NewFriendEdgeConsumer(st.users, producer, kafkaCfg.RepairBackoff)
		go func() {
			if err := consumer.Run(consumerCtx, repairConsumer.Handle); err != nil {
				logger.Error(ctx, "好友边修复消费者退出", logger.ErrorField("error", err))
			}
		}()
		logger.Info(ctx, "好友边修复队列已启用",
			logger.Strings("brokers", kafkaCfg.Brokers),
			logger.String("topic", kafkaCfg.FriendEdgeTopic),
		)
	} else {
		logger.Warn(ctx, "未配置 KAFKA_BROKERS，好友边单侧失败仅记录日志")
	}

	// 6) 组装核心依赖：
	// - service:  好友关系与会话快照；
	// - dispatch: 事件路由；
	// - manager:  连接注册/注销；
	// - handler:  Gin /ws 入口，承接握手鉴权与协议层逻辑。
	relationshipSvc := service.NewRelationshipService(st.users, st.requests, repairer)
	chatSvc := service.NewChatService(st.users, st.chats, st.messages, connectCfg.MessageWindow, connectCfg.ChatFanout)

	connectSvc := svc.NewConnectService(svc.NewJWTVerifier(revocations), connectCfg.VerifyTimeout)
	dispatcher := dispatch.NewDispatcher(connectSvc.MarshalEnvelope, connectCfg.EventTimeout)
	dispatch.RegisterRoutes(dispatcher, relationshipSvc, chatSvc)

	connManager := manager.NewConnectionManager()
	wsHandler := handler.NewWSHandler(connManager, connectSvc, dispatcher, handler.RateLimit{
		Rate:  connectCfg.EventRate,
		Burst: connectCfg.EventBurst,
	})

	// 7) 构建 HTTP 服务（/health、/metrics 与 /ws）并后台启动。
	srv := server.New(connectCfg, wsHandler)
	go func() {
		logger.Info(ctx, "Connect 服务启动中",
			logger.String("addr", connectCfg.Addr),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Connect 服务启动失败",
				logger.ErrorField("error", err),
			)
		}
	}()

	// 8) 阻塞等待系统退出信号（Ctrl+C / SIGTERM）。
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 9) 优雅关闭流程：
	// - 先关闭连接管理器，主动断开所有 WebSocket 连接；
	// - 再关闭 HTTP 服务，等待进行中的请求在超时时间内结束；
	// - 排空协程池中尚未完成的事件后关闭 Kafka 与 MongoDB。
	logger.Info(ctx, "Connect 服务开始优雅停机")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	connManager.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP 服务优雅停机失败", logger.ErrorField("error", err))
	}
	if err := async.Release(); err != nil {
		logger.Warn(ctx, "协程池释放超时", logger.ErrorField("error", err))
	}

	stopConsumer()
	if consumer != nil {
		_ = consumer.Close()
	}
	if producer != nil {
		_ = producer.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if st.db != nil {
		if err := pkgmongo.Close(shutdownCtx, st.db); err != nil {
			logger.Warn(ctx, "MongoDB 断开失败", logger.ErrorField("error", err))
		}
	}

	logger.Info(ctx, "Connect 服务已退出")
}

// buildStores 按 STORE_DRIVER 选择 MongoDB 或内存存储
func buildStores(ctx context.Context, cfg config.MongoConfig) (*stores, error) {
	if cfg.Driver == config.StoreDriverMemory {
		mem := repository.NewMemoryStore()
		logger.Warn(ctx, "使用内存文档存储，数据不会持久化")
		return &stores{
			users:    mem.Users(),
			requests: mem.FriendRequests(),
			chats:    mem.Chats(),
			messages: mem.Messages(),
		}, nil
	}

	db, err := pkgmongo.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Warn(ctx, "MongoDB 索引创建失败", logger.ErrorField("error", err))
	}
	logger.Info(ctx, "MongoDB 初始化成功", logger.String("database", cfg.Database))
	return &stores{
		users:    repository.NewUserRepository(db),
		requests: repository.NewFriendRequestRepository(db),
		chats:    repository.NewChatRepository(db),
		messages: repository.NewMessageRepository(db),
		db:       db,
	}, nil
}
