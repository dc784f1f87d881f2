package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"lab_borrow_portal/config"
	"lab_borrow_portal/db"
	"lab_borrow_portal/docstore"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/memstore"
	"lab_borrow_portal/notify"
	"lab_borrow_portal/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Mongo    *mongo.Client
	Repo     *db.Repo
	Manager  *lifecycle.Manager
	Notifier *notify.Redis
	Sessions *session.Issuer
	Config   config.Config
}

func MustNew() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB: Postgres ---
	dbConn := db.ConnectDB(cfg.DatabaseURL) // 连接时已自动迁移
	repo := db.NewRepo(dbConn)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	a := &App{
		DB:       dbConn,
		RDB:      rdb,
		Repo:     repo,
		Notifier: notify.NewRedis(rdb, notify.DefaultChannel),
		Sessions: session.NewIssuer(
			session.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
			session.NewAppSessionStore(rdb, "lsb"),
		),
		Config: cfg,
	}

	// --- 借用申请存储 ---
	var store lifecycle.Store
	switch cfg.RequestStore {
	case config.StoreMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		ds := docstore.New(client.Database(cfg.MongoDB))
		if err := ds.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		a.Mongo, store = client, ds
	case config.StoreMemory:
		log.Printf("REQUEST_STORE=memory: borrow requests are not persisted")
		store = memstore.New()
	default:
		store = repo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	mgr, err := lifecycle.NewManager(store,
		lifecycle.WithLocation(cfg.Location),
		lifecycle.WithLabHours(cfg.LabHours),
		lifecycle.WithNotifier(a.Notifier),
		lifecycle.WithAuditRecorder(repo),
		lifecycle.WithLateReturnRecorder(repo),
		lifecycle.WithProfileLookup(repo),
		lifecycle.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("lifecycle: %v", err)
	}
	a.Manager = mgr

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.CORSOrigins())
	a.Router = r
	return a
}

func (a *App) Close() {
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Mongo.Disconnect(ctx)
	}
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
