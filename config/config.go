package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lab_borrow_portal/lifecycle"
)

// 请求存储后端
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type SMTP struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	FromName string
}

func (s SMTP) Enabled() bool { return s.Host != "" && s.From != "" }

// Config 从环境变量读取
type Config struct {
	Port string

	DatabaseURL string
	RedisAddr   string
	RedisPwd    string

	RequestStore string
	MongoURI     string
	MongoDB      string

	JWTSecret      string
	SessionTTL     time.Duration
	WebOrigin      string
	ExtraOrigins   []string
	AdminEmails    []string
	BootstrapEmail string

	Location *time.Location
	LabHours lifecycle.LabHours

	SMTP SMTP
}

// LoadEnv 读取 .env，文件不存在时只打日志
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitEmails(s string) []string {
	out := splitList(s)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func Load() (Config, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		get("DB_HOST", "127.0.0.1"),
		get("DB_USER", "postgres"),
		get("DB_PASSWORD", "postgres"),
		get("DB_NAME", "lab_borrow"),
		get("DB_PORT", "5432"),
		get("DB_SSLMODE", "disable"),
	)
	cfg := Config{
		Port:           get("PORT", "3001"),
		DatabaseURL:    dsn,
		RedisAddr:      get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		RequestStore:   strings.ToLower(get("REQUEST_STORE", StorePostgres)),
		MongoURI:       get("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:        get("MONGO_DB", "lab_borrow"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		WebOrigin:      get("WEB_ORIGIN", "http://localhost:5173"),
		ExtraOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
		AdminEmails:    splitEmails(os.Getenv("ADMIN_EMAILS")), // 例如: "admin@ex.com,ops@ex.com"
		BootstrapEmail: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_EMAIL"))),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     get("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Pass:     os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: get("SMTP_FROM_NAME", "Lab Borrow Portal"),
		},
	}

	switch cfg.RequestStore {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return Config{}, fmt.Errorf("REQUEST_STORE: unknown backend %q", cfg.RequestStore)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	// 默认 1 天
	cfg.SessionTTL = 24 * time.Hour
	if s := os.Getenv("SESSION_TTL_SECONDS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("SESSION_TTL_SECONDS: %q is not a positive integer", s)
		}
		cfg.SessionTTL = time.Duration(n) * time.Second
	}

	loc, err := time.LoadLocation(get("LAB_TIMEZONE", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("LAB_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	hours, err := labHours()
	if err != nil {
		return Config{}, err
	}
	cfg.LabHours = hours
	return cfg, nil
}

func labHours() (lifecycle.LabHours, error) {
	h := lifecycle.DefaultLabHours()
	if s := os.Getenv("LAB_OPEN"); s != "" {
		c, err := lifecycle.ParseClock(s)
		if err != nil {
			return h, fmt.Errorf("LAB_OPEN: %w", err)
		}
		h.Open = c
	}
	if s := os.Getenv("LAB_CLOSE"); s != "" {
		c, err := lifecycle.ParseClock(s)
		if err != nil {
			return h, fmt.Errorf("LAB_CLOSE: %w", err)
		}
		h.Close = c
	}
	if h.Close <= h.Open {
		return h, fmt.Errorf("lab hours: close %s is not after open %s", h.Close, h.Open)
	}
	// LAB_UNAVAILABLE="-" 表示没有不可用时段
	if s, ok := os.LookupEnv("LAB_UNAVAILABLE"); ok && s != "" {
		if s == "-" {
			h.Unavailable = nil
			return h, nil
		}
		ps, err := lifecycle.ParsePeriods(s)
		if err != nil {
			return h, fmt.Errorf("LAB_UNAVAILABLE: %w", err)
		}
		h.Unavailable = ps
	}
	return h, nil
}

// IsAdminEmail ADMIN_EMAILS 里的邮箱强制为管理员
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

// CORSOrigins WEB_ORIGIN 加上 CORS_ORIGINS 里额外允许的来源
func (c Config) CORSOrigins() []string {
	out := []string{strings.TrimRight(c.WebOrigin, "/")}
	for _, o := range c.ExtraOrigins {
		if o = strings.TrimRight(o, "/"); o != out[0] {
			out = append(out, o)
		}
	}
	return out
}
