package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	LogLevel       string
	LogDevelopment bool

	// 站点信息，用于邮件模板与 OG 图
	SiteBaseURL  string
	PersonName   string
	PersonRole   string
	PersonAvatar string

	ResendAPIKey        string
	NewsletterFromEmail string
	CronSecret          string
	// 为空时不在进程内调度周报，由外部 cron 调用 /api/newsletter/weekly
	WeeklyDigestCron string

	ContributionsCacheTTL time.Duration
}

// Load 读取环境变量；若当前目录存在 .env 则先加载（不覆盖已有变量）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:               getEnv("APP_PORT", "9000"),
		PostgresDSN:           getEnv("POSTGRES_DSN", ""),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogDevelopment:        getBool("LOG_DEVELOPMENT", false),
		SiteBaseURL:           getEnv("SITE_BASE_URL", "https://example.com"),
		PersonName:            getEnv("PERSON_NAME", "Portfolio"),
		PersonRole:            getEnv("PERSON_ROLE", "Software Engineer"),
		PersonAvatar:          getEnv("PERSON_AVATAR", "/images/avatar.jpg"),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		NewsletterFromEmail:   getEnv("NEWSLETTER_FROM_EMAIL", "onboarding@resend.dev"),
		CronSecret:            getEnv("CRON_SECRET", getEnv("NEWSLETTER_CRON_SECRET", "")),
		WeeklyDigestCron:      getEnv("WEEKLY_DIGEST_CRON", ""),
		ContributionsCacheTTL: getDuration("CONTRIBUTIONS_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// EmailConfigured 是否配置了 Resend
func (c *Config) EmailConfigured() bool {
	return c.ResendAPIKey != ""
}

// DatabaseConfigured 是否配置了 Postgres
func (c *Config) DatabaseConfigured() bool {
	return c.PostgresDSN != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
