package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrAlreadySubscribed = errors.New("storage: email already subscribed")
	ErrNotConfigured     = errors.New("storage: database not configured")
)

const uniqueViolation = "23505"

// Subscription 邮件订阅
type Subscription struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:320;uniqueIndex" json:"email"`
	SubscribedAt time.Time `gorm:"autoCreateTime" json:"subscribed_at"`
	Source       *string   `gorm:"size:64" json:"source"`
}

// Contribution 项目贡献者，按 order_index 升序展示
type Contribution struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectSlug string    `gorm:"size:128;index" json:"project_slug"`
	Name        string    `gorm:"size:256" json:"name"`
	Role        *string   `gorm:"size:256" json:"role"`
	AvatarURL   string    `gorm:"size:1024" json:"avatar_url"`
	OrderIndex  int       `gorm:"index" json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewsletterSend 每次群发后记一条，Meta 存附加信息（文章地址等）
type NewsletterSend struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	Kind      string            `gorm:"size:32;index" json:"kind"`
	Subject   string            `gorm:"size:512" json:"subject"`
	Sent      int               `json:"sent"`
	Total     int               `json:"total"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb" json:"meta"`
	CreatedAt time.Time         `json:"created_at"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	cacheTTL time.Duration
	log      *zap.Logger
}

func NewStore(dsn, redisAddr string, cacheTTL time.Duration, log *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&Subscription{}, &Contribution{}, &NewsletterSend{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			if log != nil {
				log.Warn("redis ping failed", zap.String("addr", redisAddr), zap.Error(err))
			}
		}
	}

	return New(db, rdb, cacheTTL, log), nil
}

// New 用已有连接构建 Store，rdb 可为 nil（不走缓存）
func New(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{DB: db, Redis: rdb, cacheTTL: cacheTTL, log: log}
}

// Subscribe 写入一条订阅；邮箱已存在时返回 ErrAlreadySubscribed
func (s *Store) Subscribe(ctx context.Context, email, source string) error {
	sub := &Subscription{
		ID:           uuid.NewString(),
		Email:        email,
		SubscribedAt: time.Now().UTC(),
	}
	if source != "" {
		sub.Source = &source
	}

	if err := s.DB.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// ListSubscriberEmails 返回所有非空邮箱
func (s *Store) ListSubscriberEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := s.DB.WithContext(ctx).
		Model(&Subscription{}).
		Where("email <> ?", "").
		Order("subscribed_at ASC").
		Pluck("email", &emails).Error; err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	out := emails[:0]
	for _, e := range emails {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListContributions 按项目返回贡献者列表，并使用 Redis 做简单缓存
func (s *Store) ListContributions(ctx context.Context, projectSlug string) ([]Contribution, error) {
	cacheKey := "contributions:" + projectSlug

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Contribution
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	list := []Contribution{}
	if err := s.DB.WithContext(ctx).
		Where("project_slug = ?", projectSlug).
		Order("order_index ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list contributions %q: %w", projectSlug, err)
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, bs, s.cacheTTL).Err(); err != nil {
				s.log.Debug("cache contributions failed", zap.String("project", projectSlug), zap.Error(err))
			}
		}
	}
	return list, nil
}

// RecordSend 记录一次群发结果；失败只记日志，不影响调用方
func (s *Store) RecordSend(ctx context.Context, send *NewsletterSend) {
	if send.ID == "" {
		send.ID = uuid.NewString()
	}
	silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	if err := silent.WithContext(ctx).Create(send).Error; err != nil {
		s.log.Warn("record newsletter send failed", zap.String("kind", send.Kind), zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
