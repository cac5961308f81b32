package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PaymentReminderBot/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultUserTTL время жизни записи пользователя в кэше
const DefaultUserTTL = 30 * time.Minute

// UserCache хранит пользователей по идентификатору мессенджера.
// Кэш не является источником истины, сервис сверяет запись с хранилищем
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache создает новый экземпляр UserCache
func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}

	return &UserCache{
		client: client,
		ttl:    ttl,
	}
}

func userKey(externalID int64) string {
	return fmt.Sprintf("user:ext:%d", externalID)
}

// SetUser кэширует пользователя
func (c *UserCache) SetUser(ctx context.Context, user *models.User) error {
	userData, err := json.Marshal(user)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, userKey(user.ExternalID), userData, c.ttl).Err()
}

// GetUser получает пользователя из кэша. Промах возвращает redis.Nil
func (c *UserCache) GetUser(ctx context.Context, externalID int64) (*models.User, error) {
	userData, err := c.client.Get(ctx, userKey(externalID)).Bytes()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(userData, &user); err != nil {
		return nil, err
	}

	return &user, nil
}
