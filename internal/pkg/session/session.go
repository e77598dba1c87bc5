package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/assettracer/assettracer/internal/pkg/cache"
	"github.com/assettracer/assettracer/internal/pkg/env"
)

// Session keys. The organization tier is never stored here; it is read from
// the database on every request that needs it.
const (
	KeyUserID         = "user_id"
	KeyOrganizationID = "organization_id"
)

var sessionStore *session.Store

// RedisConfig derives storage settings for the given Redis database from the
// shared cache client.
func RedisConfig(database int) redis.Config {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}
	return redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: database,
		Reset:    false,
	}
}

// NewSessionStore creates the session store on Redis database 1 (cache uses DB 0)
func NewSessionStore() *session.Store {
	return NewSessionStoreWithStorage(redis.New(RedisConfig(1)))
}

// NewSessionStoreWithStorage creates and installs a store on any fiber storage.
func NewSessionStoreWithStorage(storage fiber.Storage) *session.Store {
	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     time.Duration(env.GetEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		KeyLookup:      "cookie:session_id",
	})
	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Login regenerates the session id and stores the user and active organization.
func Login(c *fiber.Ctx, userID, organizationID uint) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(KeyUserID, userID)
	sess.Set(KeyOrganizationID, organizationID)
	return sess.Save()
}

// Logout destroys the session.
func Logout(c *fiber.Ctx) error {
	if sessionStore == nil {
		return nil
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// Identity returns the user and organization stored in the session, zero
// values when anonymous.
func Identity(c *fiber.Ctx) (userID, organizationID uint) {
	if sessionStore == nil {
		return 0, 0
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return 0, 0
	}
	if v, ok := sess.Get(KeyUserID).(uint); ok {
		userID = v
	}
	if v, ok := sess.Get(KeyOrganizationID).(uint); ok {
		organizationID = v
	}
	return userID, organizationID
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(c *fiber.Ctx, key string, value interface{}) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a string value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	if strValue, ok := sess.Get(key).(string); ok {
		return strValue
	}
	return ""
}
