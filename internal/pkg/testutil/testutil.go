// Package testutil provides throwaway databases and Redis servers for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/cache"
	"github.com/assettracer/assettracer/internal/pkg/database"
)

// NewDB opens a private in-memory SQLite database with the full schema and
// installs it as the shared connection. A single connection makes concurrent
// transactions queue up like they would behind the Postgres row lock.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	prev := database.GetDB()
	database.SetDB(db)
	t.Cleanup(func() {
		database.SetDB(prev)
		_ = sqlDB.Close()
	})
	return db
}

// NewRedis starts a miniredis server and installs a client for it as the
// shared cache client.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		_ = client.Close()
		cache.SetClient(nil)
	})
	return mr, client
}

// SeedOrganization creates an owner and an organization on the given tier.
func SeedOrganization(t *testing.T, db *gorm.DB, tier string) (*models.Organization, *models.User) {
	t.Helper()
	user := &models.User{Name: "Owner", Email: uuid.NewString() + "@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, db.Create(user).Error)
	org := &models.Organization{Name: "Acme", Tier: tier, OwnerID: user.ID}
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, db.Create(&models.OrganizationMember{OrganizationID: org.ID, UserID: user.ID, Role: models.MemberRoleOwner}).Error)
	settings, err := models.GetOrCreateUserSettings(db, user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(settings).Update("active_organization_id", org.ID).Error)
	return org, user
}
