package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"account-service/internal/cache"
	"account-service/internal/logging"
	"account-service/internal/model"
	"account-service/internal/pkg/password"
	"account-service/internal/repository"
)

const (
	testSecret   = "test-secret"
	testTokenTTL = 30 * time.Minute
	testPrefix   = "token:"
)

type testEnv struct {
	db       *gorm.DB
	users    *repository.UserRepository
	hasher   *password.Hasher
	redis    *miniredis.Miniredis
	auth     *AuthService
	accounts *AccountService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := repository.NewUserRepository(db)
	hasher := password.NewHasher(bcrypt.MinCost)
	log := logging.Discard()

	return &testEnv{
		db:       db,
		users:    users,
		hasher:   hasher,
		redis:    mr,
		auth:     NewAuthService(users, hasher, cache.NewTokenCache(client, testPrefix), testSecret, testTokenTTL, log),
		accounts: NewAccountService(users, hasher, log),
	}
}

func (e *testEnv) register(t *testing.T, email, username, plain, first, last string, balance int64) *model.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{
		Email:     email,
		Username:  username,
		Password:  plain,
		FirstName: first,
		LastName:  last,
		Balance:   balance,
	})
	require.NoError(t, err)
	return user
}
