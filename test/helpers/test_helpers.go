package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/buildflow/messaging/internal/repository"
	"github.com/buildflow/messaging/pkg/pg"
	"github.com/buildflow/messaging/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.CompanyEntity{},
		&repository.ClientEntity{},
		&repository.ConsentEntity{},
		&repository.TemplateEntity{},
		&repository.MessageLogEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCompany(t *testing.T, db *pg.DB, id int64, name, providerNumber string) *repository.CompanyEntity {
	ctx := context.Background()
	company := &repository.CompanyEntity{
		ID:             id,
		Name:           name,
		APIKey:         RandomAPIKey(),
		ProviderNumber: providerNumber,
	}
	err := db.Write(ctx).Create(company).Error
	require.NoError(t, err)
	return company
}

func CreateTestClient(t *testing.T, db *pg.DB, companyID int64, name, phone string) *repository.ClientEntity {
	ctx := context.Background()
	client := &repository.ClientEntity{
		CompanyID:   companyID,
		Name:        name,
		PhoneNumber: phone,
	}
	err := db.Write(ctx).Create(client).Error
	require.NoError(t, err)
	return client
}

func CreateTestConsent(t *testing.T, db *pg.DB, companyID, clientID int64, phone, state string) *repository.ConsentEntity {
	ctx := context.Background()
	now := time.Now()
	rec := &repository.ConsentEntity{
		CompanyID:   companyID,
		ClientID:    clientID,
		PhoneNumber: phone,
		State:       state,
	}
	if state == "granted" {
		rec.ConsentDate = &now
	}
	if state == "opted_out" {
		rec.OptedOutDate = &now
	}
	err := db.Write(ctx).Create(rec).Error
	require.NoError(t, err)
	return rec
}

func CreateTestTemplate(t *testing.T, db *pg.DB, companyID *int64, name, content string) *repository.TemplateEntity {
	ctx := context.Background()
	tpl := &repository.TemplateEntity{
		CompanyID:    companyID,
		Name:         name,
		Content:      content,
		TemplateType: "custom",
		IsActive:     true,
	}
	err := db.Write(ctx).Create(tpl).Error
	require.NoError(t, err)
	return tpl
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func RandomAPIKey() string {
	return "test-api-key-" + time.Now().Format("20060102150405.000000000")
}

func Ptr[T any](v T) *T {
	return &v
}
