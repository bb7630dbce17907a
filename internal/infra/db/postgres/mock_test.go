//go:build !integration

package postgres

import (
	"context"
	"time"

	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
	red "course-unit-access/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerCourseRepo mocks the database repository that the course decorator wraps.
type mockInnerCourseRepo struct {
	SaveFunc     func(ctx context.Context, tx repository.Tx, course *model.Course) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Course, error)
}

func (m *mockInnerCourseRepo) Save(ctx context.Context, tx repository.Tx, course *model.Course) error {
	return m.SaveFunc(ctx, tx, course)
}
func (m *mockInnerCourseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc  func(ctx context.Context, key string) (string, error)
	SetFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc  func(ctx context.Context, keys ...string) error
	PingFunc func(ctx context.Context) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Close() error                   { return nil }
