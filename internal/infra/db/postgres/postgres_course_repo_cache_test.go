//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
)

func TestCourseRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	course := &model.Course{ID: "C1", Title: "Algebra", Units: []model.Unit{{ID: "U1", Title: "Linear Equations"}}}
	courseJSON, _ := json.Marshal(course)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(courseJSON), nil // Simulate cache hit
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerCourseRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
				innerRepoCalled = true // This should not be called
				return nil, nil
			},
		}

		decorator := NewCourseRepoCacheDecorator(mockInnerRepo, mockRedis, time.Hour)

		result, err := decorator.FindByID(ctx, nil, "C1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.ID != "C1" || len(result.Units) != 1 {
			t.Error("did not return the correct course from cache")
		}
	})

	t.Run("FindByID should fall through and populate on miss", func(t *testing.T) {
		var setKey string
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", redis.Nil // Simulate cache miss
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setKey = key
				return nil
			},
		}
		mockInnerRepo := &mockInnerCourseRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
				return course, nil
			},
		}

		decorator := NewCourseRepoCacheDecorator(mockInnerRepo, mockRedis, time.Hour)

		result, err := decorator.FindByID(ctx, nil, "C1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result == nil || result.ID != "C1" {
			t.Error("did not return the course from the inner repository")
		}
		if setKey != "course:C1" {
			t.Errorf("expected the course to be cached under course:C1, got %q", setKey)
		}
	})

	t.Run("Save should invalidate the cache", func(t *testing.T) {
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerCourseRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, course *model.Course) error {
				return nil
			},
		}

		decorator := NewCourseRepoCacheDecorator(mockInnerRepo, mockRedis, time.Hour)

		if err := decorator.Save(ctx, nil, course); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(deletedKeys) != 1 || deletedKeys[0] != "course:C1" {
			t.Fatalf("expected course:C1 to be invalidated, got %v", deletedKeys)
		}
	})
}
