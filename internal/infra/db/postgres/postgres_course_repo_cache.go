package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
	"course-unit-access/internal/infra/metrics"
	red "course-unit-access/internal/infra/redis"
)

var _ repository.CourseRepository = (*courseRepoCacheDecorator)(nil)

// courseRepoCacheDecorator caches catalog reads. Unit membership is checked
// at issuance and again at every redemption, so the course read model is a
// hot path worth caching.
type courseRepoCacheDecorator struct {
	inner repository.CourseRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCourseRepoCacheDecorator(inner repository.CourseRepository, cache red.RedisClient, ttl time.Duration) repository.CourseRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &courseRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *courseRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	key := fmt.Sprintf("course:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("course", "hit")
		var course model.Course
		if json.Unmarshal([]byte(val), &course) == nil {
			return &course, nil
		}
	}
	// A cold or broken cache degrades to the inner repo.
	metrics.IncCacheRequest("course", "miss")
	course, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if course != nil {
		bytes, _ := json.Marshal(course)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return course, nil
}

// Save invalidates the cached course before writing through.
func (d *courseRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, course *model.Course) error {
	d.cache.Del(ctx, fmt.Sprintf("course:%s", course.ID))
	return d.inner.Save(ctx, tx, course)
}
