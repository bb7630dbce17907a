// Seeds a development catalog and prints an admin token for the local API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"course-unit-access/internal/config"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/infra/api"
	pg "course-unit-access/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminID := flag.String("admin", "seed-admin", "admin identity to mint a token for")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	courses := pg.NewCourseRepo(pool)
	course, err := model.NewCourse("course-demo", "Demo Course", []model.Unit{
		{ID: "unit-1", Title: "Introduction"},
		{ID: "unit-2", Title: "Advanced Topics"},
	})
	if err != nil {
		log.Fatalf("course: %v", err)
	}
	if err := courses.Save(ctx, nil, course); err != nil {
		log.Fatalf("save course: %v", err)
	}
	fmt.Printf("seeded course %q with %d units\n", course.ID, len(course.Units))

	token, err := api.MintAdminToken(cfg.Auth.JWTSecret, *adminID, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("admin token for %s:\n%s\n", *adminID, token)
}
