package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"ginkana-service/internal/app"
	"ginkana-service/internal/domain"
	pgstore "ginkana-service/internal/infra/postgres"
	pgmigrations "ginkana-service/internal/infra/postgres/migrations"
	redisstore "ginkana-service/internal/infra/redis"
)

func TestSubmissionFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL, sampleCatalog())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := redisstore.NewCachedStore(redisClient, pgstore.NewStore(pool), redisstore.TTLs{
		Catalog:     time.Hour,
		Roster:      time.Minute,
		Submissions: 5 * time.Second,
	})
	service := app.NewGameService(store, app.NewBlockPlan(2, 1, nil), zerolog.Nop(), app.ServiceConfig{})

	if err := service.RegisterTeam(ctx, "Foxes", "@foxy", []string{"Anna", "Pau"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.RegisterTeam(ctx, "Owls", "foxy", []string{"Mar"}); !errors.Is(err, domain.ErrSubmitterTaken) {
		t.Fatalf("expected submitter-taken, got %v", err)
	}

	outcome, err := service.SubmitAnswer(ctx, "foxy", 1, "Blau")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Points != 10 || outcome.Status != domain.StatusValidated {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if _, err := service.SubmitAnswer(ctx, "foxy", 1, "blue"); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	outcome, err = service.SubmitAnswer(ctx, "foxy", 2, "wrong")
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if outcome.Status != domain.StatusIncorrect {
		t.Fatalf("expected incorrect, got %+v", outcome)
	}

	ranking, err := service.Ranking(ctx)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 1 || ranking[0].Points != 10 || ranking[0].Answered != 2 || ranking[0].Correct != 1 {
		t.Fatalf("unexpected ranking: %+v", ranking)
	}
	if ranking[0].FinishedAt.IsZero() {
		t.Fatalf("both catalog challenges answered, expected a finish time")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "hunt",
			"POSTGRES_PASSWORD": "huntpass",
			"POSTGRES_DB":       "huntdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://hunt:huntpass@%s:%s/huntdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string, catalog []domain.Challenge) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, ch := range catalog {
		_, err := db.ExecContext(ctx,
			`INSERT INTO challenges (id, title, description, type, points, answer) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
			ch.ID, ch.Title, ch.Description, string(ch.Type), ch.Points, ch.Answer)
		if err != nil {
			t.Fatalf("insert challenge %d: %v", ch.ID, err)
		}
	}
}

func sampleCatalog() []domain.Challenge {
	return []domain.Challenge{
		{ID: 1, Title: "River colour", Description: "What colour is the river sign?", Type: domain.TypeTrivia, Points: 10, Answer: "blue|blau"},
		{ID: 2, Title: "Fountain code", Description: "Scan the QR at the old fountain", Type: domain.TypeQR, Points: 10, Answer: "FONT-2025"},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
