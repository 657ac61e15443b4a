package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"weekly-trivia/internal/api"
	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/infra/postgres"
	infraredis "weekly-trivia/internal/infra/redis"
	"weekly-trivia/internal/triviatest"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRoundPersistsAcrossStores(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applied, err := postgres.Migrate(ctx, pgURL)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected one migration applied, got %v", applied)
	}
	if again, err := postgres.Migrate(ctx, pgURL); err != nil || len(again) != 0 {
		t.Fatalf("expected migrations to be idempotent, got %v %v", again, err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	journal := postgres.NewJournal(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	creds := infraredis.NewCredentialStore(redisClient, time.Hour)
	cache := infraredis.NewPanelCache(redisClient, 5*time.Minute)

	srv := triviatest.New(t, triviatest.Question{
		QID:          "q-multi",
		Type:         domain.FillBlankMultiple,
		Stem:         "Name the primary colors of light.",
		TimeLimitSec: 30,
		Answers:      []string{"red", "green", "blue"},
		MaxAnswers:   2,
	})
	client, err := api.New(srv.BaseURL(), api.WithCredentialStore(creds, "it"))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	game := app.NewGame(client,
		app.WithProfile("it"),
		app.WithJournal(journal),
		app.WithPanelCache(cache),
	)
	defer game.Close()

	if _, err := game.Session.Login(ctx, "alice", "1234"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := creds.Load(ctx, "it"); err != nil {
		t.Fatalf("expected credentials in redis: %v", err)
	}

	if _, err := game.Rounds.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, answer := range []string{"blue", "red"} {
		if err := game.Rounds.SetText(answer); err != nil {
			t.Fatalf("set text: %v", err)
		}
		if _, err := game.Rounds.Submit(ctx); err != nil {
			t.Fatalf("submit %q: %v", answer, err)
		}
	}
	s := game.Store.Snapshot()
	if s.Phase != app.PhaseResult || s.Result == nil || !s.Result.Correct {
		t.Fatalf("expected a correct result, got %+v", s)
	}
	if err := game.Panels.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	var entries []domain.JournalEntry
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err = journal.Recent(ctx, "it", 10)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if len(entries) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(entries) != 1 || entries[0].QID != "q-multi" || strings.Join(entries[0].Answers, ",") != "blue,red" {
		t.Fatalf("unexpected journal: %+v", entries)
	}

	panels, err := cache.LoadPanels(ctx, "it")
	if err != nil {
		t.Fatalf("load panels: %v", err)
	}
	if len(panels.Leaderboard) != 1 || panels.Leaderboard[0].Username != "alice" {
		t.Fatalf("unexpected cached leaderboard: %+v", panels.Leaderboard)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "trivia"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/trivia?sslmode=disable", host, port.Port())
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
