package build_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hoclieu/examgen/internal/build"
	"github.com/hoclieu/examgen/internal/exam"
)

// startPostgres spins up a throwaway PostgreSQL container, skipping the
// test when Docker is not available. testcontainers panics rather than
// returning an error when it cannot find a Docker endpoint at all, so
// the panic is folded into the skip.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			t.Skipf("skipping: docker not available: %v", r)
		}
	}()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("examgen"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("skipping: could not start postgres container: %v", err)
	}
	testcontainers.CleanupContainer(t, ctr)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	store, err := build.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	res := &build.Result{
		Title:    "ĐỀ KIỂM TRA TIN HỌC LỚP 4 HỌC KÌ I",
		Template: "tin4-hk1",
		Scope:    exam.Scope{Grade: 4, Subject: "Tin học", Semester: "HK1"},
		Seed:  exam.DefaultSeed,
		Slots: []exam.Slot{
			{QNo: 1, Topic: "Chủ đề A", Lesson: "Bài 1", QType: exam.MCQ,
				Level: exam.LevelKnow, Points: 0.5, QuestionID: "q1"},
			{QNo: 2, Topic: "Chủ đề A", Lesson: "Bài 1", QType: exam.Essay,
				Level: exam.LevelApply, Points: 1.0,
				Stem: "Em hãy nêu các bước tắt máy.", Answer: "Theo SGK."},
		},
		Warnings: []string{"Thiếu câu: Chủ đề A | Bài 1 | ESSAY | M3 (câu 2)"},
	}

	id, err := store.SaveBuild(ctx, res)
	if err != nil {
		t.Fatalf("SaveBuild() error = %v", err)
	}

	got, err := store.GetBuild(ctx, id)
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if got.Title != res.Title || got.Seed != res.Seed {
		t.Errorf("got %q seed %d", got.Title, got.Seed)
	}
	if got.Template != res.Template {
		t.Errorf("template = %q, want %q", got.Template, res.Template)
	}
	if got.Scope != res.Scope {
		t.Errorf("scope = %+v", got.Scope)
	}
	if len(got.Slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(got.Slots))
	}
	if got.Slots[0].QuestionID != "q1" {
		t.Errorf("slot 1 = %+v", got.Slots[0])
	}
	if got.Slots[1].Stem == "" {
		t.Errorf("synthesized content lost: %+v", got.Slots[1])
	}
	if len(got.Warnings) != 1 {
		t.Errorf("warnings = %v", got.Warnings)
	}

	list, err := store.ListBuilds(ctx, 10)
	if err != nil {
		t.Fatalf("ListBuilds() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Warnings != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestPostgresStore_NilPool(t *testing.T) {
	if _, err := build.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should fail")
	}
}
