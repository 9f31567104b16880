package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/mediadb/internal/adapters/sqlite"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
)

func TestServiceRepository_ListDefaults(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewServiceRepository(testDB)

	list, err := repo.List(context.Background(), false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != len(services.Defaults()) {
		t.Fatalf("List returned %d services, want %d", len(list), len(services.Defaults()))
	}
	for i, want := range services.Defaults() {
		if list[i].Service.Key != want.Key || list[i].Service.Type != want.Type {
			t.Errorf("service %d = %s/%s, want %s/%s", i, list[i].Service.Key, list[i].Service.Type, want.Key, want.Type)
		}
	}
}

func TestServiceRepository_ApplyPlan(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewServiceRepository(testDB)

	remote := services.GenerateService("remote", services.TagRepository, "public tag repository")
	if err := repo.ApplyPlan(ctx, services.RegistryPlan{Added: []services.Service{remote}}); err != nil {
		t.Fatalf("ApplyPlan(add) failed: %v", err)
	}

	got, err := repo.GetByKey(ctx, "remote")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.Service.Options.Port != services.DefaultRepositoryPort {
		t.Errorf("port = %d, want %d", got.Service.Options.Port, services.DefaultRepositoryPort)
	}

	if err := repo.ApplyPlan(ctx, services.RegistryPlan{Removed: []services.Service{remote}}); err != nil {
		t.Fatalf("ApplyPlan(remove) failed: %v", err)
	}
	active, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	all, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != len(active)+1 {
		t.Errorf("removed service should be kept inactive: %d active, %d total", len(active), len(all))
	}

	remote.Name = "renamed"
	if err := repo.ApplyPlan(ctx, services.RegistryPlan{Reactivated: []services.Service{remote}}); err != nil {
		t.Fatalf("ApplyPlan(reactivate) failed: %v", err)
	}
	got, err = repo.GetByKey(ctx, "remote")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if !got.Active || got.Service.Name != "renamed" {
		t.Errorf("reactivated service = %+v", got)
	}

	version, err := repo.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 3 {
		t.Errorf("Version = %d, want 3", version)
	}
}

func TestServiceRepository_EmptyPlanKeepsVersion(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewServiceRepository(testDB)

	if err := repo.ApplyPlan(ctx, services.RegistryPlan{}); err != nil {
		t.Fatalf("ApplyPlan failed: %v", err)
	}
	version, err := repo.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 0 {
		t.Errorf("Version = %d, want 0", version)
	}
}

func TestServiceRepository_TagFilter(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewServiceRepository(testDB)

	filter, err := repo.GetTagFilter(ctx, services.LocalTagsKey)
	if err != nil {
		t.Fatalf("GetTagFilter failed: %v", err)
	}
	if !filter.IsEmpty() {
		t.Errorf("unset filter should be empty")
	}

	filter = tagfilter.New()
	filter.SetRule("series:", tagfilter.Blacklist)
	if err := repo.SetTagFilter(ctx, services.LocalTagsKey, filter); err != nil {
		t.Fatalf("SetTagFilter failed: %v", err)
	}

	got, err := repo.GetTagFilter(ctx, services.LocalTagsKey)
	if err != nil {
		t.Fatalf("GetTagFilter failed: %v", err)
	}
	if got.Allowed("series:cars") || !got.Allowed("car") {
		t.Errorf("stored filter does not censor series tags: %v", got.Rules())
	}

	if err := repo.SetTagFilter(ctx, services.LocalTagsKey, tagfilter.New()); err != nil {
		t.Fatalf("SetTagFilter(clear) failed: %v", err)
	}
	got, err = repo.GetTagFilter(ctx, services.LocalTagsKey)
	if err != nil {
		t.Fatalf("GetTagFilter failed: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("cleared filter = %v, want empty", got.Rules())
	}
}
