package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/ports/primary"
)

func TestApplyContentUpdates_PendOnLocalTagsSkipped(t *testing.T) {
	e := newTestEngine(t)
	hash := e.importPNG(t, 1)

	result := e.apply(t, content.Batch{
		services.LocalTagsKey: {
			content.NewMappingUpdate(content.Add, "car", hash),
			content.NewMappingUpdate(content.Pend, "dog", hash),
		},
	})

	if result.Applied != 1 {
		t.Errorf("Applied = %d, want 1", result.Applied)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	media, err := e.search.MediaResults(context.Background(), []files.Hash{hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if len(media) != 1 {
		t.Fatalf("got %d media results, want 1", len(media))
	}
	local := media[0].Tags[services.LocalTagsKey]
	if local == nil || len(local.Current) != 1 || local.Current[0] != "car" {
		t.Errorf("local tags = %+v, want current [car]", local)
	}
	if len(local.Pending) != 0 {
		t.Errorf("local pending tags = %v, want none", local.Pending)
	}
}

func TestApplyContentUpdates_InvalidRatingRollsBack(t *testing.T) {
	e := newTestEngine(t)
	hash := e.importPNG(t, 1)
	like := e.addService(t, services.LocalRatingLike, "favourites")

	half := 0.5
	_, err := e.content.ApplyContentUpdates(context.Background(), content.Batch{
		services.LocalTagsKey: {content.NewMappingUpdate(content.Add, "car", hash)},
		like.Key:              {content.NewRatingUpdate(&half, hash)},
	})
	if !errors.Is(err, errs.ErrInvalidContent) {
		t.Fatalf("error = %v, want ErrInvalidContent", err)
	}

	media, err := e.search.MediaResults(context.Background(), []files.Hash{hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if local := media[0].Tags[services.LocalTagsKey]; local != nil && len(local.Current) > 0 {
		t.Errorf("local tags = %v, want none after rejected batch", local.Current)
	}

	one := 1.0
	e.apply(t, content.Batch{like.Key: {content.NewRatingUpdate(&one, hash)}})
	media, err = e.search.MediaResults(context.Background(), []files.Hash{hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if got, ok := media[0].Ratings[like.Key]; !ok || got != 1 {
		t.Errorf("like rating = %v (set %v), want 1", got, ok)
	}
}

func TestApplyContentUpdates_UnknownService(t *testing.T) {
	e := newTestEngine(t)
	hash := e.importPNG(t, 1)

	_, err := e.content.ApplyContentUpdates(context.Background(), content.Batch{
		services.Key("missing"): {content.NewMappingUpdate(content.Add, "car", hash)},
	})
	if !errors.Is(err, errs.ErrInvalidContent) {
		t.Errorf("error = %v, want ErrInvalidContent", err)
	}
}

func TestApplyContentUpdates_DeleteFromTrashRemovesBytes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hash := e.importPNG(t, 1)

	e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Delete, hash)}})

	has, err := e.store.Has(ctx, hash, files.MimePNG)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Fatal("trashed file lost its bytes")
	}

	e.apply(t, content.Batch{services.TrashKey: {content.NewFileUpdate(content.Delete, hash)}})

	has, err = e.store.Has(ctx, hash, files.MimePNG)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Error("file deleted from trash still has bytes on disk")
	}

	status, err := e.imports.HashStatus(ctx, files.HashSHA256, hash[:])
	if err != nil {
		t.Fatalf("HashStatus failed: %v", err)
	}
	if status.Status != files.StatusDeleted {
		t.Errorf("HashStatus = %v, want deleted", status.Status)
	}
}

func TestApplyContentUpdates_ByteRemovalInsideWriteJob(t *testing.T) {
	e := newTestEngine(t)
	hash := e.importPNG(t, 2)
	e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Delete, hash)}})

	store := e.trackByteWrites()
	e.apply(t, content.Batch{services.TrashKey: {content.NewFileUpdate(content.Delete, hash)}})

	_, removes := store.recorded()
	if len(removes) != 1 {
		t.Fatalf("got %d removals, want 1", len(removes))
	}
	// no job had finished yet, so the removal ran inside the delete's own job
	if removes[0] != 0 {
		t.Errorf("removal ran after %d finished write jobs, want 0", removes[0])
	}
	if got := store.finished.Load(); got != 1 {
		t.Errorf("finished write jobs = %d, want 1", got)
	}
}

func TestApplyContentUpdates_PurgeRacingUndelete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for seed := uint8(40); seed < 50; seed++ {
		path := writeTestPNG(t, 200, seed)
		result, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
		if err != nil {
			t.Fatalf("ImportFile failed: %v", err)
		}
		hash := result.Hash
		e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Delete, hash)}})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := e.content.ApplyContentUpdates(ctx, content.Batch{
				services.TrashKey: {content.NewFileUpdate(content.Delete, hash)},
			}); err != nil {
				t.Errorf("ApplyContentUpdates failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := e.imports.ImportFile(ctx, primary.ImportRequest{
				Path:          path,
				ImportOptions: primary.ImportOptions{AllowDeleted: true},
			}); err != nil {
				t.Errorf("ImportFile failed: %v", err)
			}
		}()
		wg.Wait()

		status, err := e.imports.HashStatus(ctx, files.HashSHA256, hash[:])
		if err != nil {
			t.Fatalf("HashStatus failed: %v", err)
		}
		has, err := e.store.Has(ctx, hash, files.MimePNG)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if status.Status == files.StatusRedundant && !has {
			t.Errorf("seed %d: file is current but its bytes are gone", seed)
		}
	}
}

func TestApplyContentUpdates_ArchiveAndInbox(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hash := e.importPNG(t, 1)

	e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Archive, hash)}})
	media, err := e.search.MediaResults(ctx, []files.Hash{hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if media[0].Inbox {
		t.Error("file still in inbox after archive")
	}

	e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Inbox, hash)}})
	media, err = e.search.MediaResults(ctx, []files.Hash{hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if !media[0].Inbox {
		t.Error("file not in inbox after inbox")
	}

	_, err = e.content.ApplyContentUpdates(ctx, content.Batch{
		services.CombinedFilesKey: {content.NewFileUpdate(content.Archive, hash)},
	})
	if !errors.Is(err, errs.ErrInvalidContent) {
		t.Errorf("archive on combined files error = %v, want ErrInvalidContent", err)
	}
}

func TestPending_RepositoryGroups(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a := e.importPNG(t, 1)
	b := e.importPNG(t, 2)
	repo := e.addService(t, services.TagRepository, "public tags")

	e.apply(t, content.Batch{repo.Key: {content.NewMappingUpdate(content.Add, "old", a)}})
	e.apply(t, content.Batch{
		repo.Key: {
			content.NewMappingUpdate(content.Pend, "dog", a),
			content.NewMappingUpdate(content.Pend, "cat", a, b),
			content.Update{Type: content.Mappings, Action: content.Petition, Tag: "old", Reason: "wrong", Hashes: []files.Hash{a}},
		},
	})

	pending, err := e.content.Pending(ctx, repo.Key)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending.PendingMappings) != 2 {
		t.Fatalf("got %d pending groups, want 2", len(pending.PendingMappings))
	}
	if pending.PendingMappings[0].Tag != "cat" || len(pending.PendingMappings[0].Hashes) != 2 {
		t.Errorf("first group = %s with %d hashes, want cat with 2", pending.PendingMappings[0].Tag, len(pending.PendingMappings[0].Hashes))
	}
	if pending.PendingMappings[1].Tag != "dog" || len(pending.PendingMappings[1].Hashes) != 1 {
		t.Errorf("second group = %s with %d hashes, want dog with 1", pending.PendingMappings[1].Tag, len(pending.PendingMappings[1].Hashes))
	}
	if len(pending.PetitionedMappings) != 1 {
		t.Fatalf("got %d petition groups, want 1", len(pending.PetitionedMappings))
	}
	if got := pending.PetitionedMappings[0]; got.Tag != "old" || got.Reason != "wrong" {
		t.Errorf("petition = %s (%s), want old (wrong)", got.Tag, got.Reason)
	}

	counts, err := e.content.NumsPending(ctx)
	if err != nil {
		t.Fatalf("NumsPending failed: %v", err)
	}
	c, ok := counts[repo.Key]
	if !ok {
		t.Fatalf("no counts for %s", repo.Key)
	}
	if c.PendingMappings != 3 || c.PetitionedMappings != 1 {
		t.Errorf("counts = %+v, want 3 pending and 1 petitioned mappings", c)
	}
	if c.Total() != 4 {
		t.Errorf("Total() = %d, want 4", c.Total())
	}
	if _, ok := counts[services.LocalTagsKey]; ok {
		t.Error("local tags should not report pending counts")
	}
}

func TestDownloads_PendToCombinedLocal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	hash := e.importPNG(t, 1)

	e.apply(t, content.Batch{services.LocalFilesKey: {content.NewFileUpdate(content.Delete, hash)}})
	e.apply(t, content.Batch{services.TrashKey: {content.NewFileUpdate(content.Delete, hash)}})

	downloads, err := e.content.Downloads(ctx)
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	if len(downloads) != 0 {
		t.Fatalf("got %d downloads before pend, want 0", len(downloads))
	}

	e.apply(t, content.Batch{services.CombinedLocalKey: {content.NewFileUpdate(content.Pend, hash)}})

	downloads, err = e.content.Downloads(ctx)
	if err != nil {
		t.Fatalf("Downloads failed: %v", err)
	}
	if len(downloads) != 1 || downloads[0] != hash {
		t.Errorf("Downloads = %v, want [%s]", downloads, hash)
	}
}
