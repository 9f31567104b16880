package app

import (
	"context"
	"crypto/md5"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/ports/primary"
	"github.com/example/mediadb/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure partialProber implements the interface
var _ secondary.MediaProber = (*partialProber)(nil)

// partialProber reports a png whose probe fails halfway.
type partialProber struct{}

func (p *partialProber) DetectMime(ctx context.Context, path string) (string, error) {
	return files.MimePNG, nil
}

func (p *partialProber) Probe(ctx context.Context, path, mime string) (files.Metadata, error) {
	return files.Metadata{Width: files.IntPtr(200)}, errors.New("truncated stream")
}

// ============================================================================
// Tests
// ============================================================================

func TestImportFile_NewThenRedundant(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeTestPNG(t, 200, 1)

	first, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if first.Status != files.StatusSuccessfulAndNew {
		t.Fatalf("status = %v (%s), want successful and new", first.Status, first.Note)
	}
	if first.Note != "" {
		t.Errorf("note = %q, want empty", first.Note)
	}
	if has, _ := e.store.Has(ctx, first.Hash, files.MimePNG); !has {
		t.Error("bytes not copied into the client file store")
	}

	second, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if second.Status != files.StatusRedundant {
		t.Errorf("status = %v, want redundant", second.Status)
	}
	if second.Hash != first.Hash {
		t.Errorf("hash = %s, want %s", second.Hash, first.Hash)
	}
	if second.Note != files.NoteRedundant {
		t.Errorf("note = %q, want %q", second.Note, files.NoteRedundant)
	}
}

func TestImportFiles_Batches(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	paths := []string{
		writeTestPNG(t, 200, 1),
		writeTestPNG(t, 200, 1), // same bytes as the first
		writeTestPNG(t, 200, 2),
		writeTestPNG(t, 200, 3),
		filepath.Join(t.TempDir(), "missing.png"),
	}

	results, err := e.imports.ImportFiles(ctx, paths, primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportFiles failed: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}

	want := []files.ImportStatus{
		files.StatusSuccessfulAndNew,
		files.StatusRedundant,
		files.StatusSuccessfulAndNew,
		files.StatusSuccessfulAndNew,
		files.StatusError,
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %s, want %s", i, r.Path, paths[i])
		}
		if r.Status != want[i] {
			t.Errorf("results[%d].Status = %v (%s), want %v", i, r.Status, r.Note, want[i])
		}
	}
	if results[4].Note == "" {
		t.Error("error result has no note")
	}

	ids, err := e.search.ResolveFileIDs(ctx, everything(services.LocalFilesKey))
	if err != nil {
		t.Fatalf("ResolveFileIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("stored %d files, want 3", len(ids))
	}
}

func TestImportFile_DeletedAndUndeleted(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeTestPNG(t, 200, 7)
	hash := e.importPNG(t, 7)

	if _, err := e.content.ApplyContentUpdates(ctx, content.Batch{
		services.LocalFilesKey: {content.NewFileUpdate(content.Delete, hash)},
	}); err != nil {
		t.Fatalf("ApplyContentUpdates failed: %v", err)
	}

	deleted, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if deleted.Status != files.StatusDeleted {
		t.Errorf("status = %v, want deleted", deleted.Status)
	}
	if deleted.Hash != hash {
		t.Errorf("hash = %s, want %s", deleted.Hash, hash)
	}
	if deleted.Note != files.NoteDeleted {
		t.Errorf("note = %q, want %q", deleted.Note, files.NoteDeleted)
	}

	undeleted, err := e.imports.ImportFile(ctx, primary.ImportRequest{
		Path:          path,
		ImportOptions: primary.ImportOptions{AllowDeleted: true},
	})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if undeleted.Status != files.StatusSuccessfulAndNew {
		t.Errorf("status = %v (%s), want successful and new", undeleted.Status, undeleted.Note)
	}

	status, err := e.imports.HashStatus(ctx, files.HashSHA256, hash[:])
	if err != nil {
		t.Fatalf("HashStatus failed: %v", err)
	}
	if status.Status != files.StatusRedundant {
		t.Errorf("hash status = %v, want redundant", status.Status)
	}
}

func TestImportFile_BytesWrittenInsideWriteJob(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	store := e.trackByteWrites()

	hash := e.importPNG(t, 11)
	if err := os.Remove(e.store.Path(hash, files.MimePNG)); err != nil {
		t.Fatalf("failed to drop stored bytes: %v", err)
	}
	if _, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: writeTestPNG(t, 200, 11)}); err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	// each put ran inside its job, before that job's completion was counted
	puts, _ := store.recorded()
	want := []int64{0, 1}
	if len(puts) != len(want) {
		t.Fatalf("puts = %v, want %v", puts, want)
	}
	for i := range want {
		if puts[i] != want[i] {
			t.Errorf("put %d ran after %d finished write jobs, want %d", i, puts[i], want[i])
		}
	}
}

func TestImportFile_RestoresMissingBytes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := writeTestPNG(t, 200, 9)
	hash := e.importPNG(t, 9)

	if err := os.Remove(e.store.Path(hash, files.MimePNG)); err != nil {
		t.Fatalf("failed to remove stored bytes: %v", err)
	}

	result, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if result.Status != files.StatusRedundant {
		t.Errorf("status = %v, want redundant", result.Status)
	}
	if !strings.Contains(result.Note, files.NoteRestored) {
		t.Errorf("note = %q, want it to mention the restore", result.Note)
	}
	if has, _ := e.store.Has(ctx, hash, files.MimePNG); !has {
		t.Error("bytes were not restored")
	}
}

func TestImportFile_MetadataFailureKeepsFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.imports.prober = &partialProber{}

	result, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: writeTestPNG(t, 200, 4)})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if result.Status != files.StatusSuccessfulAndNew {
		t.Fatalf("status = %v (%s), want successful and new", result.Status, result.Note)
	}

	media, err := e.search.MediaResults(ctx, []files.Hash{result.Hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if len(media) != 1 || media[0].Info == nil {
		t.Fatalf("media results = %v, want one described file", media)
	}
	info := media[0].Info
	if info.Width == nil || *info.Width != 200 {
		t.Errorf("Width = %v, want the partial 200", info.Width)
	}
	if info.Height != nil {
		t.Errorf("Height = %v, want nil", *info.Height)
	}
}

func TestImportFile_ArchiveOption(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.imports.ImportFile(ctx, primary.ImportRequest{
		Path:          writeTestPNG(t, 200, 5),
		ImportOptions: primary.ImportOptions{Archive: true},
	})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	media, err := e.search.MediaResults(ctx, []files.Hash{result.Hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	if len(media) != 1 {
		t.Fatalf("got %d media results, want 1", len(media))
	}
	if media[0].Inbox {
		t.Error("archived import landed in the inbox")
	}
}

func TestImportFile_TextMetadata(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("four words right here"), 0o644); err != nil {
		t.Fatalf("failed to write text file: %v", err)
	}

	result, err := e.imports.ImportFile(ctx, primary.ImportRequest{Path: path})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}

	media, err := e.search.MediaResults(ctx, []files.Hash{result.Hash})
	if err != nil {
		t.Fatalf("MediaResults failed: %v", err)
	}
	info := media[0].Info
	if info.Mime != files.MimeText {
		t.Errorf("Mime = %s, want %s", info.Mime, files.MimeText)
	}
	if info.NumWords == nil || *info.NumWords != 4 {
		t.Errorf("NumWords = %v, want 4", info.NumWords)
	}
}

func TestHashStatus(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	path := writeTestPNG(t, 200, 6)
	hash := e.importPNG(t, 6)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read png: %v", err)
	}
	digest := md5.Sum(data)
	unknown := md5.Sum([]byte("never imported"))

	tests := []struct {
		name       string
		hashType   files.HashType
		digest     []byte
		wantStatus files.ImportStatus
		wantHash   bool
	}{
		{"sha256 of stored file", files.HashSHA256, hash[:], files.StatusRedundant, true},
		{"md5 of stored file", files.HashMD5, digest[:], files.StatusRedundant, true},
		{"unknown md5", files.HashMD5, unknown[:], files.StatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := e.imports.HashStatus(ctx, tt.hashType, tt.digest)
			if err != nil {
				t.Fatalf("HashStatus failed: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", status.Status, tt.wantStatus)
			}
			if (status.Hash != nil) != tt.wantHash {
				t.Errorf("Hash = %v, want set = %v", status.Hash, tt.wantHash)
			}
			if tt.wantHash && *status.Hash != hash {
				t.Errorf("Hash = %s, want %s", status.Hash, hash)
			}
		})
	}

	if _, err := e.imports.HashStatus(ctx, files.HashSHA1, []byte{1, 2}); !errors.Is(err, errs.ErrInvalidContent) {
		t.Errorf("short digest error = %v, want ErrInvalidContent", err)
	}
}
