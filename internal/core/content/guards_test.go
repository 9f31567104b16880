package content

import (
	"reflect"
	"slices"
	"testing"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
)

func ratingPtr(v float64) *float64 {
	return &v
}

func TestCheckUpdate(t *testing.T) {
	hash := files.Hash{1}
	localTags := services.GenerateService(services.LocalTagsKey, services.LocalTag, "my tags")
	repo := services.GenerateService("repo", services.TagRepository, "public tags")
	localFiles := services.GenerateService(services.LocalFilesKey, services.LocalFileDomain, "my files")
	combinedLocal := services.GenerateService(services.CombinedLocalKey, services.CombinedLocalFile, "all local files")
	fileRepo := services.GenerateService("files", services.FileRepository, "file repo")
	like := services.GenerateService("like", services.LocalRatingLike, "favourites")
	numerical := services.GenerateService("stars", services.LocalRatingNumeric, "stars")

	tests := []struct {
		name    string
		service services.Service
		update  Update
		want    Verdict
	}{
		{"add tag locally", localTags, NewMappingUpdate(Add, "car", hash), Apply},
		{"delete tag locally", localTags, NewMappingUpdate(Delete, "car", hash), Apply},
		{"pend tag locally is skipped", localTags, NewMappingUpdate(Pend, "car", hash), Skip},
		{"petition tag locally is skipped", localTags, NewMappingUpdate(Petition, "car", hash), Skip},
		{"pend tag to repository", repo, NewMappingUpdate(Pend, "car", hash), Apply},
		{"rescind petition on repository", repo, NewMappingUpdate(RescindPetition, "car", hash), Apply},
		{"archive a mapping", localTags, NewMappingUpdate(Archive, "car", hash), Reject},
		{"tag on a file service", localFiles, NewMappingUpdate(Add, "car", hash), Reject},
		{"empty tag", localTags, NewMappingUpdate(Add, "", hash), Reject},
		{"no hashes", localTags, NewMappingUpdate(Add, "car"), Reject},
		{"archive local file", localFiles, NewFileUpdate(Archive, hash), Apply},
		{"inbox via combined local", combinedLocal, NewFileUpdate(Inbox, hash), Apply},
		{"archive on repository", fileRepo, NewFileUpdate(Archive, hash), Reject},
		{"download request", combinedLocal, NewFileUpdate(Pend, hash), Apply},
		{"pend into local domain is skipped", localFiles, NewFileUpdate(Pend, hash), Skip},
		{"petition file on repository", fileRepo, NewFileUpdate(Petition, hash), Apply},
		{"petition local file is skipped", localFiles, NewFileUpdate(Petition, hash), Skip},
		{"file on a tag service", localTags, NewFileUpdate(Add, hash), Reject},
		{"like 1", like, NewRatingUpdate(ratingPtr(1), hash), Apply},
		{"like 0.5", like, NewRatingUpdate(ratingPtr(0.5), hash), Reject},
		{"numerical 0.6", numerical, NewRatingUpdate(ratingPtr(0.6), hash), Apply},
		{"numerical 1.2", numerical, NewRatingUpdate(ratingPtr(1.2), hash), Reject},
		{"numerical negative", numerical, NewRatingUpdate(ratingPtr(-0.1), hash), Reject},
		{"clear rating", numerical, NewRatingUpdate(nil, hash), Apply},
		{"pend a rating", numerical, Update{Type: Ratings, Action: Pend, Hashes: []files.Hash{hash}}, Reject},
		{"rating on a tag service", localTags, NewRatingUpdate(ratingPtr(1), hash), Reject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckUpdate(tt.service, tt.update)
			if result.Verdict != tt.want {
				t.Errorf("Verdict = %v, want %v (reason: %s)", result.Verdict, tt.want, result.Reason)
			}
			if (result.Error() != nil) != (tt.want == Reject) {
				t.Errorf("Error() = %v for verdict %v", result.Error(), result.Verdict)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	hash := files.Hash{1}
	in := []Update{
		NewMappingUpdate(Delete, "car", hash),
		NewRatingUpdate(ratingPtr(1), hash),
		NewMappingUpdate(Add, "car", hash),
		NewFileUpdate(Archive, hash),
	}
	reversed := []Update{in[3], in[2], in[1], in[0]}

	a, b := Canonical(in), Canonical(reversed)
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Action != b[i].Action {
			t.Fatalf("Canonical order depends on input order at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if a[0].Type != Files || a[1].Action != Add || a[2].Action != Delete || a[3].Type != Ratings {
		t.Errorf("Canonical() = %+v, unexpected order", a)
	}
}

func TestCanonical_TiesIndependentOfInputOrder(t *testing.T) {
	a, b := files.Hash{1}, files.Hash{2}

	tests := []struct {
		name    string
		updates []Update
	}{
		{
			name: "ratings on one file",
			updates: []Update{
				NewRatingUpdate(ratingPtr(0.2), a),
				NewRatingUpdate(ratingPtr(0.8), a),
				NewRatingUpdate(nil, a),
			},
		},
		{
			name: "file deletes with different hashes",
			updates: []Update{
				NewFileUpdate(Delete, b, a),
				NewFileUpdate(Delete, a),
				NewFileUpdate(Delete, b),
			},
		},
		{
			name: "petitions with different reasons",
			updates: []Update{
				{Type: Mappings, Action: Petition, Tag: "car", Reason: "wrong", Hashes: []files.Hash{a}},
				{Type: Mappings, Action: Petition, Tag: "car", Reason: "spam", Hashes: []files.Hash{a}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward := Canonical(tt.updates)
			reversed := slices.Clone(tt.updates)
			slices.Reverse(reversed)
			backward := Canonical(reversed)
			if !reflect.DeepEqual(forward, backward) {
				t.Errorf("Canonical() depends on input order:\n%+v\n%+v", forward, backward)
			}
		})
	}

	// a cleared rating sorts first; the lowest value follows
	got := Canonical([]Update{NewRatingUpdate(ratingPtr(0.8), a), NewRatingUpdate(nil, a), NewRatingUpdate(ratingPtr(0.2), a)})
	if got[0].Rating != nil || *got[1].Rating != 0.2 || *got[2].Rating != 0.8 {
		t.Errorf("Canonical() rating order = %+v", got)
	}
}

func TestBatchLen(t *testing.T) {
	hash := files.Hash{1}
	b := Batch{
		services.LocalTagsKey:  {NewMappingUpdate(Add, "car", hash), NewMappingUpdate(Add, "bus", hash)},
		services.LocalFilesKey: {NewFileUpdate(Archive, hash)},
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}
