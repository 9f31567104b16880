package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/bits"
	"sort"
	"strings"
	"time"

	"github.com/example/mediadb/internal/core/errs"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/secondary"
)

// QueryRepository implements secondary.QueryRepository with SQLite.
type QueryRepository struct {
	db *sql.DB
}

// NewQueryRepository creates a new SQLite query repository.
func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// idSet is a set of hash ids.
type idSet map[int64]struct{}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) intersect(other idSet) idSet {
	out := make(idSet)
	for id := range s {
		if other.has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s idSet) subtract(other idSet) idSet {
	out := make(idSet)
	for id := range s {
		if !other.has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s idSet) sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// restrictLimit is the largest candidate set pushed into SQL as an IN list.
const restrictLimit = 500

// evaluation holds the resolved scope of one search.
type evaluation struct {
	q          querier
	fileSvc    *serviceRow
	tagSvcIDs  []int64
	statuses   []string
	now        time.Time
	universe   idSet
	candidates idSet
}

// evaluator returns the ids matching an inclusive predicate.
type evaluator func(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error)

var evaluators map[predicate.Type]evaluator

func init() {
	evaluators = map[predicate.Type]evaluator{
		predicate.TypeTag:         evalTag,
		predicate.TypeNamespace:   evalNamespace,
		predicate.TypeWildcard:    evalWildcard,
		predicate.TypeOr:          evalOr,
		predicate.TypeEverything:  evalEverything,
		predicate.TypeInbox:       evalInbox,
		predicate.TypeArchive:     evalArchive,
		predicate.TypeLocal:       evalLocal,
		predicate.TypeNotLocal:    evalNotLocal,
		predicate.TypeUntagged:    evalUntagged,
		predicate.TypeNumTags:     evalNumTags,
		predicate.TypeSize:        infoColumn("size"),
		predicate.TypeWidth:       infoColumn("width"),
		predicate.TypeHeight:      infoColumn("height"),
		predicate.TypeNumPixels:   infoColumn("width * height"),
		predicate.TypeDuration:    infoColumn("COALESCE(duration, 0)"),
		predicate.TypeNumFrames:   infoColumn("COALESCE(num_frames, 0)"),
		predicate.TypeNumWords:    infoColumn("COALESCE(num_words, 0)"),
		predicate.TypeRatio:       evalRatio,
		predicate.TypeAge:         evalAge,
		predicate.TypeMime:        evalMime,
		predicate.TypeHash:        evalHash,
		predicate.TypeFileService: evalFileService,
		predicate.TypeRating:      evalRating,
		predicate.TypeSimilarTo:   evalSimilarTo,
	}
}

// Resolve evaluates a search context. Include predicates narrow the file
// service's universe cheapest first, exclude predicates subtract, and post
// filters check the survivors. The limit keeps the lowest ids.
func (r *QueryRepository) Resolve(ctx context.Context, sc predicate.SearchContext, now time.Time) ([]int64, error) {
	plan, err := predicate.BuildPlan(sc.Predicates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidContent, err)
	}

	e, err := r.newEvaluation(ctx, sc, now)
	if err != nil {
		return nil, err
	}
	if plan.Empty {
		return []int64{}, nil
	}

	result, err := e.fileUniverse(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range plan.Include {
		if len(result) == 0 {
			break
		}
		e.candidates = result
		matches, err := e.eval(ctx, p)
		if err != nil {
			return nil, err
		}
		result = result.intersect(matches)
	}

	for _, p := range plan.Exclude {
		if len(result) == 0 {
			break
		}
		e.candidates = result
		matches, err := e.eval(ctx, inclusive(p))
		if err != nil {
			return nil, err
		}
		result = result.subtract(matches)
	}

	for _, p := range plan.PostFilter {
		if len(result) == 0 {
			break
		}
		e.candidates = result
		matches, err := e.eval(ctx, inclusive(p))
		if err != nil {
			return nil, err
		}
		if p.Inclusive {
			result = result.intersect(matches)
		} else {
			result = result.subtract(matches)
		}
	}

	ids := result.sorted()
	if plan.Limit != nil && len(ids) > *plan.Limit {
		ids = ids[:*plan.Limit]
	}
	return ids, nil
}

func inclusive(p predicate.Predicate) predicate.Predicate {
	p.Inclusive = true
	return p
}

func (r *QueryRepository) newEvaluation(ctx context.Context, sc predicate.SearchContext, now time.Time) (*evaluation, error) {
	fileSvc, err := lookupActiveService(ctx, r.db, sc.FileService)
	if err != nil {
		return nil, err
	}
	if !fileSvc.Service.Type.IsFileService() {
		return nil, fmt.Errorf("%w: %s is not a file service", errs.ErrInvalidContent, sc.FileService)
	}

	tagSvcIDs, err := tagServiceScope(ctx, r.db, sc.TagService)
	if err != nil {
		return nil, err
	}

	e := &evaluation{q: r.db, fileSvc: fileSvc, tagSvcIDs: tagSvcIDs, now: now}
	if sc.IncludeCurrentTags {
		e.statuses = append(e.statuses, statusCurrent)
	}
	if sc.IncludePendingTags {
		e.statuses = append(e.statuses, statusPending)
	}
	return e, nil
}

// tagServiceScope expands a tag service key into the service ids whose mappings it reads.
func tagServiceScope(ctx context.Context, q querier, key services.Key) ([]int64, error) {
	svc, err := lookupActiveService(ctx, q, key)
	if err != nil {
		return nil, err
	}
	switch {
	case svc.Service.Type == services.CombinedTag:
		return serviceIDsOfType(ctx, q, services.LocalTag, services.TagRepository)
	case svc.Service.Type.IsTagService():
		return []int64{svc.ID}, nil
	}
	return nil, fmt.Errorf("%w: %s is not a tag service", errs.ErrInvalidContent, key)
}

func (e *evaluation) eval(ctx context.Context, p predicate.Predicate) (idSet, error) {
	fn, ok := evaluators[p.Type]
	if !ok {
		return nil, fmt.Errorf("%w: predicate %s cannot be searched", errs.ErrInvalidContent, p.Type)
	}
	matches, err := fn(ctx, e, p)
	if err != nil {
		return nil, err
	}
	if !p.Inclusive {
		return e.universe.subtract(matches), nil
	}
	return matches, nil
}

// fileUniverse is every file the file service can return. The combined file
// service spans all current files plus every file a tag in scope is mapped to.
func (e *evaluation) fileUniverse(ctx context.Context) (idSet, error) {
	if e.universe != nil {
		return e.universe, nil
	}

	var (
		set idSet
		err error
	)
	if e.fileSvc.Service.Type == services.CombinedFile {
		set, err = e.ids(ctx, "", `
			SELECT c.hash_id FROM current_files c JOIN services s ON s.service_id = c.service_id WHERE s.active = 1`)
		if err == nil && len(e.tagSvcIDs) > 0 {
			var mapped idSet
			mapped, err = e.ids(ctx, "", "SELECT DISTINCT hash_id FROM mappings WHERE "+e.mappingScope(), e.mappingArgs()...)
			for id := range mapped {
				set[id] = struct{}{}
			}
		}
	} else {
		set, err = e.ids(ctx, "", "SELECT hash_id FROM current_files WHERE service_id = ?", e.fileSvc.ID)
	}
	if err != nil {
		return nil, err
	}
	e.universe = set
	return set, nil
}

// ids runs a hash id query. When column is set and the candidate set is
// small, the query is restricted to the candidates.
func (e *evaluation) ids(ctx context.Context, column, query string, args ...any) (idSet, error) {
	if column != "" && e.candidates != nil && len(e.candidates) <= restrictLimit {
		if len(e.candidates) == 0 {
			return idSet{}, nil
		}
		ids := e.candidates.sorted()
		query += " AND " + column + " IN (" + placeholders(len(ids)) + ")"
		args = append(args, int64Args(ids)...)
	}

	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("search files", err)
	}
	list, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	set := make(idSet, len(list))
	for _, id := range list {
		set[id] = struct{}{}
	}
	return set, nil
}

// mappingScope restricts the mappings table (unaliased or aliased m) to the tag services and statuses in scope.
func (e *evaluation) mappingScope() string {
	if len(e.tagSvcIDs) == 0 || len(e.statuses) == 0 {
		return "0"
	}
	return "service_id IN (" + placeholders(len(e.tagSvcIDs)) + ") AND status IN (" + placeholders(len(e.statuses)) + ")"
}

func (e *evaluation) mappingArgs() []any {
	if len(e.tagSvcIDs) == 0 || len(e.statuses) == 0 {
		return nil
	}
	args := int64Args(e.tagSvcIDs)
	for _, s := range e.statuses {
		args = append(args, s)
	}
	return args
}

// mappedWhere returns files mapped, in scope, to tags matching cond.
func (e *evaluation) mappedWhere(ctx context.Context, cond string, args ...any) (idSet, error) {
	query := "SELECT DISTINCT hash_id FROM mappings WHERE " + e.mappingScope() +
		" AND tag_id IN (SELECT tag_id FROM tags WHERE " + cond + ")"
	return e.ids(ctx, "hash_id", query, append(e.mappingArgs(), args...)...)
}

// ==================== tag predicates ====================

func evalTag(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	tag := tags.Clean(p.Text)
	if tags.IsNamespaced(tag) {
		return e.mappedWhere(ctx, "tag = ?", tag)
	}
	return e.mappedWhere(ctx, "subtag = ?", tag)
}

func evalNamespace(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	return e.mappedWhere(ctx, "namespace = ?", tags.Clean(p.Text))
}

func evalWildcard(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	cond, args := wildcardCondition(tags.ParsePattern(p.Text))
	return e.mappedWhere(ctx, cond, args...)
}

// wildcardCondition matches the tags table against a pattern.
func wildcardCondition(pattern tags.Pattern) (string, []any) {
	if pattern.HasNamespace {
		return `namespace LIKE ? ESCAPE '\' AND subtag LIKE ? ESCAPE '\'`,
			[]any{tags.LikePattern(pattern.Namespace), tags.LikePattern(pattern.Subtag)}
	}
	return `(subtag LIKE ? ESCAPE '\' OR tag LIKE ? ESCAPE '\')`,
		[]any{tags.LikePattern(pattern.Subtag), tags.LikePattern(pattern.Raw)}
}

func evalOr(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	union := make(idSet)
	for _, sub := range p.Or {
		matches, err := e.eval(ctx, sub)
		if err != nil {
			return nil, err
		}
		for id := range matches {
			union[id] = struct{}{}
		}
	}
	return union, nil
}

func evalUntagged(ctx context.Context, e *evaluation, _ predicate.Predicate) (idSet, error) {
	tagged, err := e.ids(ctx, "hash_id", "SELECT DISTINCT hash_id FROM mappings WHERE "+e.mappingScope(), e.mappingArgs()...)
	if err != nil {
		return nil, err
	}
	return e.universe.subtract(tagged), nil
}

func evalNumTags(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	counts := make(map[int64]int)
	if scope := e.mappingScope(); scope != "0" {
		rows, err := e.q.QueryContext(ctx,
			"SELECT hash_id, COUNT(DISTINCT tag_id) FROM mappings WHERE "+scope+" GROUP BY hash_id",
			e.mappingArgs()...,
		)
		if err != nil {
			return nil, storageErr("count file tags", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				return nil, storageErr("scan tag count", err)
			}
			counts[id] = n
		}
		if err := rows.Err(); err != nil {
			return nil, storageErr("count file tags", err)
		}
	}

	set := make(idSet)
	for id := range e.candidates {
		if predicate.Compare(p.Operator, p.Value, float64(counts[id])) {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// ==================== membership predicates ====================

func evalEverything(_ context.Context, e *evaluation, _ predicate.Predicate) (idSet, error) {
	return e.universe, nil
}

func evalInbox(ctx context.Context, e *evaluation, _ predicate.Predicate) (idSet, error) {
	return e.ids(ctx, "hash_id", "SELECT hash_id FROM file_inbox WHERE 1")
}

func evalArchive(ctx context.Context, e *evaluation, _ predicate.Predicate) (idSet, error) {
	inbox, err := e.ids(ctx, "hash_id", "SELECT hash_id FROM file_inbox WHERE 1")
	if err != nil {
		return nil, err
	}
	local, err := evalLocal(ctx, e, predicate.System(predicate.TypeLocal))
	if err != nil {
		return nil, err
	}
	return local.subtract(inbox), nil
}

func evalLocal(ctx context.Context, e *evaluation, _ predicate.Predicate) (idSet, error) {
	return e.ids(ctx, "c.hash_id", `
		SELECT c.hash_id FROM current_files c JOIN services s ON s.service_id = c.service_id
		WHERE s.service_type = ? AND s.active = 1`,
		string(services.CombinedLocalFile),
	)
}

func evalNotLocal(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	local, err := evalLocal(ctx, e, p)
	if err != nil {
		return nil, err
	}
	return e.universe.subtract(local), nil
}

var fileStatusTables = map[predicate.FileStatus]string{
	predicate.StatusCurrent:    "current_files",
	predicate.StatusPending:    "pending_files",
	predicate.StatusDeleted:    "deleted_files",
	predicate.StatusPetitioned: "petitioned_files",
}

func evalFileService(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	table, ok := fileStatusTables[p.Status]
	if !ok {
		return nil, fmt.Errorf("%w: unknown file status %q", errs.ErrInvalidContent, p.Status)
	}
	svc, err := lookupActiveService(ctx, e.q, p.Service)
	if err != nil {
		return nil, err
	}
	return e.ids(ctx, "hash_id", "SELECT hash_id FROM "+table+" WHERE service_id = ?", svc.ID)
}

// ==================== file info predicates ====================

// infoColumn compares a files_info expression. Files without info never match.
func infoColumn(expr string) evaluator {
	return func(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
		cond, args := predicate.Bounds(p.Operator, p.Value).SQL(expr)
		return e.ids(ctx, "hash_id", "SELECT hash_id FROM files_info WHERE "+cond, args...)
	}
}

func evalRatio(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	if p.Operator == predicate.Equal {
		return e.ids(ctx, "hash_id",
			"SELECT hash_id FROM files_info WHERE height > 0 AND width * ? = height * ?",
			p.RatioHeight, p.RatioWidth,
		)
	}
	target := float64(p.RatioWidth) / float64(p.RatioHeight)
	cond, args := predicate.Bounds(p.Operator, target).SQL("CAST(width AS REAL) / height")
	return e.ids(ctx, "hash_id", "SELECT hash_id FROM files_info WHERE height > 0 AND "+cond, args...)
}

// evalAge compares import time into combined-local.
func evalAge(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	cond, args := predicate.AgeBounds(p.Operator, *p.Age, e.now).SQL("c.timestamp")
	query := `SELECT c.hash_id FROM current_files c JOIN services s ON s.service_id = c.service_id
		WHERE s.service_type = ? AND ` + cond
	return e.ids(ctx, "c.hash_id", query, append([]any{string(services.CombinedLocalFile)}, args...)...)
}

func evalMime(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	var (
		conds []string
		args  []any
	)
	for _, m := range p.Mimes {
		m = strings.ToLower(strings.TrimSpace(m))
		if strings.HasSuffix(m, "/*") {
			conds = append(conds, `mime LIKE ? ESCAPE '\'`)
			args = append(args, tags.LikePattern(m))
			continue
		}
		conds = append(conds, "mime = ?")
		args = append(args, m)
	}
	return e.ids(ctx, "hash_id", "SELECT hash_id FROM files_info WHERE ("+strings.Join(conds, " OR ")+")", args...)
}

func evalHash(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	hashType := p.HashType
	if hashType == "" {
		hashType = files.HashSHA256
	}
	digest, err := hex.DecodeString(p.Hash)
	if err != nil || len(digest) != hashType.Size() {
		return nil, fmt.Errorf("%w: %q is not a valid %s hash", errs.ErrInvalidContent, p.Hash, hashType)
	}
	if hashType == files.HashSHA256 {
		return e.ids(ctx, "hash_id", "SELECT hash_id FROM hashes WHERE hash = ?", digest)
	}
	return e.ids(ctx, "hash_id", "SELECT hash_id FROM local_hashes WHERE "+auxHashColumns[hashType]+" = ?", digest)
}

// ==================== post filters ====================

func evalRating(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	svc, err := lookupActiveService(ctx, e.q, p.Service)
	if err != nil {
		return nil, err
	}
	if !svc.Service.Type.IsRatingService() {
		return nil, fmt.Errorf("%w: %s is not a rating service", errs.ErrInvalidContent, p.Service)
	}

	rows, err := e.q.QueryContext(ctx, "SELECT hash_id, rating FROM ratings WHERE service_id = ?", svc.ID)
	if err != nil {
		return nil, storageErr("list ratings", err)
	}
	defer rows.Close()

	ratings := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var rating float64
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, storageErr("scan rating", err)
		}
		ratings[id] = rating
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list ratings", err)
	}

	set := make(idSet)
	for id := range e.candidates {
		rating, rated := ratings[id]
		var match bool
		switch p.RatingState {
		case predicate.RatingRated:
			match = rated
		case predicate.RatingNotRated:
			match = !rated
		default:
			match = rated && predicate.Compare(p.Operator, p.Value, rating)
		}
		if match {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

func evalSimilarTo(ctx context.Context, e *evaluation, p predicate.Predicate) (idSet, error) {
	digest, err := hex.DecodeString(p.Hash)
	if err != nil || len(digest) != files.HashSize {
		return nil, fmt.Errorf("%w: %q is not a valid sha256 hash", errs.ErrInvalidContent, p.Hash)
	}

	var target int64
	err = e.q.QueryRowContext(ctx,
		"SELECT p.phash FROM perceptual_hashes p JOIN hashes h ON h.hash_id = p.hash_id WHERE h.hash = ?",
		digest,
	).Scan(&target)
	if err == sql.ErrNoRows {
		return idSet{}, nil
	}
	if err != nil {
		return nil, storageErr("get perceptual hash", err)
	}

	rows, err := e.q.QueryContext(ctx, "SELECT hash_id, phash FROM perceptual_hashes")
	if err != nil {
		return nil, storageErr("list perceptual hashes", err)
	}
	defer rows.Close()

	set := make(idSet)
	for rows.Next() {
		var id, phash int64
		if err := rows.Scan(&id, &phash); err != nil {
			return nil, storageErr("scan perceptual hash", err)
		}
		if !e.candidates.has(id) {
			continue
		}
		if bits.OnesCount64(uint64(phash)^uint64(target)) <= p.Distance {
			set[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list perceptual hashes", err)
	}
	return set, nil
}

// ==================== counts ====================

// UniverseCounts counts the files a file service can return and how many of them are inboxed.
func (r *QueryRepository) UniverseCounts(ctx context.Context, key services.Key) (*secondary.UniverseCounts, error) {
	sc := predicate.NewSearchContext(key, services.CombinedTagsKey)
	e, err := r.newEvaluation(ctx, sc, time.Now())
	if err != nil {
		return nil, err
	}
	universe, err := e.fileUniverse(ctx)
	if err != nil {
		return nil, err
	}
	inbox, err := evalInbox(ctx, e, predicate.System(predicate.TypeInbox))
	if err != nil {
		return nil, err
	}

	inboxed := len(universe.intersect(inbox))
	return &secondary.UniverseCounts{
		Everything: len(universe),
		Inbox:      inboxed,
		Archive:    len(universe) - inboxed,
	}, nil
}

// ServiceInfo returns the named counters describing a service.
func (r *QueryRepository) ServiceInfo(ctx context.Context, key services.Key) (map[string]int64, error) {
	svc, err := lookupActiveService(ctx, r.db, key)
	if err != nil {
		return nil, err
	}

	type counter struct {
		name  string
		query string
		args  []any
	}
	var counters []counter

	t := svc.Service.Type
	switch {
	case t == services.CombinedFile:
		counters = []counter{
			{"num_files", "SELECT COUNT(DISTINCT c.hash_id) FROM current_files c JOIN services s ON s.service_id = c.service_id WHERE s.active = 1", nil},
		}
	case t.IsFileService():
		counters = []counter{
			{"num_files", "SELECT COUNT(*) FROM current_files WHERE service_id = ?", []any{svc.ID}},
			{"total_size", "SELECT COALESCE(SUM(i.size), 0) FROM current_files c JOIN files_info i ON i.hash_id = c.hash_id WHERE c.service_id = ?", []any{svc.ID}},
			{"num_deleted_files", "SELECT COUNT(*) FROM deleted_files WHERE service_id = ?", []any{svc.ID}},
			{"num_inbox", "SELECT COUNT(*) FROM current_files c JOIN file_inbox b ON b.hash_id = c.hash_id WHERE c.service_id = ?", []any{svc.ID}},
			{"num_pending_files", "SELECT COUNT(*) FROM pending_files WHERE service_id = ?", []any{svc.ID}},
			{"num_petitioned_files", "SELECT COUNT(*) FROM petitioned_files WHERE service_id = ?", []any{svc.ID}},
		}
	case t.IsTagService():
		ids, err := tagServiceScope(ctx, r.db, key)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			ids = []int64{-1}
		}
		in := "service_id IN (" + placeholders(len(ids)) + ")"
		scope := func(status string) []any { return append(int64Args(ids), status) }
		counters = []counter{
			{"num_tags", "SELECT COUNT(DISTINCT tag_id) FROM mappings WHERE " + in + " AND status = ?", scope(statusCurrent)},
			{"num_files", "SELECT COUNT(DISTINCT hash_id) FROM mappings WHERE " + in + " AND status = ?", scope(statusCurrent)},
			{"num_mappings", "SELECT COUNT(*) FROM mappings WHERE " + in + " AND status = ?", scope(statusCurrent)},
			{"num_deleted_mappings", "SELECT COUNT(*) FROM mappings WHERE " + in + " AND status = ?", scope(statusDeleted)},
			{"num_pending_mappings", "SELECT COUNT(*) FROM mappings WHERE " + in + " AND status = ?", scope(statusPending)},
			{"num_petitioned_mappings", "SELECT COUNT(*) FROM mappings WHERE " + in + " AND status = ?", scope(statusPetitioned)},
		}
	case t.IsRatingService():
		counters = []counter{
			{"num_files", "SELECT COUNT(*) FROM ratings WHERE service_id = ?", []any{svc.ID}},
		}
	}

	info := make(map[string]int64, len(counters))
	for _, c := range counters {
		var n int64
		if err := r.db.QueryRowContext(ctx, c.query, c.args...).Scan(&n); err != nil {
			return nil, storageErr("count "+c.name, err)
		}
		info[c.name] = n
	}
	return info, nil
}

// Ensure QueryRepository implements the interface
var _ secondary.QueryRepository = (*QueryRepository)(nil)
