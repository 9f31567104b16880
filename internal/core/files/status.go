package files

import "fmt"

// ImportStatus is the outcome of one admission attempt.
type ImportStatus int

const (
	StatusUnknown ImportStatus = iota
	StatusSuccessfulAndNew
	StatusRedundant
	StatusDeleted
	StatusError
)

func (s ImportStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSuccessfulAndNew:
		return "successful and new"
	case StatusRedundant:
		return "redundant"
	case StatusDeleted:
		return "deleted"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Admission notes.
const (
	NoteRedundant = "file already in the db"
	NoteDeleted   = "file was previously deleted from the db"
	NoteRestored  = "file restored to the client files store"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// Decision is what admission should do with a hashed candidate.
type Decision int

const (
	// DecisionAdmit stores a brand new record.
	DecisionAdmit Decision = iota
	// DecisionRedundant reports the existing record untouched.
	DecisionRedundant
	// DecisionRestore reports the existing record and puts its missing bytes back.
	DecisionRestore
	// DecisionDeleted reports a prior deletion without changing anything.
	DecisionDeleted
	// DecisionUndelete returns a previously deleted record to the local file domain.
	DecisionUndelete
)

// ImportContext is the store's view of a candidate hash.
type ImportContext struct {
	Known        bool // a file info row exists for the hash
	Current      bool // current in a local file domain
	Deleted      bool // deleted from the local file domain
	BytesPresent bool // the client file store holds the bytes
	AllowDeleted bool
}

// DecideImport maps the pre-check state of a hash to an admission decision.
// Rules:
//   - current records are redundant (restored when their bytes went missing)
//   - deleted records stay deleted unless the caller allows undeleting
//   - anything else is admitted
func DecideImport(ctx ImportContext) Decision {
	switch {
	case ctx.Known && ctx.Current && ctx.BytesPresent:
		return DecisionRedundant
	case ctx.Known && ctx.Current:
		return DecisionRestore
	case ctx.Deleted && ctx.AllowDeleted:
		return DecisionUndelete
	case ctx.Deleted:
		return DecisionDeleted
	}
	return DecisionAdmit
}

// CanAdmit validates a probed candidate before it is written.
func CanAdmit(hashes HashSet, info Info) GuardResult {
	if hashes.SHA256.IsZero() {
		return GuardResult{Allowed: false, Reason: "candidate has no content hash"}
	}
	if info.Size <= 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("file %s is empty", hashes.SHA256.Hex())}
	}
	if info.Mime == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("file %s has no mime type", hashes.SHA256.Hex())}
	}
	return GuardResult{Allowed: true}
}
