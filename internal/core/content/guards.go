package content

import (
	"fmt"

	"github.com/example/mediadb/internal/core/services"
)

// Verdict is the outcome of checking one update against its target service.
type Verdict int

const (
	// Apply means the update is valid and changes state.
	Apply Verdict = iota
	// Skip means the update is a silent no-op for this service.
	Skip
	// Reject means the update violates the service's rules; the batch fails.
	Reject
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Verdict Verdict
	Reason  string
}

// Error converts a rejection into an error.
func (r GuardResult) Error() error {
	if r.Verdict != Reject {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

func reject(format string, args ...any) GuardResult {
	return GuardResult{Verdict: Reject, Reason: fmt.Sprintf(format, args...)}
}

// CheckUpdate evaluates an update against the service it targets.
// Rules:
//   - mappings go to tag services, files to file services, ratings to rating services
//   - pend and petition on a service without overlays are skipped, not rejected
//   - archive and inbox only apply to files on local file services
//   - ratings must fall inside the service's domain
func CheckUpdate(service services.Service, u Update) GuardResult {
	if len(u.Hashes) == 0 {
		return reject("%s %s update on %s carries no hashes", u.Type, u.Action, service.Name)
	}

	switch u.Type {
	case Mappings:
		return checkMapping(service, u)
	case Files:
		return checkFile(service, u)
	case Ratings:
		return checkRating(service, u)
	}
	return reject("unknown content type %q", u.Type)
}

func checkMapping(service services.Service, u Update) GuardResult {
	if !service.Type.AcceptsMappings() {
		return reject("service %s (%s) does not hold tags", service.Name, service.Type)
	}
	if u.Tag == "" {
		return reject("mapping update on %s has an empty tag", service.Name)
	}

	switch u.Action {
	case Add, Delete:
		return GuardResult{Verdict: Apply}
	case Pend, RescindPend, Petition, RescindPetition:
		if !service.Type.SupportsMappingOverlays() {
			return GuardResult{Verdict: Skip, Reason: fmt.Sprintf("service %s has no pending or petitioned mappings", service.Name)}
		}
		return GuardResult{Verdict: Apply}
	}
	return reject("action %s does not apply to mappings", u.Action)
}

func checkFile(service services.Service, u Update) GuardResult {
	if !service.Type.AcceptsFiles() {
		return reject("service %s (%s) does not hold files", service.Name, service.Type)
	}

	switch u.Action {
	case Add, Delete:
		return GuardResult{Verdict: Apply}
	case Pend, RescindPend:
		if !service.Type.SupportsFilePending() {
			return GuardResult{Verdict: Skip, Reason: fmt.Sprintf("service %s has no pending files", service.Name)}
		}
		return GuardResult{Verdict: Apply}
	case Petition, RescindPetition:
		if !service.Type.SupportsFilePetitions() {
			return GuardResult{Verdict: Skip, Reason: fmt.Sprintf("service %s has no petitioned files", service.Name)}
		}
		return GuardResult{Verdict: Apply}
	case Archive, Inbox:
		if !service.Type.IsLocalFileService() {
			return reject("%s only applies to local files, not %s", u.Action, service.Name)
		}
		return GuardResult{Verdict: Apply}
	}
	return reject("action %s does not apply to files", u.Action)
}

func checkRating(service services.Service, u Update) GuardResult {
	if !service.Type.IsRatingService() {
		return reject("service %s (%s) does not hold ratings", service.Name, service.Type)
	}

	switch u.Action {
	case Delete:
		return GuardResult{Verdict: Apply}
	case Add:
		if u.Rating == nil {
			return GuardResult{Verdict: Apply}
		}
		return CheckRatingValue(service.Type, *u.Rating)
	}
	return reject("action %s does not apply to ratings", u.Action)
}

// CheckRatingValue validates a rating against the domain of a rating service type.
func CheckRatingValue(t services.Type, value float64) GuardResult {
	switch t {
	case services.LocalRatingLike:
		if value != 0 && value != 1 {
			return reject("like rating must be 0 or 1, got %v", value)
		}
	case services.LocalRatingNumeric:
		if value < 0 || value > 1 {
			return reject("numerical rating must be within [0, 1], got %v", value)
		}
	default:
		return reject("%s is not a rating service type", t)
	}
	return GuardResult{Verdict: Apply}
}
