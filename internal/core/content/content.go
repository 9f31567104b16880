// Package content defines content updates and the pure rules deciding whether
// a service accepts them.
package content

import (
	"fmt"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/services"
)

// Type is what a content update touches.
type Type string

const (
	Files    Type = "files"
	Mappings Type = "mappings"
	Ratings  Type = "ratings"
)

// Action is what a content update does.
type Action string

const (
	Add             Action = "add"
	Delete          Action = "delete"
	Pend            Action = "pend"
	RescindPend     Action = "rescind_pend"
	Petition        Action = "petition"
	RescindPetition Action = "rescind_petition"
	Archive         Action = "archive"
	Inbox           Action = "inbox"
)

// AllActions lists every action in wire order.
var AllActions = []Action{Add, Delete, Pend, RescindPend, Petition, RescindPetition, Archive, Inbox}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown content action %q", s)
}

// Update is one content change against a single service.
type Update struct {
	Type   Type
	Action Action
	Tag    string   // mappings
	Rating *float64 // ratings; nil clears the rating
	Reason string   // petitions
	Hashes []files.Hash
}

// NewMappingUpdate builds a tag mapping update.
func NewMappingUpdate(action Action, tag string, hashes ...files.Hash) Update {
	return Update{Type: Mappings, Action: action, Tag: tag, Hashes: hashes}
}

// NewFileUpdate builds a file membership update.
func NewFileUpdate(action Action, hashes ...files.Hash) Update {
	return Update{Type: Files, Action: action, Hashes: hashes}
}

// NewRatingUpdate builds a rating update. A nil rating clears the rating.
func NewRatingUpdate(rating *float64, hashes ...files.Hash) Update {
	return Update{Type: Ratings, Action: Add, Rating: rating, Hashes: hashes}
}

// Batch groups updates by service. One batch commits atomically.
type Batch map[services.Key][]Update

// Len counts the updates in the batch.
func (b Batch) Len() int {
	n := 0
	for _, updates := range b {
		n += len(updates)
	}
	return n
}
