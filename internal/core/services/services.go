// Package services defines logical services, their capabilities and the
// pure rules for rewriting the service registry.
package services

import (
	"fmt"

	"github.com/google/uuid"
)

// Key is the stable opaque identity of a service.
type Key string

// GenerateKey returns a fresh random service key.
func GenerateKey() Key {
	return Key(uuid.NewString())
}

// Type is the kind of a service.
type Type string

const (
	LocalFileDomain    Type = "local_file_domain"
	LocalFileTrash     Type = "local_file_trash"
	LocalFileUpdates   Type = "local_file_updates"
	CombinedLocalFile  Type = "combined_local_file"
	CombinedFile       Type = "combined_file"
	LocalTag           Type = "local_tag"
	CombinedTag        Type = "combined_tag"
	LocalRatingLike    Type = "local_rating_like"
	LocalRatingNumeric Type = "local_rating_numerical"
	TagRepository      Type = "tag_repository"
	FileRepository     Type = "file_repository"
	ServerAdmin        Type = "server_admin"
)

// AllTypes lists every known service type.
var AllTypes = []Type{
	LocalFileDomain, LocalFileTrash, LocalFileUpdates, CombinedLocalFile, CombinedFile,
	LocalTag, CombinedTag, LocalRatingLike, LocalRatingNumeric,
	TagRepository, FileRepository, ServerAdmin,
}

// ParseType validates a service type name.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown service type %q", s)
}

// Well-known keys for the services every store carries.
const (
	LocalFilesKey    Key = "local_files"
	TrashKey         Key = "trash"
	LocalUpdatesKey  Key = "local_updates"
	CombinedLocalKey Key = "combined_local_files"
	CombinedFilesKey Key = "combined_files"
	LocalTagsKey     Key = "local_tags"
	CombinedTagsKey  Key = "combined_tags"
)

// Options are the type-specific settings persisted with a service.
type Options struct {
	Port        int    `json:"port,omitempty"`
	Message     string `json:"message,omitempty"`
	MaxBytes    *int64 `json:"max_bytes,omitempty"`
	MaxRequests *int64 `json:"max_requests,omitempty"`
	NumStars    int    `json:"num_stars,omitempty"`
}

// Equal compares options by value.
func (o Options) Equal(other Options) bool {
	return o.Port == other.Port &&
		o.Message == other.Message &&
		o.NumStars == other.NumStars &&
		equalLimit(o.MaxBytes, other.MaxBytes) &&
		equalLimit(o.MaxRequests, other.MaxRequests)
}

func equalLimit(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Service is one entry in the registry.
type Service struct {
	Key     Key
	Type    Type
	Name    string
	Options Options
}

// Default repository ports.
const (
	DefaultRepositoryPort  = 45871
	DefaultServerAdminPort = 45870
	DefaultNumStars        = 5
)

// GenerateService builds a service with the default options for its type.
func GenerateService(key Key, serviceType Type, name string) Service {
	s := Service{Key: key, Type: serviceType, Name: name}
	switch serviceType {
	case TagRepository, FileRepository:
		s.Options.Port = DefaultRepositoryPort
	case ServerAdmin:
		s.Options.Port = DefaultServerAdminPort
	case LocalRatingNumeric:
		s.Options.NumStars = DefaultNumStars
	}
	return s
}

// Defaults returns the services seeded into a fresh store.
func Defaults() []Service {
	return []Service{
		GenerateService(LocalFilesKey, LocalFileDomain, "my files"),
		GenerateService(TrashKey, LocalFileTrash, "trash"),
		GenerateService(LocalUpdatesKey, LocalFileUpdates, "repository updates"),
		GenerateService(CombinedLocalKey, CombinedLocalFile, "all local files"),
		GenerateService(CombinedFilesKey, CombinedFile, "all known files"),
		GenerateService(LocalTagsKey, LocalTag, "my tags"),
		GenerateService(CombinedTagsKey, CombinedTag, "all known tags"),
	}
}
