package services

// IsBuiltIn reports whether the type is one the store cannot run without.
func (t Type) IsBuiltIn() bool {
	switch t {
	case LocalFileDomain, LocalFileTrash, LocalFileUpdates, CombinedLocalFile, CombinedFile, LocalTag, CombinedTag:
		return true
	}
	return false
}

// IsFileService reports whether the service holds file membership.
func (t Type) IsFileService() bool {
	switch t {
	case LocalFileDomain, LocalFileTrash, LocalFileUpdates, CombinedLocalFile, CombinedFile, FileRepository:
		return true
	}
	return false
}

// IsLocalFileService reports whether membership means the bytes are on disk.
func (t Type) IsLocalFileService() bool {
	switch t {
	case LocalFileDomain, LocalFileTrash, LocalFileUpdates, CombinedLocalFile:
		return true
	}
	return false
}

// IsTagService reports whether the service holds tag mappings.
func (t Type) IsTagService() bool {
	return t == LocalTag || t == TagRepository || t == CombinedTag
}

// IsRatingService reports whether the service holds ratings.
func (t Type) IsRatingService() bool {
	return t == LocalRatingLike || t == LocalRatingNumeric
}

// IsCombined reports whether the service is a virtual union of others.
func (t Type) IsCombined() bool {
	return t == CombinedFile || t == CombinedTag
}

// IsRepository reports whether the service syncs with a remote repository.
func (t Type) IsRepository() bool {
	return t == TagRepository || t == FileRepository
}

// SupportsMappingOverlays reports whether pending and petitioned mappings apply.
func (t Type) SupportsMappingOverlays() bool {
	return t == TagRepository
}

// SupportsFilePending reports whether files can be pended to the service.
// Pending into combined-local queues a download.
func (t Type) SupportsFilePending() bool {
	return t == FileRepository || t == CombinedLocalFile
}

// SupportsFilePetitions reports whether files can be petitioned for removal.
func (t Type) SupportsFilePetitions() bool {
	return t == FileRepository
}

// AcceptsMappings reports whether tags can be written directly to the service.
func (t Type) AcceptsMappings() bool {
	return t == LocalTag || t == TagRepository
}

// AcceptsFiles reports whether file membership can be written directly.
func (t Type) AcceptsFiles() bool {
	switch t {
	case LocalFileDomain, LocalFileTrash, LocalFileUpdates, CombinedLocalFile, FileRepository:
		return true
	}
	return false
}
