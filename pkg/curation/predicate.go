package curation

import "github.com/samvad-hq/samvad-news-curator/internal/domain"

// RemovedTitle is the title upstream feeds use for retracted items.
const RemovedTitle = "[Removed]"

// FieldsValid reports whether a candidate carries every field a curated
// article needs. It performs no I/O.
func FieldsValid(a domain.Article) bool {
	if a.Title == RemovedTitle {
		return false
	}
	if a.Description == nil || a.PublishedAt == nil {
		return false
	}
	if a.Source == nil || a.Source.Name == nil {
		return false
	}
	return true
}
