// Package crossref plans the custom-field patches that link an email
// document with its attachment documents.
package crossref

import "github.com/nhle/paperless-upload/internal/paperless"

// Fields holds the resolved custom fields used for linking.
type Fields struct {
	// Related is the document-link field.
	Related *paperless.CustomField

	// Direction is the select value to set on every document, or nil when
	// no direction was chosen or it could not be resolved.
	Direction *paperless.CustomFieldValue
}

// Patch is one PATCH of a document's custom fields.
type Patch struct {
	DocumentID int
	Values     []paperless.CustomFieldValue
}

// Plan returns the patches for a primary document and its attachments.
// The primary links to every attachment and each attachment links back
// to the primary. Without a primary id or a related field only the
// direction is set.
// Documents with nothing to set get no patch.
func Plan(primaryID *int, attachmentIDs []int, f Fields) []Patch {
	attachments := uniqueIDs(attachmentIDs)

	var patches []Patch
	if primaryID != nil {
		var values []paperless.CustomFieldValue
		if f.Direction != nil {
			values = append(values, *f.Direction)
		}
		if f.Related != nil && len(attachments) > 0 {
			values = append(values, paperless.DocumentLinkValue(f.Related, attachments))
		}
		if len(values) > 0 {
			patches = append(patches, Patch{DocumentID: *primaryID, Values: values})
		}
	}

	for _, id := range attachments {
		var values []paperless.CustomFieldValue
		if f.Direction != nil {
			values = append(values, *f.Direction)
		}
		if f.Related != nil && primaryID != nil {
			values = append(values, paperless.DocumentLinkValue(f.Related, []int{*primaryID}))
		}
		if len(values) > 0 {
			patches = append(patches, Patch{DocumentID: id, Values: values})
		}
	}
	return patches
}

// uniqueIDs deduplicates ids preserving the order of first occurrence.
func uniqueIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var result []int
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
