package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
)

// linkFields are the server objects the email workflow needs.
type linkFields struct {
	related      *paperless.CustomField
	direction    *paperless.CustomFieldValue
	documentType *int
	// warning is set when a chosen direction could not be applied.
	warning string
}

// resolveLinkFields gets or creates the related-documents field, the
// direction field and the email document type. Only a missing related
// field is fatal.
func (s *Service) resolveLinkFields(ctx context.Context, ss *session, direction string) (*linkFields, error) {
	unlock := s.locks.lock(ss.client.BaseURL())
	defer unlock()

	wf := ss.settings.Workflow
	related, err := ss.client.GetOrCreateCustomField(ctx, wf.RelatedField, paperless.FieldTypeDocumentLink, nil)
	if err != nil {
		return nil, &model.MetadataResolutionError{Name: wf.RelatedField, Err: err}
	}
	lf := &linkFields{related: related}

	if direction = strings.TrimSpace(direction); direction != "" && wf.DirectionField != "" {
		field, err := ss.client.GetOrCreateCustomField(ctx, wf.DirectionField, paperless.FieldTypeSelect, wf.Directions)
		if err != nil {
			ss.logger.Warn("resolving direction field", "field", wf.DirectionField, "error", err)
			lf.warning = fmt.Sprintf("Direction %q was not set: field %q is unavailable.", direction, wf.DirectionField)
		} else if v, err := paperless.SelectValue(field, direction); err != nil {
			ss.logger.Warn("resolving direction option", "direction", direction, "error", err)
			lf.warning = fmt.Sprintf("Direction %q was not set: no such option in %q.", direction, wf.DirectionField)
		} else {
			lf.direction = &v
		}
	}

	if wf.EmailDocumentType != "" {
		dt, err := ss.client.GetOrCreateDocumentType(ctx, wf.EmailDocumentType)
		if err != nil {
			ss.logger.Warn("resolving document type", "name", wf.EmailDocumentType, "error", err)
		} else {
			lf.documentType = &dt.ID
		}
	}
	return lf, nil
}

// resolveTags returns ids followed by the ids of names and the configured
// default tags. Names that cannot be resolved are skipped.
func (s *Service) resolveTags(ctx context.Context, ss *session, ids []int, names []string) []int {
	all := append([]string(nil), names...)
	all = append(all, ss.settings.DefaultTags...)

	out := append([]int(nil), ids...)
	if len(all) > 0 {
		unlock := s.locks.lock(ss.client.BaseURL())
		defer unlock()
	}
	for _, name := range all {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := ss.client.GetOrCreateTag(ctx, name)
		if err != nil {
			ss.logger.Warn("resolving tag", "tag", name, "error", err)
			continue
		}
		out = append(out, tag.ID)
	}
	return uniqueInts(out)
}
