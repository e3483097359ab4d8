package trips

import (
	"context"
	"errors"
	"fmt"

	"wayfare/internal/audit"
	"wayfare/internal/rbac"
	"wayfare/internal/storage"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

type CreateContentInput struct {
	Key   string
	Title string
	Body  string
}

func (in CreateContentInput) validate() error {
	if in.Key == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content key is required")
	}
	if in.Body == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content body is required")
	}
	return nil
}

// CreateContentBlock creates an unpublished block. Keys are unique within
// the tenant; the uniqueness check is naturally tenant-scoped because the
// lookup goes through the isolated client.
func (s *Service) CreateContentBlock(ctx context.Context, in CreateContentInput) (*ContentBlock, error) {
	if _, err := s.require(ctx, rbac.ResourceContent, rbac.ActionCreate); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	_, err := s.data.FindOne(ctx, entityContent, storage.Filter{"key": in.Key})
	switch {
	case err == nil:
		return nil, dErrors.Newf(dErrors.CodeConflict, "content key %q already exists", in.Key)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, fmt.Errorf("check content key: %w", err)
	}

	block := &ContentBlock{
		ID:    id.NewRecordID(),
		Key:   in.Key,
		Title: in.Title,
		Body:  in.Body,
	}
	if err := s.data.Create(ctx, entityContent, contentRecord(block)); err != nil {
		return nil, fmt.Errorf("create content block: %w", err)
	}

	s.audit.Record(ctx, audit.ActionContentCreated, rbac.ResourceContent, block.ID.String(), nil, block)
	return block, nil
}

// GetContentBlock returns one block by key. Viewers only see published
// blocks; editors see drafts too.
func (s *Service) GetContentBlock(ctx context.Context, key string) (*ContentBlock, error) {
	rc, err := s.require(ctx, rbac.ResourceContent, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	rec, err := s.data.FindOne(ctx, entityContent, storage.Filter{"key": key})
	if err != nil {
		return nil, fmt.Errorf("find content block: %w", err)
	}
	block := contentFromRecord(rec)
	if !block.Published && !rc.HasPermission(rbac.ResourceContent, rbac.ActionUpdate) {
		return nil, fmt.Errorf("find content block: %w", sentinel.ErrNotFound)
	}
	return block, nil
}

// ListContentBlocks returns the tenant's blocks, drafts included for
// editors only.
func (s *Service) ListContentBlocks(ctx context.Context) ([]*ContentBlock, error) {
	rc, err := s.require(ctx, rbac.ResourceContent, rbac.ActionRead)
	if err != nil {
		return nil, err
	}
	filter := storage.Filter{}
	if !rc.HasPermission(rbac.ResourceContent, rbac.ActionUpdate) {
		filter["published"] = true
	}
	recs, err := s.data.Find(ctx, entityContent, filter)
	if err != nil {
		return nil, fmt.Errorf("list content blocks: %w", err)
	}
	blocks := make([]*ContentBlock, 0, len(recs))
	for _, rec := range recs {
		blocks = append(blocks, contentFromRecord(rec))
	}
	return blocks, nil
}

type UpdateContentInput struct {
	Title     *string
	Body      *string
	Published *bool
}

func (in UpdateContentInput) patch() (map[string]any, error) {
	set := map[string]any{}
	if in.Title != nil {
		set["title"] = *in.Title
	}
	if in.Body != nil {
		if *in.Body == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "content body cannot be empty")
		}
		set["body"] = *in.Body
	}
	if in.Published != nil {
		set["published"] = *in.Published
	}
	if len(set) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	return set, nil
}

// UpdateContentBlock edits or (un)publishes a block.
func (s *Service) UpdateContentBlock(ctx context.Context, blockID id.RecordID, in UpdateContentInput) (*ContentBlock, error) {
	if _, err := s.require(ctx, rbac.ResourceContent, rbac.ActionUpdate); err != nil {
		return nil, err
	}
	set, err := in.patch()
	if err != nil {
		return nil, err
	}

	filter := storage.Filter{"id": blockID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityContent, filter)
	if err != nil {
		return nil, fmt.Errorf("find content block: %w", err)
	}
	before := contentFromRecord(beforeRec)

	n, err := s.data.Update(ctx, entityContent, filter, set)
	if err != nil {
		return nil, fmt.Errorf("update content block: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update content block: %w", sentinel.ErrNotFound)
	}

	afterRec, err := s.data.FindOne(ctx, entityContent, filter)
	if err != nil {
		return nil, fmt.Errorf("reload content block: %w", err)
	}
	after := contentFromRecord(afterRec)

	s.audit.Record(ctx, audit.ActionContentUpdated, rbac.ResourceContent, blockID.String(), before, after)
	return after, nil
}

// DeleteContentBlock removes a block.
func (s *Service) DeleteContentBlock(ctx context.Context, blockID id.RecordID) error {
	if _, err := s.require(ctx, rbac.ResourceContent, rbac.ActionDelete); err != nil {
		return err
	}

	filter := storage.Filter{"id": blockID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityContent, filter)
	if err != nil {
		return fmt.Errorf("find content block: %w", err)
	}
	before := contentFromRecord(beforeRec)

	n, err := s.data.Delete(ctx, entityContent, filter)
	if err != nil {
		return fmt.Errorf("delete content block: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete content block: %w", sentinel.ErrNotFound)
	}

	s.audit.Record(ctx, audit.ActionContentDeleted, rbac.ResourceContent, blockID.String(), before, nil)
	return nil
}
