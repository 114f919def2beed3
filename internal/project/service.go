package project

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"estimate-service/internal/document"
	"estimate-service/internal/domain"
	apiErrors "estimate-service/internal/errors"
	"estimate-service/redis"

	"gorm.io/gorm"
)

type NoteResponse struct {
	ID         uint64    `json:"id"`
	DocumentID uint64    `json:"document_id"`
	AuthorID   uint64    `json:"author_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Service interface {
	CreateNote(ctx context.Context, docID uint64, authorID uint64, body string) (*NoteResponse, error)
	UpdateNote(ctx context.Context, noteID uint64, requesterID uint64, body string) (*NoteResponse, error)
	DeleteNote(ctx context.Context, noteID uint64, requesterID uint64) error
	ListNotes(ctx context.Context, docID uint64) ([]NoteResponse, error)
}

type DefaultService struct {
	repository Repository
	cache      *redis.Cache
}

func NewService(repository Repository, cache *redis.Cache) Service {
	return &DefaultService{repository: repository, cache: cache}
}

func (s *DefaultService) CreateNote(ctx context.Context, docID uint64, authorID uint64, body string) (*NoteResponse, error) {
	if body == "" {
		return nil, apiErrors.Validation("Note body is required", nil)
	}

	note := &domain.ProjectNote{AuthorID: authorID, Body: body}
	if err := s.repository.CreateNote(ctx, docID, note); err != nil {
		return nil, s.mapError(err, "Project not found")
	}

	s.invalidate(ctx, docID)
	return toNoteResponse(note), nil
}

// UpdateNote edits a note's body. Notes are owned: only the author may
// touch them, whoever the caller otherwise is.
func (s *DefaultService) UpdateNote(ctx context.Context, noteID uint64, requesterID uint64, body string) (*NoteResponse, error) {
	if body == "" {
		return nil, apiErrors.Validation("Note body is required", nil)
	}

	existing, err := s.repository.FindNote(ctx, noteID)
	if err != nil {
		return nil, s.mapError(err, "Note not found")
	}
	if existing.AuthorID != requesterID {
		return nil, apiErrors.Forbidden("Only the author can edit a note", nil)
	}

	note, err := s.repository.UpdateNote(ctx, noteID, body)
	if err != nil {
		return nil, s.mapError(err, "Note not found")
	}

	s.invalidate(ctx, note.DocumentID)
	return toNoteResponse(note), nil
}

func (s *DefaultService) DeleteNote(ctx context.Context, noteID uint64, requesterID uint64) error {
	existing, err := s.repository.FindNote(ctx, noteID)
	if err != nil {
		return s.mapError(err, "Note not found")
	}
	if existing.AuthorID != requesterID {
		return apiErrors.Forbidden("Only the author can delete a note", nil)
	}

	docID, err := s.repository.DeleteNote(ctx, noteID)
	if err != nil {
		return s.mapError(err, "Note not found")
	}

	s.invalidate(ctx, docID)
	return nil
}

func (s *DefaultService) ListNotes(ctx context.Context, docID uint64) ([]NoteResponse, error) {
	notes, err := s.repository.ListNotes(ctx, docID)
	if err != nil {
		return nil, s.mapError(err, "Project not found")
	}

	result := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		result = append(result, *toNoteResponse(&notes[i]))
	}
	return result, nil
}

func (s *DefaultService) invalidate(ctx context.Context, docID uint64) {
	versionKey := fmt.Sprintf("doc:%d:version", docID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func (s *DefaultService) mapError(err error, notFoundMsg string) error {
	switch {
	case defError.Is(err, gorm.ErrRecordNotFound):
		return apiErrors.NotFound(notFoundMsg, err)
	case defError.Is(err, document.ErrNotCurrent):
		return apiErrors.Forbidden("Only the current version can be modified", err)
	}
	return err
}

func toNoteResponse(n *domain.ProjectNote) *NoteResponse {
	return &NoteResponse{
		ID:         n.ID,
		DocumentID: n.DocumentID,
		AuthorID:   n.AuthorID,
		Body:       n.Body,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}
