package project

import (
	"context"

	"estimate-service/internal/document"
	"estimate-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreateNote(ctx context.Context, docID uint64, note *domain.ProjectNote) error
	FindNote(ctx context.Context, noteID uint64) (*domain.ProjectNote, error)
	UpdateNote(ctx context.Context, noteID uint64, body string) (*domain.ProjectNote, error)
	DeleteNote(ctx context.Context, noteID uint64) (docID uint64, err error)
	ListNotes(ctx context.Context, docID uint64) ([]domain.ProjectNote, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new project-note repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateNote(ctx context.Context, docID uint64, note *domain.ProjectNote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockCurrentProject(tx, docID); err != nil {
			return err
		}
		note.DocumentID = docID
		return tx.Create(note).Error
	})
}

func (r *RepositoryImpl) FindNote(ctx context.Context, noteID uint64) (*domain.ProjectNote, error) {
	var note domain.ProjectNote
	err := r.db.WithContext(ctx).First(&note, noteID).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *RepositoryImpl) UpdateNote(ctx context.Context, noteID uint64, body string) (*domain.ProjectNote, error) {
	var note domain.ProjectNote

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&note, noteID).Error; err != nil {
			return err
		}
		if err := r.lockCurrentProject(tx, note.DocumentID); err != nil {
			return err
		}
		note.Body = body
		return tx.Model(&note).Update("body", body).Error
	})
	if err != nil {
		return nil, err
	}

	return &note, nil
}

func (r *RepositoryImpl) DeleteNote(ctx context.Context, noteID uint64) (uint64, error) {
	var docID uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var note domain.ProjectNote
		if err := tx.First(&note, noteID).Error; err != nil {
			return err
		}
		docID = note.DocumentID
		if err := r.lockCurrentProject(tx, docID); err != nil {
			return err
		}
		return tx.Delete(&note).Error
	})

	return docID, err
}

func (r *RepositoryImpl) ListNotes(ctx context.Context, docID uint64) ([]domain.ProjectNote, error) {
	// verify the project version exists first
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("kind = ?", domain.KindProject).
		First(&doc, docID).Error
	if err != nil {
		return nil, err
	}

	var notes []domain.ProjectNote
	err = r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (r *RepositoryImpl) lockCurrentProject(tx *gorm.DB, docID uint64) error {
	var doc domain.Document
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ?", domain.KindProject).
		First(&doc, docID).Error; err != nil {
		return err
	}
	if !doc.IsCurrent {
		return document.ErrNotCurrent
	}
	return nil
}
