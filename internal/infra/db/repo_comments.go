package db

import (
	"context"
	"time"

	"avenant/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentRepository is append-only: comments are never edited or deleted.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Append(ctx context.Context, comment domain.OfferComment) (domain.OfferComment, error) {
	if r.db == nil {
		return domain.OfferComment{}, errDBUnavailable
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	model := OfferCommentModel{
		ID:         comment.ID,
		OfferID:    comment.OfferID,
		AuthorID:   comment.AuthorID,
		AuthorRole: string(comment.AuthorRole),
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.OfferComment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) ListByOffer(ctx context.Context, offerID string) ([]domain.OfferComment, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []OfferCommentModel
	if err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.OfferComment, 0, len(models))
	for _, model := range models {
		out = append(out, domain.OfferComment{
			ID:         model.ID,
			OfferID:    model.OfferID,
			AuthorID:   model.AuthorID,
			AuthorRole: domain.ActorRole(model.AuthorRole),
			Body:       model.Body,
			CreatedAt:  model.CreatedAt,
		})
	}
	return out, nil
}
