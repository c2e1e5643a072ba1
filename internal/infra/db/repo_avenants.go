package db

import (
	"context"
	"errors"

	"avenant/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvenantRepository struct {
	db *gorm.DB
}

func NewAvenantRepository(db *gorm.DB) *AvenantRepository {
	return &AvenantRepository{db: db}
}

func (r *AvenantRepository) GetByID(ctx context.Context, id string) (*domain.Avenant, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AvenantModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	av := avenantFromModel(model)
	return &av, nil
}

func (r *AvenantRepository) GetActiveByOfferID(ctx context.Context, offerID string) (*domain.Avenant, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AvenantModel
	err := r.db.WithContext(ctx).
		Where("offer_id = ? AND status <> ?", offerID, string(domain.AvenantCancelled)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	av := avenantFromModel(model)
	return &av, nil
}

// CreateAndFinalizeOffer performs generation as one atomic unit: reference
// allocation, avenant insert and the offer's architect_approved -> final
// transition either all land or none do.
func (r *AvenantRepository) CreateAndFinalizeOffer(ctx context.Context, av domain.Avenant) (domain.Avenant, error) {
	if r.db == nil {
		return domain.Avenant{}, errDBUnavailable
	}
	var out domain.Avenant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&AvenantModel{}).
			Where("offer_id = ? AND status <> ?", av.OfferID, string(domain.AvenantCancelled)).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return domain.ErrStoreConflict
		}

		seq, err := nextRefSeq(tx, av.ProjectID)
		if err != nil {
			return err
		}
		av.ID = uuid.NewString()
		av.Reference = domain.FormatAvenantReference(av.ProjectID, seq)

		model := avenantModelFromDomain(av)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}

		res := tx.Model(&SupplierOfferModel{}).
			Where("id = ? AND status = ?", av.OfferID, string(domain.OfferArchitectApproved)).
			Updates(map[string]any{
				"status":       string(domain.OfferFinal),
				"finalized_at": av.GeneratedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Offer moved underneath us; roll the avenant back too.
			return domain.ErrStoreConflict
		}
		out = av
		return nil
	})
	if err != nil {
		return domain.Avenant{}, err
	}
	return out, nil
}

func nextRefSeq(tx *gorm.DB, projectID string) (int64, error) {
	if err := tx.Exec(
		"INSERT INTO avenant_ref_seq (project_id, seq) VALUES (?, 0) ON CONFLICT (project_id) DO NOTHING",
		projectID,
	).Error; err != nil {
		return 0, err
	}
	var current int64
	if err := tx.Raw(
		"SELECT seq FROM avenant_ref_seq WHERE project_id = ? FOR UPDATE",
		projectID,
	).Scan(&current).Error; err != nil {
		return 0, err
	}
	next := current + 1
	if err := tx.Exec(
		"UPDATE avenant_ref_seq SET seq = ? WHERE project_id = ?",
		next, projectID,
	).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func avenantModelFromDomain(av domain.Avenant) AvenantModel {
	return AvenantModel{
		ID:          av.ID,
		OfferID:     av.OfferID,
		ProjectID:   av.ProjectID,
		Reference:   av.Reference,
		Title:       av.Title,
		Description: av.Description,

		Amount:       av.Amount,
		VATRateBP:    av.VATRateBP,
		VATAmount:    av.VATAmount,
		TotalWithVAT: av.TotalWithVAT,
		Type:         string(av.Type),

		RequiresQualifiedSignature: av.RequiresQualifiedSignature,

		Status:      string(av.Status),
		GeneratedAt: av.GeneratedAt,
	}
}

func avenantFromModel(model AvenantModel) domain.Avenant {
	return domain.Avenant{
		ID:          model.ID,
		OfferID:     model.OfferID,
		ProjectID:   model.ProjectID,
		Reference:   model.Reference,
		Title:       model.Title,
		Description: model.Description,

		Amount:       model.Amount,
		VATRateBP:    model.VATRateBP,
		VATAmount:    model.VATAmount,
		TotalWithVAT: model.TotalWithVAT,
		Type:         domain.AvenantType(model.Type),

		RequiresQualifiedSignature: model.RequiresQualifiedSignature,

		Status:      domain.AvenantStatus(model.Status),
		GeneratedAt: model.GeneratedAt,
	}
}
