package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avenant/internal/domain"
	"avenant/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, offer domain.SupplierOffer) (domain.SupplierOffer, error) {
	if r.db == nil {
		return domain.SupplierOffer{}, errDBUnavailable
	}
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.RootID == "" {
		offer.RootID = offer.ID
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now().UTC()
	}
	model := offerModelFromDomain(offer)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.SupplierOffer{}, err
	}
	return offer, nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.SupplierOffer, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SupplierOfferModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	offer := offerFromModel(model)
	return &offer, nil
}

// TransitionStatus is the conditional write backing every state-machine
// transition: the update is predicated on the stored status still being
// tr.From, so two racing attempts see exactly one success.
func (r *OfferRepository) TransitionStatus(ctx context.Context, id string, tr usecase.OfferTransition) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{"status": string(tr.To)}
	switch tr.To {
	case domain.OfferPendingClient:
		updates["submitted_at"] = tr.At
	case domain.OfferClientApproved:
		updates["client_approved_at"] = tr.At
	case domain.OfferArchitectApproved:
		updates["architect_approved_at"] = tr.At
	case domain.OfferFinal:
		updates["finalized_at"] = tr.At
	case domain.OfferRejected:
		updates["rejected_at"] = tr.At
		updates["rejection_reason"] = tr.Reason
	default:
		return fmt.Errorf("unsupported target status %s", tr.To)
	}

	res := r.db.WithContext(ctx).
		Model(&SupplierOfferModel{}).
		Where("id = ? AND status = ?", id, string(tr.From)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&SupplierOfferModel{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrStoreConflict
	}
	return nil
}

func (r *OfferRepository) CreateNextVersion(ctx context.Context, rejectedID string, at time.Time) (domain.SupplierOffer, error) {
	if r.db == nil {
		return domain.SupplierOffer{}, errDBUnavailable
	}
	var out domain.SupplierOffer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev SupplierOfferModel
		if err := tx.Where("id = ?", rejectedID).First(&prev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if prev.Status != string(domain.OfferRejected) {
			return domain.ErrStoreConflict
		}
		// Guard against a concurrent resubmission of the same version.
		var newer int64
		if err := tx.Model(&SupplierOfferModel{}).
			Where("root_id = ? AND version > ?", prev.RootID, prev.Version).
			Count(&newer).Error; err != nil {
			return err
		}
		if newer > 0 {
			return domain.ErrStoreConflict
		}
		next := SupplierOfferModel{
			ID:              uuid.NewString(),
			RootID:          prev.RootID,
			ProjectID:       prev.ProjectID,
			LotNumber:       prev.LotNumber,
			SupplierName:    prev.SupplierName,
			SupplierContact: prev.SupplierContact,
			Amount:          prev.Amount,
			Description:     prev.Description,
			Status:          string(domain.OfferDraft),
			Version:         prev.Version + 1,
			CreatedAt:       at,
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		out = offerFromModel(next)
		return nil
	})
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	return out, nil
}

func offerModelFromDomain(offer domain.SupplierOffer) SupplierOfferModel {
	return SupplierOfferModel{
		ID:              offer.ID,
		RootID:          offer.RootID,
		ProjectID:       offer.ProjectID,
		LotNumber:       offer.LotNumber,
		SupplierName:    offer.SupplierName,
		SupplierContact: offer.SupplierContact,
		Amount:          offer.Amount,
		Description:     offer.Description,
		Status:          string(offer.Status),
		Version:         offer.Version,

		SubmittedAt:         offer.SubmittedAt,
		ClientApprovedAt:    offer.ClientApprovedAt,
		ArchitectApprovedAt: offer.ArchitectApprovedAt,
		RejectedAt:          offer.RejectedAt,
		FinalizedAt:         offer.FinalizedAt,
		RejectionReason:     stringPtrIfNotEmpty(offer.RejectionReason),

		CreatedAt: offer.CreatedAt,
	}
}

func offerFromModel(model SupplierOfferModel) domain.SupplierOffer {
	return domain.SupplierOffer{
		ID:              model.ID,
		RootID:          model.RootID,
		ProjectID:       model.ProjectID,
		LotNumber:       model.LotNumber,
		SupplierName:    model.SupplierName,
		SupplierContact: model.SupplierContact,
		Amount:          model.Amount,
		Description:     model.Description,
		Status:          domain.OfferStatus(model.Status),
		Version:         model.Version,

		SubmittedAt:         model.SubmittedAt,
		ClientApprovedAt:    model.ClientApprovedAt,
		ArchitectApprovedAt: model.ArchitectApprovedAt,
		RejectedAt:          model.RejectedAt,
		FinalizedAt:         model.FinalizedAt,
		RejectionReason:     stringValue(model.RejectionReason),

		CreatedAt: model.CreatedAt,
	}
}
