package db

import (
	"context"
	"errors"
	"time"

	"avenant/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignatureRepository is the append-only signature ledger. Append and the
// avenant's terminal status flip share one transaction; no update or delete
// path exists.
type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

func (r *SignatureRepository) AppendAndMarkSigned(ctx context.Context, sig domain.AvenantSignature) (domain.AvenantSignature, error) {
	if r.db == nil {
		return domain.AvenantSignature{}, errDBUnavailable
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	sig.SignedAt = sig.SignedAt.UTC().Truncate(time.Microsecond)

	var out domain.AvenantSignature
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var av AvenantModel
		if err := tx.Where("id = ?", sig.AvenantID).First(&av).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if av.Status == string(domain.AvenantSigned) {
			return domain.ErrAlreadySigned
		}

		seq, prevHash, err := nextSignatureSeq(tx, sig.AvenantID)
		if err != nil {
			return err
		}
		sig.Seq = seq
		sig.PrevHash = prevHash
		sig.RecordHash = domain.SignatureChainHash(sig)

		model := signatureModelFromDomain(sig)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}

		res := tx.Model(&AvenantModel{}).
			Where("id = ? AND status = ?", sig.AvenantID, string(domain.AvenantPendingSignature)).
			Update("status", string(domain.AvenantSigned))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrStoreConflict
		}
		out = sig
		return nil
	})
	if err != nil {
		return domain.AvenantSignature{}, err
	}
	return out, nil
}

func (r *SignatureRepository) ListByAvenant(ctx context.Context, avenantID string) ([]domain.AvenantSignature, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AvenantSignatureModel
	if err := r.db.WithContext(ctx).
		Where("avenant_id = ?", avenantID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AvenantSignature, 0, len(models))
	for _, model := range models {
		out = append(out, signatureFromModel(model))
	}
	return out, nil
}

func nextSignatureSeq(tx *gorm.DB, avenantID string) (int64, string, error) {
	if err := tx.Exec(
		"INSERT INTO avenant_signature_seq (avenant_id, seq) VALUES (?, 0) ON CONFLICT (avenant_id) DO NOTHING",
		avenantID,
	).Error; err != nil {
		return 0, "", err
	}
	var current int64
	if err := tx.Raw(
		"SELECT seq FROM avenant_signature_seq WHERE avenant_id = ? FOR UPDATE",
		avenantID,
	).Scan(&current).Error; err != nil {
		return 0, "", err
	}
	next := current + 1
	if err := tx.Exec(
		"UPDATE avenant_signature_seq SET seq = ? WHERE avenant_id = ?",
		next, avenantID,
	).Error; err != nil {
		return 0, "", err
	}

	prevHash := domain.ZeroChainHash
	if current > 0 {
		var prev AvenantSignatureModel
		if err := tx.Where("avenant_id = ? AND seq = ?", avenantID, current).Take(&prev).Error; err != nil {
			return 0, "", err
		}
		prevHash = prev.RecordHash
	}
	return next, prevHash, nil
}

func signatureModelFromDomain(sig domain.AvenantSignature) AvenantSignatureModel {
	return AvenantSignatureModel{
		ID:        sig.ID,
		AvenantID: sig.AvenantID,
		Seq:       sig.Seq,

		SignerUserID: sig.SignerUserID,
		SignerName:   sig.SignerName,
		SignerEmail:  sig.SignerEmail,
		SignerRole:   string(sig.SignerRole),

		Method: string(sig.Method),
		Raster: copyBytes(sig.Raster),

		IPAddress: sig.IPAddress,
		UserAgent: sig.UserAgent,
		SignedAt:  sig.SignedAt,
		Valid:     sig.Valid,

		PrevHash:   sig.PrevHash,
		RecordHash: sig.RecordHash,
	}
}

func signatureFromModel(model AvenantSignatureModel) domain.AvenantSignature {
	return domain.AvenantSignature{
		ID:        model.ID,
		AvenantID: model.AvenantID,
		Seq:       model.Seq,

		SignerUserID: model.SignerUserID,
		SignerName:   model.SignerName,
		SignerEmail:  model.SignerEmail,
		SignerRole:   domain.ActorRole(model.SignerRole),

		Method: domain.SignatureMethod(model.Method),
		Raster: copyBytes(model.Raster),

		IPAddress: model.IPAddress,
		UserAgent: model.UserAgent,
		SignedAt:  model.SignedAt.UTC(),
		Valid:     model.Valid,

		PrevHash:   model.PrevHash,
		RecordHash: model.RecordHash,
	}
}
