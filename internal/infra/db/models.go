package db

import "time"

type SupplierOfferModel struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	RootID          string `gorm:"type:uuid;index;not null"`
	ProjectID       string `gorm:"type:uuid;index;not null"`
	LotNumber       string `gorm:"not null"`
	SupplierName    string `gorm:"not null"`
	SupplierContact string
	Amount          int64  `gorm:"not null"`
	Description     string `gorm:"type:text"`
	Status          string `gorm:"index;not null"`
	Version         int    `gorm:"not null"`

	SubmittedAt         *time.Time
	ClientApprovedAt    *time.Time
	ArchitectApprovedAt *time.Time
	RejectedAt          *time.Time
	FinalizedAt         *time.Time
	RejectionReason     *string

	CreatedAt time.Time `gorm:"not null"`
}

func (SupplierOfferModel) TableName() string { return "supplier_offers" }

type OfferCommentModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	OfferID    string    `gorm:"type:uuid;index;not null"`
	AuthorID   string    `gorm:"not null"`
	AuthorRole string    `gorm:"not null"`
	Body       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (OfferCommentModel) TableName() string { return "offer_comments" }

type AvenantModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	OfferID     string `gorm:"type:uuid;index;not null"`
	ProjectID   string `gorm:"type:uuid;index;not null"`
	Reference   string `gorm:"uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`

	Amount       int64  `gorm:"not null"`
	VATRateBP    int64  `gorm:"not null"`
	VATAmount    int64  `gorm:"not null"`
	TotalWithVAT int64  `gorm:"not null"`
	Type         string `gorm:"not null"`

	RequiresQualifiedSignature bool `gorm:"not null"`

	Status      string    `gorm:"index;not null"`
	GeneratedAt time.Time `gorm:"not null"`
}

func (AvenantModel) TableName() string { return "avenants" }

// AvenantRefSeqModel guards sequential per-project reference allocation.
type AvenantRefSeqModel struct {
	ProjectID string `gorm:"type:uuid;primaryKey"`
	Seq       int64  `gorm:"not null"`
}

func (AvenantRefSeqModel) TableName() string { return "avenant_ref_seq" }

type AvenantSignatureModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	AvenantID string `gorm:"type:uuid;index:idx_sig_avenant_seq,unique;not null"`
	Seq       int64  `gorm:"index:idx_sig_avenant_seq,unique;not null"`

	SignerUserID string `gorm:"not null"`
	SignerName   string `gorm:"not null"`
	SignerEmail  string `gorm:"not null"`
	SignerRole   string `gorm:"not null"`

	Method string `gorm:"not null"`
	Raster []byte `gorm:"type:bytea;not null"`

	IPAddress string    `gorm:"not null"`
	UserAgent string    `gorm:"not null"`
	SignedAt  time.Time `gorm:"index;not null"`
	Valid     bool      `gorm:"not null"`

	PrevHash   string `gorm:"not null"`
	RecordHash string `gorm:"not null"`
}

func (AvenantSignatureModel) TableName() string { return "avenant_signatures" }

// SignatureSeqModel guards per-avenant chain sequencing.
type SignatureSeqModel struct {
	AvenantID string `gorm:"type:uuid;primaryKey"`
	Seq       int64  `gorm:"not null"`
}

func (SignatureSeqModel) TableName() string { return "avenant_signature_seq" }
