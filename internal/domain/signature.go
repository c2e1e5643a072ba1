package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type SignatureMethod string

const (
	SignatureElectronic SignatureMethod = "electronic"
	SignatureQualified  SignatureMethod = "qualified"
	SignatureSimple     SignatureMethod = "simple"
)

// UnknownIP is recorded when the IP lookup collaborator fails or times out.
const UnknownIP = "unknown"

type SignerIdentity struct {
	UserID string
	Name   string
	Email  string
}

// AvenantSignature is one append-only record in the signature audit trail.
// Records are hash-chained per avenant: Seq is allocated sequentially,
// PrevHash is the RecordHash of the previous entry (a zero hash for seq 1).
// No operation updates or deletes a record after creation.
type AvenantSignature struct {
	ID        string
	AvenantID string
	Seq       int64

	SignerUserID string
	SignerName   string
	SignerEmail  string
	SignerRole   ActorRole

	Method SignatureMethod
	Raster []byte // PNG payload from the capture surface

	IPAddress string
	UserAgent string
	SignedAt  time.Time
	Valid     bool

	PrevHash   string
	RecordHash string
}

// ZeroChainHash seeds the chain for the first record of an avenant.
const ZeroChainHash = "0000000000000000000000000000000000000000000000000000000000000000"

type chainPayload struct {
	AvenantID  string `json:"avenant_id"`
	Seq        int64  `json:"seq"`
	SignerID   string `json:"signer_user_id"`
	SignerMail string `json:"signer_email"`
	Role       string `json:"signer_role"`
	Method     string `json:"method"`
	RasterHash string `json:"raster_hash"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
	SignedAt   string `json:"signed_at"`
	PrevHash   string `json:"prev_hash"`
}

// SignatureChainHash computes the tamper-evidence hash for a record. Both the
// store (on append) and the trail verifier (on read) use the same derivation.
func SignatureChainHash(sig AvenantSignature) string {
	rasterSum := sha256.Sum256(sig.Raster)
	payload, _ := json.Marshal(chainPayload{
		AvenantID:  sig.AvenantID,
		Seq:        sig.Seq,
		SignerID:   sig.SignerUserID,
		SignerMail: sig.SignerEmail,
		Role:       string(sig.SignerRole),
		Method:     string(sig.Method),
		RasterHash: hex.EncodeToString(rasterSum[:]),
		IP:         sig.IPAddress,
		UserAgent:  sig.UserAgent,
		SignedAt:   sig.SignedAt.UTC().Format(time.RFC3339Nano),
		PrevHash:   sig.PrevHash,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
