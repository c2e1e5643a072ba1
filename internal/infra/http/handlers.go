package http

import (
	"errors"
	"net/http"
	"time"

	"avenant/internal/domain"
	"avenant/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type offerResponse struct {
	ID              string `json:"id"`
	RootID          string `json:"root_id"`
	ProjectID       string `json:"project_id"`
	LotNumber       string `json:"lot_number"`
	SupplierName    string `json:"supplier_name"`
	SupplierContact string `json:"supplier_contact,omitempty"`
	Amount          int64  `json:"amount"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	Version         int    `json:"version"`

	SubmittedAt         *time.Time `json:"submitted_at,omitempty"`
	ClientApprovedAt    *time.Time `json:"client_approved_at,omitempty"`
	ArchitectApprovedAt *time.Time `json:"architect_approved_at,omitempty"`
	RejectedAt          *time.Time `json:"rejected_at,omitempty"`
	FinalizedAt         *time.Time `json:"finalized_at,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func offerToResponse(offer *domain.SupplierOffer) offerResponse {
	return offerResponse{
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
		RejectionReason:     offer.RejectionReason,

		CreatedAt: offer.CreatedAt,
	}
}

type avenantResponse struct {
	ID          string `json:"id"`
	OfferID     string `json:"offer_id"`
	ProjectID   string `json:"project_id"`
	Reference   string `json:"reference"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Amount       int64  `json:"amount"`
	VATRateBP    int64  `json:"vat_rate_bp"`
	VATAmount    int64  `json:"vat_amount"`
	TotalWithVAT int64  `json:"total_with_vat"`
	Type         string `json:"type"`

	RequiresQualifiedSignature bool `json:"requires_qualified_signature"`

	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`
}

func avenantToResponse(av *domain.Avenant) avenantResponse {
	return avenantResponse{
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

type signatureResponse struct {
	ID        string `json:"id"`
	AvenantID string `json:"avenant_id"`
	Seq       int64  `json:"seq"`

	SignerUserID string `json:"signer_user_id"`
	SignerName   string `json:"signer_name"`
	SignerEmail  string `json:"signer_email"`
	SignerRole   string `json:"signer_role"`

	Method    string    `json:"method"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	SignedAt  time.Time `json:"signed_at"`
	Valid     bool      `json:"valid"`

	PrevHash   string `json:"prev_hash"`
	RecordHash string `json:"record_hash"`
}

func signatureToResponse(sig domain.AvenantSignature) signatureResponse {
	return signatureResponse{
		ID:        sig.ID,
		AvenantID: sig.AvenantID,
		Seq:       sig.Seq,

		SignerUserID: sig.SignerUserID,
		SignerName:   sig.SignerName,
		SignerEmail:  sig.SignerEmail,
		SignerRole:   string(sig.SignerRole),

		Method:    string(sig.Method),
		IPAddress: sig.IPAddress,
		UserAgent: sig.UserAgent,
		SignedAt:  sig.SignedAt,
		Valid:     sig.Valid,

		PrevHash:   sig.PrevHash,
		RecordHash: sig.RecordHash,
	}
}

type createOfferRequest struct {
	ProjectID       string `json:"project_id"`
	LotNumber       string `json:"lot_number"`
	SupplierName    string `json:"supplier_name"`
	SupplierContact string `json:"supplier_contact"`
	Amount          int64  `json:"amount"`
	Description     string `json:"description"`
}

func (s *Server) handleCreateOffer(c *gin.Context) {
	if _, ok := s.requireAuth(c, "offer.create"); !ok {
		return
	}
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	offer, err := s.offers.Create(c.Request.Context(), usecase.CreateOfferInput{
		ProjectID:       req.ProjectID,
		LotNumber:       req.LotNumber,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		Amount:          req.Amount,
		Description:     req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offerToResponse(&offer))
}

func (s *Server) handleGetOffer(c *gin.Context) {
	if _, ok := s.requireAuth(c, "offer.read"); !ok {
		return
	}
	offer, err := s.offers.Get(c.Request.Context(), c.Param("offer_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerToResponse(offer))
}

func (s *Server) handleSubmitOffer(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.submit")
	if !ok {
		return
	}
	offer, err := s.offers.SubmitForClientApproval(c.Request.Context(), c.Param("offer_id"), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerToResponse(offer))
}

func (s *Server) handleApproveByClient(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.approve_client")
	if !ok {
		return
	}
	offer, err := s.offers.ApproveByClient(c.Request.Context(), c.Param("offer_id"), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerToResponse(offer))
}

func (s *Server) handleApproveByArchitect(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.approve_architect")
	if !ok {
		return
	}
	offer, err := s.offers.ApproveByArchitect(c.Request.Context(), c.Param("offer_id"), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerToResponse(offer))
}

type rejectOfferRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectOffer(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.reject")
	if !ok {
		return
	}
	var req rejectOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	offer, err := s.offers.Reject(c.Request.Context(), c.Param("offer_id"), req.Reason, principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offerToResponse(offer))
}

func (s *Server) handleResubmitOffer(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.resubmit")
	if !ok {
		return
	}
	offer, err := s.offers.Resubmit(c.Request.Context(), c.Param("offer_id"), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offerToResponse(offer))
}

type addCommentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	ID         string    `json:"id"`
	OfferID    string    `json:"offer_id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleAddComment(c *gin.Context) {
	principal, ok := s.requireAuth(c, "offer.comment")
	if !ok {
		return
	}
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	comment, err := s.offers.Comment(c.Request.Context(), c.Param("offer_id"), req.Body, principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentResponse{
		ID:         comment.ID,
		OfferID:    comment.OfferID,
		AuthorID:   comment.AuthorID,
		AuthorRole: string(comment.AuthorRole),
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
	})
}

func (s *Server) handleListComments(c *gin.Context) {
	if _, ok := s.requireAuth(c, "offer.read"); !ok {
		return
	}
	comments, err := s.offers.ListComments(c.Request.Context(), c.Param("offer_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, commentResponse{
			ID:         comment.ID,
			OfferID:    comment.OfferID,
			AuthorID:   comment.AuthorID,
			AuthorRole: string(comment.AuthorRole),
			Body:       comment.Body,
			CreatedAt:  comment.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

type generateAvenantRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Amount       int64  `json:"amount"`
	TypeOverride string `json:"type_override"`
}

func (s *Server) handleGenerateAvenant(c *gin.Context) {
	principal, ok := s.requireAuth(c, "avenant.generate")
	if !ok {
		return
	}
	var req generateAvenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	av, err := s.generator.Generate(c.Request.Context(), usecase.GenerateInput{
		OfferID:      c.Param("offer_id"),
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		TypeOverride: domain.AvenantType(req.TypeOverride),
	}, principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, avenantToResponse(&av))
}

func (s *Server) handleGetAvenant(c *gin.Context) {
	if _, ok := s.requireAuth(c, "avenant.read"); !ok {
		return
	}
	av, err := s.generator.Get(c.Request.Context(), c.Param("avenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avenantToResponse(av))
}

type signAvenantRequest struct {
	SignerName  string `json:"signer_name"`
	SignerEmail string `json:"signer_email"`
	Raster      []byte `json:"raster"` // base64 PNG from the capture surface
}

func (s *Server) handleSignAvenant(c *gin.Context) {
	principal, ok := s.requireAuth(c, "avenant.sign")
	if !ok {
		return
	}
	if !s.allowSignRate(c, principal) {
		return
	}
	var req signAvenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	signer := domain.SignerIdentity{
		UserID: principal.Subject,
		Name:   principal.Name,
		Email:  principal.Email,
	}
	if req.SignerName != "" {
		signer.Name = req.SignerName
	}
	if req.SignerEmail != "" {
		signer.Email = req.SignerEmail
	}
	sig, err := s.collector.Sign(c.Request.Context(), usecase.SignInput{
		AvenantID: c.Param("avenant_id"),
		Signer:    signer,
		Role:      principal.Role,
		Raster:    req.Raster,
		UserAgent: c.Request.UserAgent(),
		RemoteIP:  c.ClientIP(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, signatureToResponse(sig))
}

func (s *Server) allowSignRate(c *gin.Context, principal domain.Principal) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	decision, err := s.rateLimiter.Allow(c.Request.Context(), "sign:"+principal.Subject, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		// Fail open: throttling never blocks a legitimate signature.
		return true
	}
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many signing attempts")
		return false
	}
	return true
}

func (s *Server) handleListSignatures(c *gin.Context) {
	if _, ok := s.requireAuth(c, "trail.read"); !ok {
		return
	}
	sigs, err := s.trail.List(c.Request.Context(), c.Param("avenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]signatureResponse, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, signatureToResponse(sig))
	}
	c.JSON(http.StatusOK, gin.H{"signatures": out})
}

func (s *Server) handleVerifyTrail(c *gin.Context) {
	if _, ok := s.requireAuth(c, "trail.read"); !ok {
		return
	}
	if err := s.trail.VerifyChain(c.Request.Context(), c.Param("avenant_id")); err != nil {
		if errors.Is(err, domain.ErrTrailTampered) {
			c.JSON(http.StatusOK, gin.H{"intact": false, "detail": err.Error()})
			return
		}
		// A store failure says nothing about the trail; surface it instead
		// of answering the integrity question.
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intact": true})
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrPreconditionFailed):
		status, code = http.StatusConflict, "PRECONDITION_FAILED"
	case errors.Is(err, domain.ErrDuplicateAvenant):
		status, code = http.StatusConflict, "DUPLICATE_AVENANT"
	case errors.Is(err, domain.ErrEmptySignature):
		status, code = http.StatusBadRequest, "EMPTY_SIGNATURE"
	case errors.Is(err, domain.ErrAlreadySigned):
		status, code = http.StatusConflict, "ALREADY_SIGNED"
	case errors.Is(err, domain.ErrStoreConflict):
		status, code = http.StatusConflict, "STORE_CONFLICT"
	case errors.Is(err, domain.ErrExternalUnavailable):
		status, code = http.StatusServiceUnavailable, "EXTERNAL_UNAVAILABLE"
	case errors.Is(err, domain.ErrInconsistentState):
		status, code = http.StatusInternalServerError, "INCONSISTENT_STATE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
