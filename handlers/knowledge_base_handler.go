package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/services"
	"github.com/upb/knowledge-engine/utils"
)

// CreateKnowledgeBaseRequest represents a request to create a knowledge base
type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// KnowledgeBaseHandler handles knowledge base lifecycle HTTP requests
type KnowledgeBaseHandler struct {
	service *services.KnowledgeBaseService
	logger  *zap.Logger
}

// NewKnowledgeBaseHandler creates a new KnowledgeBaseHandler
func NewKnowledgeBaseHandler(service *services.KnowledgeBaseService, logger *zap.Logger) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /v1/knowledge-bases
func (h *KnowledgeBaseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	kb, err := h.service.CreateKnowledgeBase(r.Context(), req.Name, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, kb)
}

// HandleList handles GET /v1/knowledge-bases
func (h *KnowledgeBaseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	kbs, err := h.service.ListKnowledgeBases(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, kbs)
}

// HandleGet handles GET /v1/knowledge-bases/{kbID}
func (h *KnowledgeBaseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	kb, err := h.service.GetKnowledgeBase(r.Context(), kbID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, kb)
}

// HandleDelete handles DELETE /v1/knowledge-bases/{kbID}
func (h *KnowledgeBaseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	if err := h.service.DeleteKnowledgeBase(r.Context(), kbID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleStats handles GET /v1/knowledge-bases/{kbID}/stats
func (h *KnowledgeBaseHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	stats, err := h.service.GetStats(r.Context(), kbID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

// HandleListDocuments handles GET /v1/knowledge-bases/{kbID}/documents
func (h *KnowledgeBaseHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	docs, err := h.service.ListDocuments(r.Context(), kbID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, docs)
}

// HandleDeleteDocument handles DELETE /v1/knowledge-bases/{kbID}/documents/{docID}
func (h *KnowledgeBaseHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}
	docID, ok := parseIDParam(w, r, "docID")
	if !ok {
		return
	}

	if err := h.service.DeleteDocument(r.Context(), kbID, docID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// parseIDParam extracts and parses a UUID path parameter, writing a 400 on failure
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid "+name+" format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// toDetails widens a field error map into response details
func toDetails(fields map[string]string) map[string]interface{} {
	if fields == nil {
		return nil
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
