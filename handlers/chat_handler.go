package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/services"
	"github.com/upb/knowledge-engine/utils"
)

// SearchRequest represents a similarity search request. Thresholds above 1
// are accepted: scores are clamped to [0,1], so they simply match nothing.
type SearchRequest struct {
	Query     string   `json:"query" validate:"required"`
	TopK      int      `json:"top_k" validate:"gte=0,lte=100"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0"`
}

// ChatRequest represents a retrieval-grounded chat request
type ChatRequest struct {
	Query        string   `json:"query" validate:"required"`
	TopK         int      `json:"top_k" validate:"gte=0,lte=100"`
	Threshold    *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	UseWebSearch bool     `json:"use_web_search"`
}

// ChatHandler handles retrieval and chat HTTP requests
type ChatHandler struct {
	retrieval *services.RetrievalService
	synthesis *services.SynthesisService
	logger    *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(retrieval *services.RetrievalService, synthesis *services.SynthesisService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		retrieval: retrieval,
		synthesis: synthesis,
		logger:    logger,
	}
}

// HandleSearch handles POST /v1/knowledge-bases/{kbID}/search
func (h *ChatHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	sources, err := h.retrieval.SearchKnowledgeBase(r.Context(), kbID, req.Query, req.TopK, req.Threshold)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, sources)
}

// HandleChat handles POST /v1/knowledge-bases/{kbID}/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	sources, err := h.retrieval.Retrieve(r.Context(), kbID, req.Query, services.RetrieveOptions{
		TopK:         req.TopK,
		Threshold:    req.Threshold,
		UseWebSearch: req.UseWebSearch,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	result := h.synthesis.Synthesize(r.Context(), req.Query, sources)
	_ = utils.WriteOK(w, result)
}
