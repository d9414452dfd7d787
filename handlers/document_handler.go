package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/internal/parser"
	"github.com/upb/knowledge-engine/services"
	"github.com/upb/knowledge-engine/utils"
)

// maxUploadBytes caps multipart uploads at 32 MiB
const maxUploadBytes = 32 << 20

// DocumentHandler handles document upload HTTP requests
type DocumentHandler struct {
	ingest *services.IngestService
	parser parser.Parser
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(ingest *services.IngestService, fileParser parser.Parser, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingest: ingest,
		parser: fileParser,
		logger: logger,
	}
}

// HandleUpload handles POST /v1/knowledge-bases/{kbID}/documents.
// The document is sent as a multipart form with a single "file" field.
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	kbID, ok := parseIDParam(w, r, "kbID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Missing \"file\" field", nil)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Failed to read uploaded file", nil)
		return
	}

	content, err := h.parser.Parse(raw, header.Filename)
	if err != nil {
		var unsupported *parser.ErrUnsupportedFormat
		if errors.As(err, &unsupported) {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		_ = utils.WriteBadRequest(w, "Failed to extract text: "+err.Error(), nil)
		return
	}

	doc, err := h.ingest.IngestDocument(r.Context(), kbID, header.Filename, raw, content)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, doc)
}
