package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/knowledge-engine/services"
	"github.com/upb/knowledge-engine/utils"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found maps to 404",
			err:        services.ErrKnowledgeBaseNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "validation maps to 400",
			err:        services.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "external maps to 502",
			err:        services.NewDomainError(services.ErrorTypeExternal, "provider down", nil),
			wantStatus: http.StatusBadGateway,
			wantError:  "bad_gateway",
		},
		{
			name:       "consistency maps to 500",
			err:        services.NewDomainError(services.ErrorTypeConsistency, "index drift", nil),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "internal maps to 500",
			err:        services.ErrInternal,
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("plain error"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp utils.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestHandleServiceError_InternalMessageIsGeneric(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.NewDomainError(services.ErrorTypeInternal, "tx deadlock on chunks", nil), zap.NewNop())

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Message, "deadlock")
}
