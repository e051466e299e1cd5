package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeSourceFailure, "source down", http.StatusServiceUnavailable)
	if !err.Retryable {
		t.Error("SOURCE_FAILURE should be retryable")
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"configuration", Configuration("impossible to find class"), ErrCodeConfiguration, http.StatusBadRequest, false},
		{"construction", ConstructionFailed("velib", "gbfs", cause), ErrCodeConstructionFailed, http.StatusBadGateway, false},
		{"source", SourceFailure(cause), ErrCodeSourceFailure, http.StatusServiceUnavailable, true},
		{"technical", Technical("routing matrix fail"), ErrCodeTechnical, http.StatusInternalServerError, false},
		{"external", ExternalServiceError("kraken", cause), ErrCodeExternalService, http.StatusBadGateway, true},
		{"internal", Internal(cause), ErrCodeInternal, http.StatusInternalServerError, false},
		{"missing field", MissingField("klass"), ErrCodeMissingField, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, tt.err.Retryable)
			}
		})
	}
}

func TestConstructionFailed_Details(t *testing.T) {
	cause := fmt.Errorf("missing url")
	err := ConstructionFailed("velib", "gbfs", cause)
	if err.Details["provider_id"] != "velib" {
		t.Errorf("expected provider_id=velib, got %v", err.Details["provider_id"])
	}
	if err.Details["implementation"] != "gbfs" {
		t.Errorf("expected implementation=gbfs, got %v", err.Details["implementation"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "missing url") {
		t.Errorf("expected error string to contain cause, got %q", err.Error())
	}
}

func TestAppError_Error_NoCause(t *testing.T) {
	err := Technical("routing matrix fail")
	if err.Error() != "TECHNICAL_ERROR: routing matrix fail" {
		t.Errorf("unexpected error string %q", err.Error())
	}
}

func TestNotFound_EmptyID(t *testing.T) {
	err := NotFound("mode", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("refresh: %w", SourceFailure(nil))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to find the wrapped AppError")
	}
	if appErr.Code != ErrCodeSourceFailure {
		t.Errorf("expected SOURCE_FAILURE, got %s", appErr.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected plain error not to convert")
	}
}

func TestIsCode(t *testing.T) {
	inner := Configuration("unknown implementation")
	outer := ExternalServiceError("admin", inner)

	if !IsCode(outer, ErrCodeExternalService) {
		t.Error("expected outer code to match")
	}
	if !IsCode(outer, ErrCodeConfiguration) {
		t.Error("expected wrapped cause code to match")
	}
	if IsCode(outer, ErrCodeTechnical) {
		t.Error("expected unrelated code not to match")
	}
	if IsCode(nil, ErrCodeTechnical) {
		t.Error("expected nil error not to match")
	}
	if !IsCode(fmt.Errorf("ctx: %w", inner), ErrCodeConfiguration) {
		t.Error("expected fmt-wrapped AppError to match")
	}
}

func TestToResponse(t *testing.T) {
	resp := InvalidInput("id", "empty").ToResponse()
	if resp.Error.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "id" {
		t.Errorf("expected field=id, got %v", resp.Error.Details["field"])
	}
}

func TestWithDetail(t *testing.T) {
	err := Technical("x").WithDetail("mode", "car").WithCause(fmt.Errorf("y"))
	if err.Details["mode"] != "car" {
		t.Errorf("expected mode=car, got %v", err.Details["mode"])
	}
	if err.Cause == nil {
		t.Error("expected cause to be set")
	}
}
