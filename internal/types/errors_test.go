package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidLat,
		Message: "Latitude must be between -90 and 90",
	}

	expected := "validation_invalid_latitude: Latitude must be between -90 and 90"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("database connection failed")
	appErr := NewAppError(ErrCodeInternalDB, "failed to load site", underlying)

	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
	if NewAppError(ErrCodeNotFoundSite, "site not found", nil).Unwrap() != nil {
		t.Error("Unwrap should return nil when Err is nil")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeCredentialExpired, "credential has expired", nil)
	wrapped := fmt.Errorf("validate: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to extract *AppError")
	}
	if target.Code != ErrCodeCredentialExpired {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeCredentialExpired)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewAppError(ErrCodeCredentialOutOfGeofence, "too far", nil))

	if !HasCode(err, ErrCodeCredentialOutOfGeofence) {
		t.Error("HasCode should match the wrapped code")
	}
	if HasCode(err, ErrCodeCredentialExpired) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(errors.New("plain"), ErrCodeInternalDB) {
		t.Error("HasCode should be false for non-AppError")
	}
	if HasCode(nil, ErrCodeInternalDB) {
		t.Error("HasCode should be false for nil")
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeCredentialOutOfGeofence, "outside geofence", nil,
		map[string]any{"radius_m": 50.0})

	enriched := original.WithDetails(map[string]any{"distance_m": 812.4, "radius_m": 100.0})

	if enriched == original {
		t.Fatal("WithDetails must return a copy")
	}
	if enriched.Details["distance_m"] != 812.4 {
		t.Errorf("distance_m = %v", enriched.Details["distance_m"])
	}
	if enriched.Details["radius_m"] != 100.0 {
		t.Errorf("radius_m should be overwritten, got %v", enriched.Details["radius_m"])
	}
	if original.Details["radius_m"] != 50.0 || len(original.Details) != 1 {
		t.Error("original details were mutated")
	}

	fromNil := NewAppError(ErrCodeInternalDB, "x", nil).WithDetails(map[string]any{"k": "v"})
	if fromNil.Details["k"] != "v" {
		t.Error("WithDetails on nil details should create the map")
	}
}

func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeValidationInvalidLevel, http.StatusBadRequest},
		{ErrCodeValidationBatchSize, http.StatusBadRequest},
		{ErrCodeCredentialUnparseable, http.StatusBadRequest},
		{ErrCodeCredentialMalformed, http.StatusBadRequest},
		{ErrCodeCredentialTampered, http.StatusBadRequest},
		{ErrCodeCredentialInactive, http.StatusForbidden},
		{ErrCodeCredentialExpired, http.StatusForbidden},
		{ErrCodeCredentialOutOfGeofence, http.StatusForbidden},
		{ErrCodeNotFoundSite, http.StatusNotFound},
		{ErrCodeNotFoundAlert, http.StatusNotFound},
		{ErrCodeConflictAlertExists, http.StatusConflict},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeInternalCache, http.StatusInternalServerError},
		{ErrCodeUpstreamQueue, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrorCode("something_new"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
			if got := NewAppError(tt.code, "m", nil).HTTPStatus(); got != tt.want {
				t.Errorf("AppError.HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
