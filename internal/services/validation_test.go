package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid reservation request", func(t *testing.T) {
		req := ReservationRequest{TrainID: 1, SeatsToBook: 2}
		assert.NoError(t, vh.ValidateStruct(&req))
	})

	t.Run("zero seat count fails", func(t *testing.T) {
		req := ReservationRequest{TrainID: 1, SeatsToBook: 0}
		assert.Error(t, vh.ValidateStruct(&req))
	})

	t.Run("negative seat count fails", func(t *testing.T) {
		req := ReservationRequest{TrainID: 1, SeatsToBook: -5}
		assert.Error(t, vh.ValidateStruct(&req))
	})

	t.Run("missing train fails", func(t *testing.T) {
		req := ReservationRequest{SeatsToBook: 2}
		assert.Error(t, vh.ValidateStruct(&req))
	})

	t.Run("train request requires route fields", func(t *testing.T) {
		req := TrainRequest{TrainNumber: "12951", TotalSeats: 100}
		assert.Error(t, vh.ValidateStruct(&req))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Train not found", http.StatusNotFound, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Train not found", resp.Error)
		assert.Empty(t, resp.Details)
	})

	t.Run("non-validation error adds no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Error adding trains", http.StatusInternalServerError, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Error adding trains", resp.Error)
		assert.Empty(t, resp.Details)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("validation error carries field details", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&ReservationRequest{TrainID: 1, SeatsToBook: -1})

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "SeatsToBook")
	})
}
