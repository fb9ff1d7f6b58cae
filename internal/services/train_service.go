package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/railbook/backend/internal/models"
)

type TrainService struct {
	db        *sql.DB
	validator *ValidationHelper
}

// TrainRequest is one train in an administrative add. Available seats are
// never accepted from the caller; they start equal to totalSeats.
type TrainRequest struct {
	TrainNumber string `json:"trainNumber" validate:"required"`
	Source      string `json:"source" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	TotalSeats  int    `json:"totalSeats" validate:"required,gt=0"`
}

// SeatUpdateRequest overwrites a train's seat counters. Pointers distinguish
// an absent field from a legitimate zero.
type SeatUpdateRequest struct {
	TotalSeats     *int `json:"totalSeats" validate:"required,gte=0"`
	AvailableSeats *int `json:"availableSeats" validate:"required,gte=0"`
}

func NewTrainService(db *sql.DB) *TrainService {
	return &TrainService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

// AddTrains creates one or more trains
// @Summary Add trains (admin)
// @Description Insert one train or a batch; available seats start at total seats
// @Tags admin
// @Accept json
// @Produce json
// @Param request body []TrainRequest true "Train data"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/trains [post]
func (s *TrainService) AddTrains(w http.ResponseWriter, r *http.Request) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	// Accepts a single object or an array of them.
	var trains []TrainRequest
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(body, &trains)
	} else {
		var single TrainRequest
		err = json.Unmarshal(body, &single)
		trains = []TrainRequest{single}
	}
	if err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if len(trains) == 0 {
		SendErrorResponse(w, "Please provide train data to add", http.StatusBadRequest, nil)
		return
	}

	for i := range trains {
		if err := s.validator.ValidateStruct(&trains[i]); err != nil {
			SendErrorResponse(w, "Train number, source, destination, and total seats are required for each train", http.StatusBadRequest, err)
			return
		}
	}

	type addedTrain struct {
		TrainNumber string `json:"trainNumber"`
		TrainID     int    `json:"trainId"`
	}

	trainIDs := make([]addedTrain, 0, len(trains))
	for _, train := range trains {
		var id int
		err := s.db.QueryRow(`
			INSERT INTO trains (train_number, source, destination, total_seats, available_seats)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			train.TrainNumber, train.Source, train.Destination, train.TotalSeats, train.TotalSeats).
			Scan(&id)
		if err != nil {
			log.Printf("[ADMIN] Failed to add train %s: %v", train.TrainNumber, err)
			SendErrorResponse(w, "Error adding trains", http.StatusInternalServerError, nil)
			return
		}
		trainIDs = append(trainIDs, addedTrain{TrainNumber: train.TrainNumber, TrainID: id})
	}

	log.Printf("[ADMIN] Added %d train(s)", len(trainIDs))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":  "Trains added successfully",
		"trainIds": trainIDs,
	})
}

// UpdateTrainSeats overwrites a train's seat counters
// @Summary Update train seats (admin)
// @Description Overwrite total and available seat counts for a train
// @Tags admin
// @Accept json
// @Produce json
// @Param trainId path int true "Train ID"
// @Param request body SeatUpdateRequest true "Seat counts"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/trains/{trainId}/seats [put]
func (s *TrainService) UpdateTrainSeats(w http.ResponseWriter, r *http.Request) {
	trainID, err := strconv.Atoi(chi.URLParam(r, "trainId"))
	if err != nil {
		SendErrorResponse(w, "Invalid train id", http.StatusBadRequest, nil)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req SeatUpdateRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Total seats and available seats are required", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Total seats and available seats are required", http.StatusBadRequest, err)
		return
	}

	if *req.AvailableSeats > *req.TotalSeats {
		SendErrorResponse(w, "Available seats cannot be greater than total seats", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec(`
		UPDATE trains SET total_seats = $1, available_seats = $2 WHERE id = $3`,
		*req.TotalSeats, *req.AvailableSeats, trainID)
	if err != nil {
		log.Printf("[ADMIN] Failed to update seats for train %d: %v", trainID, err)
		SendErrorResponse(w, "Error updating train seats", http.StatusInternalServerError, nil)
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		SendErrorResponse(w, "Error updating train seats", http.StatusInternalServerError, nil)
		return
	}
	if rowsAffected == 0 {
		SendErrorResponse(w, "Train not found or seats not updated", http.StatusNotFound, nil)
		return
	}

	log.Printf("[ADMIN] Seats updated for train %d: total=%d available=%d", trainID, *req.TotalSeats, *req.AvailableSeats)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Seats updated successfully"})
}

// GetSeatAvailability lists trains on a route with their free seats
// @Summary Search trains by route
// @Description Case-insensitive, whitespace-trimmed exact match on source and destination
// @Tags trains
// @Produce json
// @Param source query string true "Source station"
// @Param destination query string true "Destination station"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /trains [get]
func (s *TrainService) GetSeatAvailability(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	destination := r.URL.Query().Get("destination")

	if source == "" || destination == "" {
		SendErrorResponse(w, "Source and destination are required", http.StatusBadRequest, nil)
		return
	}

	trains, err := s.findTrainsByRoute(source, destination)
	if err != nil {
		log.Printf("[TRAINS] Route search failed for %s -> %s: %v", source, destination, err)
		SendErrorResponse(w, "Error fetching seat availability", http.StatusInternalServerError, nil)
		return
	}

	if len(trains) == 0 {
		SendErrorResponse(w, "No trains available for the specified route", http.StatusNotFound, nil)
		return
	}

	withSeats := 0
	for _, train := range trains {
		if train.AvailableSeats > 0 {
			withSeats++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"available":           withSeats > 0,
		"availableTrainCount": withSeats,
		"trains":              trains,
	})
}

// findTrainsByRoute matches routes exactly after trimming and lowercasing
// both sides. No pagination, no fuzzy matching.
func (s *TrainService) findTrainsByRoute(source, destination string) ([]models.TrainAvailability, error) {
	rows, err := s.db.Query(`
		SELECT train_number, available_seats
		FROM trains
		WHERE TRIM(LOWER(source)) = $1 AND TRIM(LOWER(destination)) = $2`,
		strings.ToLower(strings.TrimSpace(source)),
		strings.ToLower(strings.TrimSpace(destination)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trains := []models.TrainAvailability{}
	for rows.Next() {
		var t models.TrainAvailability
		if err := rows.Scan(&t.TrainNumber, &t.AvailableSeats); err != nil {
			return nil, err
		}
		trains = append(trains, t)
	}

	return trains, rows.Err()
}
