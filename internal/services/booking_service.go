package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/railbook/backend/internal/audit"
	"github.com/railbook/backend/internal/config"
	"github.com/railbook/backend/internal/models"
	"github.com/skip2/go-qrcode"
)

// Reservation outcomes. Exactly one is reported per attempt.
const (
	OutcomeBooked            = "booked"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientSeats = "insufficient_seats"
	OutcomeFailure           = "failure"
)

var (
	ErrTrainNotFound     = errors.New("train not found")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrInvalidSeatCount  = errors.New("seats to book must be a positive integer")
)

type BookingService struct {
	db        *sql.DB
	redis     *redis.Client
	audit     *audit.Logger
	validator *ValidationHelper
	tickets   *config.TicketConfig
}

// ReservationRequest is the booking payload. Seat count positivity is
// enforced here, before any lock is taken.
type ReservationRequest struct {
	TrainID     int `json:"trainId" validate:"required,gt=0"`
	SeatsToBook int `json:"seatsToBook" validate:"required,gt=0"`
}

// ReservationResponse carries the closed outcome set; detail is diagnostic
// only and callers must not branch on it.
type ReservationResponse struct {
	Outcome    string `json:"outcome"`
	BookingRef string `json:"bookingRef,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func NewBookingService(db *sql.DB, redisClient *redis.Client) *BookingService {
	return &BookingService{
		db:        db,
		redis:     redisClient,
		audit:     audit.NewLogger(),
		validator: NewValidationHelper(),
		tickets:   config.LoadTicketConfig(),
	}
}

// ReserveSeats books seatsToBook seats on a train for a user as one atomic
// unit: lock the train row, check capacity under the lock, decrement the
// counter and insert the booking, then commit. Concurrent attempts against
// the same train serialize on the row lock; attempts against different
// trains do not contend. The deferred Rollback is a no-op after Commit and
// releases the lock and connection on every failure path.
func (s *BookingService) ReserveSeats(ctx context.Context, userID, trainID, seatsToBook int) (*models.Booking, error) {
	if seatsToBook <= 0 {
		return nil, ErrInvalidSeatCount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reservation: %w", err)
	}
	defer tx.Rollback()

	train, err := s.lockTrain(tx, trainID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTrainNotFound
		}
		return nil, fmt.Errorf("lock train %d: %w", trainID, err)
	}

	// Race-free only because the row lock from lockTrain is still held.
	if train.AvailableSeats < seatsToBook {
		return nil, ErrInsufficientSeats
	}

	if err := s.decrementAvailableSeats(tx, trainID, seatsToBook); err != nil {
		return nil, err
	}

	booking, err := s.insertBooking(tx, userID, trainID, seatsToBook)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}

	return booking, nil
}

// lockTrain reads the seat counters while taking an exclusive row lock.
// The lock is held until the surrounding transaction commits or rolls back.
func (s *BookingService) lockTrain(tx *sql.Tx, trainID int) (*models.Train, error) {
	train := &models.Train{ID: trainID}
	err := tx.QueryRow(`
		SELECT total_seats, available_seats
		FROM trains
		WHERE id = $1
		FOR UPDATE`, trainID).Scan(&train.TotalSeats, &train.AvailableSeats)
	if err != nil {
		return nil, err
	}
	return train, nil
}

// decrementAvailableSeats subtracts seats from the locked train row. The
// available_seats >= $1 guard means the counter can never go negative even
// if the caller skipped the capacity check.
func (s *BookingService) decrementAvailableSeats(tx *sql.Tx, trainID, seats int) error {
	result, err := tx.Exec(`
		UPDATE trains
		SET available_seats = available_seats - $1
		WHERE id = $2 AND available_seats >= $1`,
		seats, trainID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

func (s *BookingService) insertBooking(tx *sql.Tx, userID, trainID, seats int) (*models.Booking, error) {
	booking := &models.Booking{
		BookingRef: uuid.NewString(),
		UserID:     userID,
		TrainID:    trainID,
		Seats:      seats,
		CreatedAt:  time.Now(),
	}

	err := tx.QueryRow(`
		INSERT INTO bookings (booking_ref, user_id, train_id, seats, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		booking.BookingRef, booking.UserID, booking.TrainID, booking.Seats, booking.CreatedAt).
		Scan(&booking.ID)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// BookSeat handles a seat reservation request
// @Summary Reserve seats on a train
// @Description Atomically reserve seats for the authenticated user
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body ReservationRequest true "Reservation request"
// @Success 200 {object} ReservationResponse
// @Failure 400 {object} ReservationResponse
// @Failure 404 {object} ReservationResponse
// @Failure 500 {object} ReservationResponse
// @Router /bookings [post]
func (s *BookingService) BookSeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ReservationRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log.Printf("[BOOKING] Reservation request: user=%d train=%d seats=%d", userID, req.TrainID, req.SeatsToBook)

	booking, err := s.ReserveSeats(r.Context(), userID, req.TrainID, req.SeatsToBook)
	if err != nil {
		s.writeReservationError(w, userID, req.TrainID, req.SeatsToBook, err)
		return
	}

	s.audit.LogReservation(booking.BookingRef, userID, req.TrainID, req.SeatsToBook, "COMMITTED")
	log.Printf("[BOOKING] Seats booked: ref=%s user=%d train=%d seats=%d", booking.BookingRef, userID, req.TrainID, req.SeatsToBook)

	// Post-commit, best-effort: downstream consumers pick bookings up from
	// the queue, they are not part of the reservation's atomicity.
	if err := s.queueBookingEvent(r.Context(), booking); err != nil {
		log.Printf("[BOOKING] Failed to queue booking event for %s: %v", booking.BookingRef, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReservationResponse{
		Outcome:    OutcomeBooked,
		BookingRef: booking.BookingRef,
	})
}

func (s *BookingService) writeReservationError(w http.ResponseWriter, userID, trainID, seats int, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.Is(err, ErrTrainNotFound):
		log.Printf("[BOOKING] Train not found: train=%d user=%d", trainID, userID)
		s.audit.LogReservation("", userID, trainID, seats, "REJECTED_NOT_FOUND")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ReservationResponse{Outcome: OutcomeNotFound})
	case errors.Is(err, ErrInsufficientSeats):
		log.Printf("[BOOKING] Insufficient seats: train=%d user=%d requested=%d", trainID, userID, seats)
		s.audit.LogReservation("", userID, trainID, seats, "REJECTED_CAPACITY")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ReservationResponse{Outcome: OutcomeInsufficientSeats})
	case errors.Is(err, ErrInvalidSeatCount):
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ReservationResponse{Outcome: OutcomeFailure, Detail: err.Error()})
	default:
		log.Printf("[BOOKING] Reservation failed: train=%d user=%d: %v", trainID, userID, err)
		s.audit.LogError(userID, trainID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ReservationResponse{Outcome: OutcomeFailure, Detail: err.Error()})
	}
}

func (s *BookingService) queueBookingEvent(ctx context.Context, booking *models.Booking) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(booking)
	if err != nil {
		return err
	}

	return s.redis.RPush(ctx, s.tickets.QueueName, data).Err()
}

// GetBookingDetails lists the authenticated user's bookings
// @Summary Get booking history
// @Description List the user's bookings joined with train route details
// @Tags bookings
// @Produce json
// @Success 200 {array} models.BookingDetail
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /bookings [get]
func (s *BookingService) GetBookingDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT b.id AS booking_id, b.booking_ref, b.seats, t.train_number, t.source, t.destination, b.created_at
		FROM bookings b
		JOIN trains t ON b.train_id = t.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`, userID)
	if err != nil {
		log.Printf("[BOOKING] Failed to fetch bookings for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch booking details", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	bookings := []models.BookingDetail{}
	for rows.Next() {
		var b models.BookingDetail
		if err := rows.Scan(&b.BookingID, &b.BookingRef, &b.Seats, &b.TrainNumber, &b.Source, &b.Destination, &b.CreatedAt); err != nil {
			log.Printf("[BOOKING] Failed to scan booking row for user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch booking details", http.StatusInternalServerError, nil)
			return
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[BOOKING] Booking rows iteration failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch booking details", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

// GetTicket issues a QR check-in code for a booking
// @Summary Get ticket QR code
// @Description Issue a one-shot check-in code and QR image for a committed booking
// @Tags bookings
// @Produce json
// @Param bookingRef path string true "Booking reference"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /bookings/{bookingRef}/ticket [get]
func (s *BookingService) GetTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if s.redis == nil {
		SendErrorResponse(w, "Ticket issuing unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	bookingRef := chi.URLParam(r, "bookingRef")

	var trainID, seats int
	err := s.db.QueryRow(`
		SELECT train_id, seats FROM bookings
		WHERE booking_ref = $1 AND user_id = $2`,
		bookingRef, userID).Scan(&trainID, &seats)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Booking not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[TICKET] Failed to fetch booking %s: %v", bookingRef, err)
			SendErrorResponse(w, "Failed to issue ticket", http.StatusInternalServerError, nil)
		}
		return
	}

	payload := map[string]any{
		"bookingRef": bookingRef,
		"trainId":    trainID,
		"seats":      seats,
		"issuedAt":   time.Now().Unix(),
		"nonce":      generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		SendErrorResponse(w, "Failed to issue ticket", http.StatusInternalServerError, nil)
		return
	}

	code := base64.URLEncoding.EncodeToString(jsonData)
	key := fmt.Sprintf("%s:%s", s.tickets.CodeKeyPrefix, code)
	if err := s.redis.Set(r.Context(), key, jsonData, s.tickets.CodeTTL).Err(); err != nil {
		log.Printf("[TICKET] Failed to store check-in code for %s: %v", bookingRef, err)
		SendErrorResponse(w, "Failed to issue ticket", http.StatusInternalServerError, nil)
		return
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		SendErrorResponse(w, "Failed to issue ticket", http.StatusInternalServerError, nil)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.tickets.QRImageSize)); err != nil {
		SendErrorResponse(w, "Failed to issue ticket", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"qrImage": base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// CheckIn consumes a ticket check-in code
// @Summary Check in with a ticket code
// @Description Validate and consume a one-shot check-in code
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body map[string]string true "Check-in request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /bookings/check-in [post]
func (s *BookingService) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if s.redis == nil {
		SendErrorResponse(w, "Check-in unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	key := fmt.Sprintf("%s:%s", s.tickets.CodeKeyPrefix, req.Code)
	data, err := s.redis.Get(r.Context(), key).Bytes()
	if err == redis.Nil {
		SendErrorResponse(w, "Invalid or expired check-in code", http.StatusBadRequest, nil)
		return
	}
	if err != nil {
		log.Printf("[TICKET] Check-in lookup failed: %v", err)
		SendErrorResponse(w, "Check-in failed", http.StatusInternalServerError, nil)
		return
	}

	var ticket map[string]any
	if err := json.Unmarshal(data, &ticket); err != nil {
		SendErrorResponse(w, "Check-in failed", http.StatusInternalServerError, nil)
		return
	}

	// One-shot: whoever deletes the key wins. Concurrent presentations of
	// the same code can all pass the Get, so the Del count is the arbiter.
	deleted, err := s.redis.Del(r.Context(), key).Result()
	if err != nil {
		log.Printf("[TICKET] Check-in consume failed: %v", err)
		SendErrorResponse(w, "Check-in failed", http.StatusInternalServerError, nil)
		return
	}
	if deleted == 0 {
		SendErrorResponse(w, "Invalid or expired check-in code", http.StatusBadRequest, nil)
		return
	}

	bookingRef, _ := ticket["bookingRef"].(string)
	s.audit.LogCheckIn(bookingRef, userID, "SUCCESS")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"checkedIn": true,
		"ticket":    ticket,
	})
}

func userIDFromContext(r *http.Request) (int, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	userID, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return userID, true
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
