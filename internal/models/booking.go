package models

import "time"

// Booking is a committed reservation. Rows are created exclusively inside the
// same transaction that decremented the train's available seats, and are
// immutable afterwards.
type Booking struct {
	ID         int       `json:"id" db:"id"`
	BookingRef string    `json:"bookingRef" db:"booking_ref"`
	UserID     int       `json:"userId" db:"user_id"`
	TrainID    int       `json:"trainId" db:"train_id"`
	Seats      int       `json:"seats" db:"seats"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// BookingDetail is a booking joined with its train's route information,
// as served by the booking history endpoint.
type BookingDetail struct {
	BookingID   int       `json:"bookingId" db:"booking_id"`
	BookingRef  string    `json:"bookingRef" db:"booking_ref"`
	Seats       int       `json:"seats" db:"seats"`
	TrainNumber string    `json:"trainNumber" db:"train_number"`
	Source      string    `json:"source" db:"source"`
	Destination string    `json:"destination" db:"destination"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
