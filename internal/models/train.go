package models

import "time"

// Train is the seat ledger row for a single service. AvailableSeats is only
// ever mutated under a row lock held by the reservation transaction, or by an
// administrative overwrite.
type Train struct {
	ID             int       `json:"id" db:"id"`
	TrainNumber    string    `json:"trainNumber" db:"train_number"`
	Source         string    `json:"source" db:"source"`
	Destination    string    `json:"destination" db:"destination"`
	TotalSeats     int       `json:"totalSeats" db:"total_seats"`
	AvailableSeats int       `json:"availableSeats" db:"available_seats"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// TrainAvailability is the projection returned by route searches.
type TrainAvailability struct {
	TrainNumber    string `json:"trainNumber"`
	AvailableSeats int    `json:"availableSeats"`
}
