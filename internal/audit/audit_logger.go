package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	BookingRef string    `json:"booking_ref,omitempty"`
	UserID     int       `json:"user_id"`
	TrainID    int       `json:"train_id"`
	Seats      int       `json:"seats,omitempty"`
	Status     string    `json:"status"`
	Details    any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

// LogReservation records the terminal outcome of a reservation attempt.
func (a *Logger) LogReservation(bookingRef string, userID, trainID, seats int, status string) {
	a.log(Event{
		Timestamp:  time.Now(),
		EventType:  "RESERVATION",
		BookingRef: bookingRef,
		UserID:     userID,
		TrainID:    trainID,
		Seats:      seats,
		Status:     status,
	})
}

func (a *Logger) LogError(userID, trainID int, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		UserID:    userID,
		TrainID:   trainID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) LogCheckIn(bookingRef string, userID int, status string) {
	a.log(Event{
		Timestamp:  time.Now(),
		EventType:  "CHECK_IN",
		BookingRef: bookingRef,
		UserID:     userID,
		Status:     status,
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
