package api

import (
	"time"

	"github.com/sahayak-health/sahayak/internal/sync"
)

type LoginRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	Area  string `json:"area"`
}

type PatientRequest struct {
	Name           string `json:"name"`
	Age            *int   `json:"age"`
	Gender         string `json:"gender"`
	Phone          string `json:"phone"`
	Village        string `json:"village"`
	Address        string `json:"address"`
	BloodGroup     string `json:"bloodGroup"`
	MedicalHistory string `json:"medicalHistory"`
}

type VisitRequest struct {
	VisitDate     *time.Time `json:"visitDate"`
	Symptoms      string     `json:"symptoms"`
	BloodPressure string     `json:"bloodPressure"`
	Temperature   string     `json:"temperature"`
	Pulse         string     `json:"pulse"`
	Weight        string     `json:"weight"`
	Diagnosis     string     `json:"diagnosis"`
	Treatment     string     `json:"treatment"`
	Notes         string     `json:"notes"`
	FollowUpDate  *time.Time `json:"followUpDate"`
}

type ReminderRequest struct {
	ReminderType string    `json:"reminderType"`
	ReminderDate time.Time `json:"reminderDate"`
	Message      string    `json:"message"`
}

type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

type SyncResponse struct {
	sync.Result
	Message string `json:"message"`
}

type ImportResponse struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type SOSResponse struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
