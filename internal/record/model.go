package record

import "time"

type Collection string

const (
	CollectionWorkers   Collection = "workers"
	CollectionPatients  Collection = "patients"
	CollectionVisits    Collection = "visits"
	CollectionReminders Collection = "reminders"
)

// Worker is the health worker operating the device. Workers are never
// synced or cleared; they persist across logouts for re-login.
type Worker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Area      string    `json:"area"`
	CreatedAt time.Time `json:"createdAt"`
}

type Patient struct {
	ID             string    `json:"id"`
	WorkerID       string    `json:"workerId"`
	Name           string    `json:"name"`
	Age            *int      `json:"age"`
	Gender         string    `json:"gender"`
	Phone          string    `json:"phone"`
	Village        string    `json:"village"`
	Address        string    `json:"address"`
	BloodGroup     string    `json:"bloodGroup"`
	MedicalHistory string    `json:"medicalHistory"`
	Synced         bool      `json:"synced"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Visit struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patientId"`
	WorkerID      string     `json:"workerId"`
	VisitDate     time.Time  `json:"visitDate"`
	Symptoms      string     `json:"symptoms"`
	BloodPressure string     `json:"bloodPressure"`
	Temperature   string     `json:"temperature"`
	Pulse         string     `json:"pulse"`
	Weight        string     `json:"weight"`
	Diagnosis     string     `json:"diagnosis"`
	Treatment     string     `json:"treatment"`
	Notes         string     `json:"notes"`
	FollowUpDate  *time.Time `json:"followUpDate"`
	Synced        bool       `json:"synced"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Reminder is append-only after creation: only IsCompleted, CompletedAt
// and Synced may change.
type Reminder struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patientId"`
	WorkerID     string     `json:"workerId"`
	ReminderType string     `json:"reminderType"`
	ReminderDate time.Time  `json:"reminderDate"`
	Message      string     `json:"message"`
	IsCompleted  bool       `json:"isCompleted"`
	CompletedAt  *time.Time `json:"completedAt"`
	Synced       bool       `json:"synced"`
	CreatedAt    time.Time  `json:"createdAt"`
}
