package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sahayak-health/sahayak/internal/db"
	"github.com/sahayak-health/sahayak/internal/record"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "sahayak.db"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqldb, err := db.OpenSQLite(ctx, path)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer sqldb.Close()

	gofakeit.Seed(time.Now().UnixNano())

	store := record.NewSQLiteStore(sqldb)
	service := record.NewService(store)

	worker, err := service.RegisterWorker(ctx, record.WorkerDraft{
		Name:  gofakeit.Name(),
		Phone: gofakeit.Phone(),
		Role:  "ASHA",
		Area:  gofakeit.City(),
	})
	if err != nil {
		log.Fatalf("seed worker: %v", err)
	}
	log.Printf("seeded worker %s (%s)", worker.Name, worker.ID)

	villages := []string{"Rampur", "Lakshmipur", "Devgarh", "Sonpura", "Chandangaon"}
	bloodGroups := []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}
	reminderTypes := []string{"Vaccination", "Medicine Refill", "Follow-up Visit", "Checkup"}

	const patientCount = 40

	for i := 0; i < patientCount; i++ {
		age := gofakeit.Number(1, 90)
		patient, err := service.CreatePatient(ctx, record.PatientDraft{
			WorkerID:       worker.ID,
			Name:           gofakeit.Name(),
			Age:            &age,
			Gender:         gofakeit.RandomString([]string{"Male", "Female"}),
			Phone:          gofakeit.Phone(),
			Village:        gofakeit.RandomString(villages),
			Address:        gofakeit.Street(),
			BloodGroup:     gofakeit.RandomString(bloodGroups),
			MedicalHistory: gofakeit.Sentence(8),
		})
		if err != nil {
			log.Fatalf("seed patient: %v", err)
		}

		for v := 0; v < gofakeit.Number(0, 3); v++ {
			_, err := service.CreateVisit(ctx, record.VisitDraft{
				PatientID:     patient.ID,
				WorkerID:      worker.ID,
				VisitDate:     gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
				Symptoms:      gofakeit.Sentence(5),
				BloodPressure: fmt.Sprintf("%d/%d", gofakeit.Number(100, 160), gofakeit.Number(60, 100)),
				Temperature:   fmt.Sprintf("%.1f", gofakeit.Float64Range(97.0, 103.0)),
				Pulse:         fmt.Sprintf("%d", gofakeit.Number(55, 110)),
				Weight:        fmt.Sprintf("%d", gofakeit.Number(10, 95)),
				Diagnosis:     gofakeit.Sentence(4),
				Treatment:     gofakeit.Sentence(4),
			})
			if err != nil {
				log.Fatalf("seed visit: %v", err)
			}
		}

		if gofakeit.Bool() {
			_, err := service.CreateReminder(ctx, record.ReminderDraft{
				PatientID:    patient.ID,
				WorkerID:     worker.ID,
				ReminderType: gofakeit.RandomString(reminderTypes),
				ReminderDate: gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 1, 0)),
				Message:      gofakeit.Sentence(6),
			})
			if err != nil {
				log.Fatalf("seed reminder: %v", err)
			}
		}

		if (i+1)%10 == 0 {
			log.Printf("patients seeded: %d/%d", i+1, patientCount)
		}
	}

	log.Println("seed complete")
}
