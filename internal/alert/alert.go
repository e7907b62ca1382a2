// Package alert holds the contracts for the device collaborators (voice
// transcription, positioning, message composition) and the emergency SOS
// composer built on them.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sahayak-health/sahayak/internal/record"
)

var (
	ErrPositionPermission = errors.New("location permission denied")
	ErrPositionTimeout    = errors.New("location lookup timed out")
	ErrMicPermission      = errors.New("microphone permission denied")
	ErrNoSpeech           = errors.New("no speech detected")
)

type Position struct {
	Lat float64
	Lng float64
}

// Positioner returns the device coordinates. Implementations are expected
// to honor ctx deadlines; callers bound the wait.
type Positioner interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Transcriber decodes a spoken utterance for a target form field.
type Transcriber interface {
	Transcribe(ctx context.Context, field string) (string, error)
}

// MessageSink hands a composed message to an external channel (SMS,
// telephony). Fire-and-forget: there is no delivery result.
type MessageSink interface {
	Send(message string)
}

// Composer builds and dispatches the emergency alert for a patient.
type Composer struct {
	positioner Positioner
	sink       MessageSink
	timeout    time.Duration
}

func NewComposer(positioner Positioner, sink MessageSink, timeout time.Duration) *Composer {
	return &Composer{positioner: positioner, sink: sink, timeout: timeout}
}

// Trigger composes the alert and hands it to the sink. A failed position
// lookup degrades to "Location unavailable"; it never blocks the alert.
func (c *Composer) Trigger(ctx context.Context, patient *record.Patient, worker *record.Worker, now time.Time) string {
	location := "Location unavailable"
	if c.positioner != nil {
		posCtx, cancel := context.WithTimeout(ctx, c.timeout)
		pos, err := c.positioner.CurrentPosition(posCtx)
		cancel()
		if err != nil {
			log.Printf("position unavailable for SOS: %v", err)
		} else {
			location = fmt.Sprintf("%.6f,%.6f", pos.Lat, pos.Lng)
		}
	}

	age := "N/A"
	if patient.Age != nil {
		age = fmt.Sprintf("%d", *patient.Age)
	}
	village := patient.Village
	if village == "" {
		village = "N/A"
	}
	workerPhone := worker.Phone
	if workerPhone == "" {
		workerPhone = "N/A"
	}

	msg := strings.Join([]string{
		"EMERGENCY ALERT",
		"Patient: " + patient.Name,
		"Age: " + age,
		"Village: " + village,
		"Worker: " + worker.Name,
		"Phone: " + workerPhone,
		"Location: " + location,
		"Time: " + now.Format("2 Jan 2006, 15:04"),
	}, "\n")

	c.sink.Send(msg)
	return msg
}
