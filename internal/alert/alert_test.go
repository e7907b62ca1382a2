package alert_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayak-health/sahayak/internal/alert"
	"github.com/sahayak-health/sahayak/internal/record"
)

type mockPositioner struct {
	CurrentPositionFunc func(ctx context.Context) (alert.Position, error)
}

var _ alert.Positioner = (*mockPositioner)(nil)

func (m *mockPositioner) CurrentPosition(ctx context.Context) (alert.Position, error) {
	return m.CurrentPositionFunc(ctx)
}

type captureSink struct {
	messages []string
}

var _ alert.MessageSink = (*captureSink)(nil)

func (s *captureSink) Send(message string) {
	s.messages = append(s.messages, message)
}

var alertTime = time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func TestTriggerWithPosition(t *testing.T) {
	positioner := &mockPositioner{
		CurrentPositionFunc: func(context.Context) (alert.Position, error) {
			return alert.Position{Lat: 26.846694, Lng: 80.946166}, nil
		},
	}
	sink := &captureSink{}
	composer := alert.NewComposer(positioner, sink, time.Second)

	patient := &record.Patient{Name: "Meena Devi", Age: intPtr(34), Village: "Rampur"}
	worker := &record.Worker{Name: "Sunita", Phone: "9000000001"}

	msg := composer.Trigger(context.Background(), patient, worker, alertTime)

	want := "EMERGENCY ALERT\n" +
		"Patient: Meena Devi\n" +
		"Age: 34\n" +
		"Village: Rampur\n" +
		"Worker: Sunita\n" +
		"Phone: 9000000001\n" +
		"Location: 26.846694,80.946166\n" +
		"Time: 15 Mar 2025, 14:30"
	assert.Equal(t, want, msg)

	require.Len(t, sink.messages, 1)
	assert.Equal(t, msg, sink.messages[0])
}

func TestTriggerPositionFailureDegrades(t *testing.T) {
	positioner := &mockPositioner{
		CurrentPositionFunc: func(context.Context) (alert.Position, error) {
			return alert.Position{}, alert.ErrPositionTimeout
		},
	}
	sink := &captureSink{}
	composer := alert.NewComposer(positioner, sink, time.Second)

	patient := &record.Patient{Name: "Meena Devi", Age: intPtr(34), Village: "Rampur"}
	worker := &record.Worker{Name: "Sunita", Phone: "9000000001"}

	msg := composer.Trigger(context.Background(), patient, worker, alertTime)
	assert.Contains(t, msg, "Location: Location unavailable")
	assert.Len(t, sink.messages, 1)
}

func TestTriggerWithoutPositioner(t *testing.T) {
	sink := &captureSink{}
	composer := alert.NewComposer(nil, sink, time.Second)

	patient := &record.Patient{Name: "Meena Devi"}
	worker := &record.Worker{Name: "Sunita"}

	msg := composer.Trigger(context.Background(), patient, worker, alertTime)
	assert.Contains(t, msg, "Location: Location unavailable")
}

func TestTriggerMissingFieldsFallBack(t *testing.T) {
	sink := &captureSink{}
	composer := alert.NewComposer(nil, sink, time.Second)

	patient := &record.Patient{Name: "Meena Devi"}
	worker := &record.Worker{Name: "Sunita"}

	msg := composer.Trigger(context.Background(), patient, worker, alertTime)
	assert.Contains(t, msg, "Age: N/A")
	assert.Contains(t, msg, "Village: N/A")
	assert.Contains(t, msg, "Phone: N/A")
}

func TestTriggerHonorsTimeout(t *testing.T) {
	positioner := &mockPositioner{
		CurrentPositionFunc: func(ctx context.Context) (alert.Position, error) {
			<-ctx.Done()
			return alert.Position{}, ctx.Err()
		},
	}
	sink := &captureSink{}
	composer := alert.NewComposer(positioner, sink, 10*time.Millisecond)

	start := time.Now()
	msg := composer.Trigger(context.Background(), &record.Patient{Name: "X"}, &record.Worker{Name: "Y"}, alertTime)
	assert.Less(t, time.Since(start), time.Second)
	assert.Contains(t, msg, "Location: Location unavailable")
}
