package notify

import (
	"context"
	"log"
)

// Notifier is the hook the publication gate calls when a semester's results
// become visible. Delivery (email/SMS) lives outside this core.
type Notifier interface {
	ResultsPublished(ctx context.Context, semesterID string, students int)
}

// Noop logs and drops the notification.
type Noop struct{}

func (Noop) ResultsPublished(_ context.Context, semesterID string, students int) {
	log.Printf("results published for semester %s (%d students); notification delivery not configured", semesterID, students)
}
