package event

import (
	"context"
	"time"
)

// ReportGeneratedEvent announces a completed report export.
type ReportGeneratedEvent struct {
	RunID       string    `json:"runId"`
	Report      string    `json:"report"`
	RowCount    int       `json:"rowCount"`
	File        string    `json:"file"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Publisher interface {
	PublishReportGenerated(ctx context.Context, event ReportGeneratedEvent) error
}
