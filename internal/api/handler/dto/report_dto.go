package dto

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

// ReportResponse wraps a report result: the formatted rows, their count and
// the CSV file the run wrote.
type ReportResponse[T any] struct {
	Report string `json:"report"`
	File   string `json:"file"`
	Count  int    `json:"count"`
	Rows   []T    `json:"rows"`
}

func NewReportResponse[T any](report, file string, rows []T) ReportResponse[T] {
	return ReportResponse[T]{
		Report: report,
		File:   file,
		Count:  len(rows),
		Rows:   rows,
	}
}

type ViewResponse struct {
	View   string `json:"view"`
	Status string `json:"status"`
}
