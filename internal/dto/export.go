package dto

import "time"

// CreateExportRequest asks for the active schedule rendered to a file.
type CreateExportRequest struct {
	Format    string `json:"format" validate:"required,oneof=pdf ics xlsx csv"`
	TermStart string `json:"termStart" validate:"omitempty,datetime=2006-01-02"`
	Weeks     int    `json:"weeks" validate:"omitempty,min=1,max=30"`
	Timezone  string `json:"timezone" validate:"omitempty,timezone"`
}

// ExportJobResponse describes an export job and, once finished, its download link.
type ExportJobResponse struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}
