package models

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// DatasetUploadResponse reports which uploaded files were stored.
type DatasetUploadResponse struct {
	Message string   `json:"message"`
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
}

// HealthMetrics is returned by the metrics endpoint.
type HealthMetrics struct {
	Status            string `json:"status"`
	TotalTracks       int    `json:"totalTracks"`
	TotalFingerprints int64  `json:"totalFingerprints"`
	DatasetFiles      int    `json:"datasetFiles"`
}
