package dto

type ExportJobResponse struct {
	JobID       int64  `json:"job_id"`
	Status      string `json:"status"`
	FileName    string `json:"file_name,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	RowCount    int    `json:"row_count"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}
