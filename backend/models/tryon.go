// ABOUTME: Virtual try-on request and job models
// ABOUTME: Job status values follow the inference API (starting, processing, completed, failed)

package models

const (
	TryOnStarting   = "starting"
	TryOnProcessing = "processing"
	TryOnCompleted  = "completed"
	TryOnFailed     = "failed"
)

// TryOnRequest pairs a person photo with a garment image
type TryOnRequest struct {
	PersonImageURL  string `json:"person_image_url" validate:"required,url"`
	GarmentImageURL string `json:"garment_image_url" validate:"required,url"`
	Category        string `json:"category,omitempty" validate:"omitempty,oneof=upper_body lower_body dresses"`
}

// TryOnJob is the inference API's view of a job
type TryOnJob struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`

	// Attempts is the number of status polls it took to reach this state
	Attempts int `json:"-"`
}

// ResultURL is the first output image of a completed job
func (j *TryOnJob) ResultURL() string {
	if len(j.Output) == 0 {
		return ""
	}
	return j.Output[0]
}

// Terminal reports whether polling can stop
func (j *TryOnJob) Terminal() bool {
	return j.Status == TryOnCompleted || j.Status == TryOnFailed
}

// TryOnResponse is returned to the client
type TryOnResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}
