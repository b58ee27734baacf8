// Package loadtest drives concurrent pronunciation uploads against a running
// parrot server and verifies the responses and the audio they link to.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of uploads to submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Language   string        // Language code sent with every upload
	OutputFile string        // Report file; empty means a timestamped name
	Verbose    bool          // Log every failed upload
}

// Upload is one generated submission.
type Upload struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Filename string `json:"filename"`
	Audio    []byte `json:"-"`
}

// Assessment mirrors the POST /upload_audio success body.
type Assessment struct {
	Status                  string  `json:"status"`
	Language                string  `json:"language"`
	TargetText              string  `json:"target_text"`
	UserText                string  `json:"user_text"`
	Accuracy                float64 `json:"accuracy"`
	Feedback                string  `json:"feedback"`
	Tier                    string  `json:"tier"`
	RecordingURL            string  `json:"recording_url"`
	CorrectPronunciationURL string  `json:"correct_pronunciation_url"`
}

// Outcome classifies one upload.
type Outcome string

// Upload outcomes.
const (
	OutcomeSuccess      Outcome = "success"
	OutcomeBackpressure Outcome = "backpressure"
	OutcomeRejected     Outcome = "rejected"
	OutcomeFailed       Outcome = "failed"
)

// Result is the record of one upload.
type Result struct {
	Upload     Upload        `json:"upload"`
	Outcome    Outcome       `json:"outcome"`
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
	Assessment *Assessment   `json:"assessment,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Stats holds test statistics.
type Stats struct {
	UploadsGenerated    int
	UploadsSubmitted    int
	UploadsSuccessful   int
	UploadsBackpressure int
	UploadsRejected     int
	UploadsFailed       int
	AudioVerified       int
	AudioFailed         int
	AverageAccuracy     float64
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
