// Package types contains the wire shapes shared by the service and the HTTP API.
package types

// Assessment is the result of one pronunciation attempt.
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

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Code string `json:"code"`
}
