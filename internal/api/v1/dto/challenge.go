package dto

import "time"

// ChallengeResponseDTO is an assembled test paper. Questions carry no answer
// key; grading happens on submit.
type ChallengeResponseDTO struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Questions []ChallengeQuestionDTO `json:"questions"`
}

// ChallengeQuestionDTO is one question as presented to the test taker.
type ChallengeQuestionDTO struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SubmitTestDTO records a finished test. For daily challenges Answers holds
// the chosen option index per question and the score fields are ignored.
type SubmitTestDTO struct {
	TestID    string    `json:"test_id" validate:"required"`
	TestName  string    `json:"test_name"`
	Answers   []int     `json:"answers"`
	Score     int       `json:"score" validate:"min=0"`
	Total     int       `json:"total" validate:"min=0"`
	StartedAt time.Time `json:"started_at"`
}

// TestResultResponseDTO is the submission answer.
type TestResultResponseDTO struct {
	AttemptID string `json:"attempt_id"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}
