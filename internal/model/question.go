package model

import "time"

// MCQItem is a single multiple-choice question.
type MCQItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Challenge is an assembled timed test: the daily challenge or a weekly test.
type Challenge struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Questions []MCQItem `json:"questions"`
}

// TestAttempt records one submitted test.
type TestAttempt struct {
	ID          string    `db:"attempt_id" json:"attempt_id"`
	TestID      string    `db:"test_id" json:"test_id"`
	TestName    string    `db:"test_name" json:"test_name"`
	UserID      string    `db:"user_id" json:"user_id"`
	Score       int       `db:"score" json:"score"`
	Total       int       `db:"total" json:"total"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}
