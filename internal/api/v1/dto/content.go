package dto

// UnlockRequestDTO asks to open one content variant.
type UnlockRequestDTO struct {
	// UserID unlocks on behalf of another account. Only admin console roles
	// may set it; the session then runs as an impersonation.
	UserID      string `json:"user_id"`
	ContentKey  string `json:"content_key" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Confirmed   bool   `json:"confirmed"`
	// EnableAutoDeduct opts the account into future automatic charges when
	// confirming this one.
	EnableAutoDeduct bool `json:"enable_auto_deduct"`

	Board       string `json:"board"`
	ClassLevel  string `json:"class_level"`
	Stream      string `json:"stream"`
	SubjectName string `json:"subject_name"`
	ChapterID   string `json:"chapter_id"`
}

// UnlockResponseDTO is the unlock answer. Payload fields are present only
// when access was granted.
type UnlockResponseDTO struct {
	Outcome string `json:"outcome"`
	Cost    int    `json:"cost,omitempty"`
	Balance int    `json:"balance"`
	Reason  string `json:"reason,omitempty"`

	Link      string       `json:"link,omitempty"`
	Playlist  []string     `json:"playlist,omitempty"`
	Body      string       `json:"body,omitempty"`
	Questions []MCQItemDTO `json:"questions,omitempty"`
}

// MCQItemDTO is one question as delivered to clients.
type MCQItemDTO struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// SaveContentDTO is the admin content upsert request.
type SaveContentDTO struct {
	ContentKey  string `json:"content_key" validate:"required"`
	Board       string `json:"board" validate:"required"`
	ClassLevel  string `json:"class_level" validate:"required"`
	Stream      string `json:"stream"`
	SubjectName string `json:"subject_name" validate:"required"`
	ChapterID   string `json:"chapter_id" validate:"required"`

	FreeLink         string   `json:"free_link"`
	PremiumLink      string   `json:"premium_link"`
	UltraPDFLink     string   `json:"ultra_pdf_link"`
	FreeVideoLink    string   `json:"free_video_link"`
	PremiumVideoLink string   `json:"premium_video_link"`
	VideoPlaylist    []string `json:"video_playlist"`
	HTMLBody         string   `json:"html_body"`

	ManualMCQs     []MCQItemDTO `json:"manual_mcqs"`
	WeeklyTestMCQs []MCQItemDTO `json:"weekly_test_mcqs"`

	Price           *int `json:"price"`
	VideoCost       *int `json:"video_cost"`
	VisualNotesCost *int `json:"visual_notes_cost"`
}
