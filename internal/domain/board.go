package domain

// BoardResult describes the board item created for a submission.
type BoardResult struct {
	ItemID   string `json:"item_id"`
	BoardID  string `json:"board_id,omitempty"`
	MockMode bool   `json:"mock_mode"`
}

// BoardCheck is the outcome of a board credential verification.
type BoardCheck struct {
	OK          bool   `json:"ok"`
	MockMode    bool   `json:"mock_mode"`
	APIURL      string `json:"api_url"`
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	BoardID     string `json:"board_id,omitempty"`
	BoardName   string `json:"board_name,omitempty"`
	BoardFound  *bool  `json:"board_found"`
	Error       string `json:"error,omitempty"`
}

// SubmitResult is returned after a submission is finalized.
type SubmitResult struct {
	RequestID string      `json:"request_id"`
	Summary   string      `json:"summary"`
	Monday    BoardResult `json:"monday"`
}
