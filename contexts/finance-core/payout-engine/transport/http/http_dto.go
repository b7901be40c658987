package http

// Money fields are decimal strings with two places.

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ExecutePayoutRequest struct {
	Force bool `json:"force"`
}

type PayoutCreditDTO struct {
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	Views         int64  `json:"views"`
	Amount        string `json:"amount"`
	XPDelta       string `json:"xp_delta"`
}

type PotDTO struct {
	TotalDays     int64  `json:"total_days"`
	DaysRemaining int64  `json:"days_remaining"`
	DailyBudget   string `json:"daily_budget"`
	WeeklyPot     string `json:"weekly_pot"`
	Capped        bool   `json:"capped"`
}

type PayoutResultDTO struct {
	CampaignID   string            `json:"campaign_id"`
	PayoutID     string            `json:"payout_id,omitempty"`
	Outcome      string            `json:"outcome"`
	Reason       string            `json:"reason,omitempty"`
	Retryable    bool              `json:"retryable"`
	Pot          PotDTO            `json:"pot"`
	TotalViews   int64             `json:"total_views"`
	Distributed  string            `json:"distributed"`
	BudgetBefore string            `json:"budget_before"`
	BudgetAfter  string            `json:"budget_after"`
	Credits      []PayoutCreditDTO `json:"credits"`
	NextPayoutAt string            `json:"next_payout_at,omitempty"`
	ExecutedAt   string            `json:"executed_at"`
}

type ExecutePayoutResponse struct {
	Result PayoutResultDTO `json:"result"`
}

type ExecuteAllPayoutsResponse struct {
	Paid    int               `json:"paid"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
	Results []PayoutResultDTO `json:"results"`
}

type PreviewShareDTO struct {
	UserID  string `json:"user_id"`
	Views   int64  `json:"views"`
	Amount  string `json:"amount"`
	XPDelta string `json:"xp_delta"`
}

type PayoutPreviewResponse struct {
	CampaignID  string            `json:"campaign_id"`
	Budget      string            `json:"budget"`
	Due         bool              `json:"due"`
	Pot         PotDTO            `json:"pot"`
	TotalViews  int64             `json:"total_views"`
	Distributed string            `json:"distributed"`
	Shares      []PreviewShareDTO `json:"shares"`
}

type RankingEntryDTO struct {
	Position          int    `json:"position"`
	UserID            string `json:"user_id"`
	Name              string `json:"name"`
	Tier              string `json:"tier"`
	TotalViews        int64  `json:"total_views"`
	VideoCount        int    `json:"video_count"`
	SharePercentage   string `json:"share_percentage"`
	EstimatedEarnings string `json:"estimated_earnings"`
}

type RankingResponse struct {
	CampaignID   string            `json:"campaign_id"`
	TotalViews   int64             `json:"total_views"`
	EstimatedPot string            `json:"estimated_pot"`
	Entries      []RankingEntryDTO `json:"entries"`
	GeneratedAt  string            `json:"generated_at"`
}

type StatusActionRequest struct {
	Reason string `json:"reason"`
}

type StatusActionResponse struct {
	CampaignID   string `json:"campaign_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	NextPayoutAt string `json:"next_payout_at,omitempty"`
}

type TransactionDTO struct {
	TransactionID string `json:"transaction_id"`
	PayoutID      string `json:"payout_id"`
	UserID        string `json:"user_id"`
	CampaignID    string `json:"campaign_id"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	CreatedAt     string `json:"created_at"`
}

type ListTransactionsResponse struct {
	Items []TransactionDTO `json:"items"`
}

type AccountResponse struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Balance string `json:"balance"`
	XP      string `json:"xp"`
	Tier    string `json:"tier"`
}
