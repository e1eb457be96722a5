package model

// DebitJob is a wallet debit awaiting reconciliation after a failed
// post-commit attempt. The memo makes replays idempotent in the ledger.
type DebitJob struct {
	UserID      int    `json:"user_id"`
	Amount      int    `json:"amount"`
	Memo        string `json:"memo"`
	SessionCode string `json:"session_code"`
	Attempts    int    `json:"attempts"`
}
