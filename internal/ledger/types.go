package ledger

// Wire types for the ledger's REST API. Field names follow the API's
// JSON contract; amounts are integer milliunits.

// Payee is one payee known to the ledger.
type Payee struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	TransferAccountID *string `json:"transfer_account_id"`
	Deleted           bool    `json:"deleted"`
}

// Transaction is the terminal artifact of one invocation: written once,
// never read back or mutated.
type Transaction struct {
	AccountID  string  `json:"account_id"`
	Date       string  `json:"date"` // calendar day, YYYY-MM-DD
	Amount     int64   `json:"amount"`
	PayeeID    *string `json:"payee_id,omitempty"`
	PayeeName  *string `json:"payee_name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Memo       *string `json:"memo,omitempty"`
	Cleared    string  `json:"cleared"`
}

// ClearedUncleared is the only cleared state this system ever writes;
// a human reviews imported transactions before reconciliation.
const ClearedUncleared = "uncleared"

type payeesResponse struct {
	Data struct {
		Payees []Payee `json:"payees"`
	} `json:"data"`
}

type createTransactionRequest struct {
	Transaction Transaction `json:"transaction"`
}

type createTransactionResponse struct {
	Data struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}
