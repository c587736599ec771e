package bank

// Credentials identifies one streamer against the bank's private API.
type Credentials struct {
	Code   string
	Token  string
	Cookie string
}

// RawTransaction is one statement line as the bank reports it. Amounts
// are free-text grouped-digit strings; Direction is "+" for credits.
type RawTransaction struct {
	Reference       string `json:"refNo"`
	Description     string `json:"description"`
	CreditAmount    string `json:"creditAmount"`
	DebitAmount     string `json:"debitAmount"`
	Direction       string `json:"debitOrCredit"`
	TransactionDate string `json:"transactionDate"`
}

type historyResponse struct {
	TransactionHistoryList []RawTransaction `json:"transactionHistoryList"`
}

// transactionDateLayout matches the bank's dd/mm/yyyy timestamps.
const transactionDateLayout = "02/01/2006 15:04:05"
