package models

// TransactionStatus represents the status of a role transaction
type TransactionStatus string

const (
	TransactionStatusExecuted TransactionStatus = "EXECUTED"
	TransactionStatusFailed   TransactionStatus = "FAILED"
)

// TxReceipt is the confirmed result of a submitted role transaction
type TxReceipt struct {
	ChainID     uint64            `json:"chainId"`
	Hash        string            `json:"hash"`
	Status      TransactionStatus `json:"status"`
	BlockNumber uint64            `json:"blockNumber,omitempty"`
	GasUsed     uint64            `json:"gasUsed,omitempty"`
	Sender      string            `json:"sender,omitempty"`
	Nonce       uint64            `json:"nonce"`
}
