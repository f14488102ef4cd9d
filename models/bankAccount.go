package models

import "time"

// BankAccount is an operating or reserve account. Its remote id is the
// remote id of the linked GL account.
type BankAccount struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId       string    `gorm:"index;size:36;not null" json:"org_id"`
	Name        string    `gorm:"size:255" json:"name"`
	GlAccountId *string   `gorm:"size:36" json:"gl_account_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (BankAccount) TableName() string { return TableBankAccounts }

type GlAccount struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId               string    `gorm:"index;size:36;not null" json:"org_id"`
	Name                string    `gorm:"size:255" json:"name"`
	ExternalGlAccountId *int64    `gorm:"index" json:"external_gl_account_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (GlAccount) TableName() string { return TableGlAccounts }

// Transaction is a bank transaction that attachments can be filed against.
type Transaction struct {
	ID                    string    `gorm:"primaryKey;size:36" json:"id"`
	OrgId                 string    `gorm:"index;size:36;not null" json:"org_id"`
	TransactionType       string    `gorm:"size:50" json:"transaction_type"`
	BankAccountId         *string   `gorm:"size:36" json:"bank_account_id"`
	ExternalTransactionId *int64    `gorm:"index" json:"external_transaction_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (Transaction) TableName() string { return TableTransactions }
