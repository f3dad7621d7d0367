package types

import "github.com/shopspring/decimal"

type AccountType string

type TxKind string

type OrderDirection string

type OrderStatus string

type WithdrawalStatus string

type AffiliateStatus string

const (
	AccountTypeReal AccountType = "real"
	AccountTypeDemo AccountType = "demo"
)

const (
	TxKindDeposit     TxKind = "deposit"
	TxKindWithdrawal  TxKind = "withdrawal"
	TxKindOrderDebit  TxKind = "order_debit"
	TxKindOrderProfit TxKind = "order_profit"
)

const (
	OrderDirectionCall OrderDirection = "CALL"
	OrderDirectionPut  OrderDirection = "PUT"
)

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusActive  OrderStatus = "ACTIVE"
	OrderStatusWon     OrderStatus = "WON"
	OrderStatusLost    OrderStatus = "LOST"
)

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved  WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected  WithdrawalStatus = "REJECTED"
	WithdrawalStatusCompleted WithdrawalStatus = "COMPLETED"
)

const (
	AffiliateStatusPending   AffiliateStatus = "PENDING"
	AffiliateStatusCompleted AffiliateStatus = "COMPLETED"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeReal || t == AccountTypeDemo
}

func (k TxKind) Valid() bool {
	switch k {
	case TxKindDeposit, TxKindWithdrawal, TxKindOrderDebit, TxKindOrderProfit:
		return true
	}
	return false
}

// Credits reports whether the kind increases the balance. Amounts are always
// positive; the kind carries the direction of effect.
func (k TxKind) Credits() bool {
	return k == TxKindDeposit || k == TxKindOrderProfit
}

func (d OrderDirection) Valid() bool {
	return d == OrderDirectionCall || d == OrderDirectionPut
}

// Account identifies a balance: one user holds at most one real and one demo
// account. There is no stored balance field; balance is derived from the ledger.
type Account struct {
	UserID string      `json:"user_id"`
	Type   AccountType `json:"account_type"`
}

func (a Account) Key() string {
	return a.UserID + ":" + string(a.Type)
}

func RealAccount(userID string) Account {
	return Account{UserID: userID, Type: AccountTypeReal}
}

func DemoAccount(userID string) Account {
	return Account{UserID: userID, Type: AccountTypeDemo}
}

// Signed folds a transaction amount into a running balance.
func Signed(k TxKind, amount decimal.Decimal) decimal.Decimal {
	if k.Credits() {
		return amount
	}
	return amount.Neg()
}
