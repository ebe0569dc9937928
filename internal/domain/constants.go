package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Wallets a ledger entry can move.
const (
	WalletBalance   = "BALANCE"
	WalletAffiliate = "AFFILIATE"
)

const (
	TxTypeDeposit         = "DEPOSIT"
	TxTypeDebit           = "DEBIT"
	TxTypeCredit          = "CREDIT"
	TxTypeAdjustment      = "ADJUSTMENT"
	TxTypeRefund          = "REFUND"
	TxTypeWithdrawal      = "WITHDRAWAL"
	TxTypeAffiliateCredit = "AFFILIATE_CREDIT"
)

const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusRefunded  = "REFUNDED"
	TxStatusExpired   = "EXPIRED"
	TxStatusCancelled = "CANCELLED"
)

const (
	ActivationPending   = "PENDING"
	ActivationCompleted = "COMPLETED"
	ActivationCancelled = "CANCELLED"
)

const (
	WithdrawalPending   = "PENDING"
	WithdrawalApproved  = "APPROVED"
	WithdrawalCancelled = "CANCELLED"
)

const (
	JobPending = "PENDING"
	JobDone    = "DONE"
	JobFailed  = "FAILED"
)

const (
	TokenEmailConfirm  = "EMAIL_CONFIRM"
	TokenPasswordReset = "PASSWORD_RESET"
)

// SingletonID is the fixed primary key of the markup and commission rows.
const SingletonID = 1

const (
	EventActivationUpdated = "activation.updated"
	EventDepositCompleted  = "deposit.completed"
	EventBalanceUpdated    = "balance.updated"
)
