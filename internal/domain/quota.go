package domain

// FreeTrialLimit is the lifetime allotment of zero-cost generations granted
// to every account.
const FreeTrialLimit = 3

// UserQuotaState holds the two balances that gate generation: purchased
// credits and the lifetime free-trial counter. Both start at zero when the
// account is created. Only the ledger (this pipeline) and the payment
// webhook collaborator mutate it.
type UserQuotaState struct {
	CreditsBalance int
	FreeTrialUsed  int
}

// FreeTrialRemaining returns how many free-trial generations are left.
func (q UserQuotaState) FreeTrialRemaining() int {
	remaining := FreeTrialLimit - q.FreeTrialUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
