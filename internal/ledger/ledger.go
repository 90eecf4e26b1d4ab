// Package ledger implements the quota and credit accounting for image
// generation. All functions are pure: they compute decisions from a quota
// snapshot without touching storage, so callers decide when to persist.
package ledger

import "studioshot/internal/domain"

// Decision is the outcome of a precheck for a requested quantity.
type Decision struct {
	FreeTrialToUse int
	CreditsNeeded  int
	Sufficient     bool
}

// Precheck computes how a requested quantity would be funded from the
// current balances. It never mutates the quota.
func Precheck(quota domain.UserQuotaState, quantity int) Decision {
	freeTrial := quota.FreeTrialRemaining()
	if freeTrial > quantity {
		freeTrial = quantity
	}
	needed := quantity - freeTrial
	return Decision{
		FreeTrialToUse: freeTrial,
		CreditsNeeded:  needed,
		Sufficient:     quota.CreditsBalance >= needed,
	}
}

// Commit charges for the images actually produced, not the quantity that was
// requested. The free-trial pool is drained first, clamped both to the
// precheck decision and to what the pool still holds, and the rest comes
// from credits. The resulting charge is always less than or equal to the
// precheck estimate, and neither balance ever drops below zero.
func Commit(quota domain.UserQuotaState, producedCount, freeTrialToUse int) domain.UserQuotaState {
	if producedCount <= 0 {
		return quota
	}
	freeTrial := producedCount
	if freeTrial > freeTrialToUse {
		freeTrial = freeTrialToUse
	}
	if remaining := quota.FreeTrialRemaining(); freeTrial > remaining {
		freeTrial = remaining
	}
	if freeTrial < 0 {
		freeTrial = 0
	}
	credits := producedCount - freeTrial

	quota.FreeTrialUsed += freeTrial
	quota.CreditsBalance -= credits
	if quota.CreditsBalance < 0 {
		quota.CreditsBalance = 0
	}
	return quota
}
