package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Action is the outcome of a heuristic evaluation.
type Action string

const (
	ActionProceed   Action = "proceed"
	ActionBlacklist Action = "blacklist"
)

// Reason names the signal that produced a blacklist verdict.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonLowLiquidity         Reason = "low_liquidity"
	ReasonReserveRatio         Reason = "reserve_ratio"
	ReasonOwnerConcentration   Reason = "owner_concentration"
	ReasonOwnerLPConcentration Reason = "owner_lp_concentration"
	ReasonMitigationFailed     Reason = "mitigation_failed"
)

// Verdict is the decision produced for one candidate.
type Verdict struct {
	Action   Action
	Reason   Reason
	Observed decimal.Decimal
	Limit    decimal.Decimal
}

// Proceed is the verdict for a candidate that passed every check.
func Proceed() Verdict {
	return Verdict{Action: ActionProceed}
}

// Blacklist builds a blacklist verdict for reason with the compared figures.
func Blacklist(reason Reason, observed, limit decimal.Decimal) Verdict {
	return Verdict{Action: ActionBlacklist, Reason: reason, Observed: observed, Limit: limit}
}

func (v Verdict) String() string {
	if v.Action == ActionProceed {
		return string(ActionProceed)
	}
	return fmt.Sprintf("%s(%s: %s vs %s)", v.Action, v.Reason, v.Observed.String(), v.Limit.String())
}

// MitigationOutcome is the result of one helper contract submission.
type MitigationOutcome string

const (
	// MitigationPending means the transaction was sent and its receipt is
	// still awaited.
	MitigationPending   MitigationOutcome = "pending"
	MitigationConfirmed MitigationOutcome = "confirmed"
	MitigationFailed    MitigationOutcome = "failed"
)

// Settlement is the end of the receipt wait for a sent mitigation. Err is nil
// when the transaction was mined successfully.
type Settlement struct {
	Token *CandidateToken
	Tx    common.Hash
	Err   error
}
