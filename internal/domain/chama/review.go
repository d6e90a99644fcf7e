package chama

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Review is a single member's decision on a transaction.
type Review struct {
	MemberID string   `json:"memberId"`
	Decision Decision `json:"decision"`
}

// Reviewable is anything carrying a review list.
type Reviewable interface {
	GetReviews() []Review
}

// Outcome explains which rule produced a quorum result.
type Outcome string

const (
	OutcomeVetoed   Outcome = "VETOED"
	OutcomeApproved Outcome = "APPROVED"
	OutcomePending  Outcome = "PENDING"
)

// QuorumResult is the output of EvaluateQuorum.
type QuorumResult struct {
	Status    Status
	Outcome   Outcome
	Eligible  int
	Approvals int
	Rejector  string
}

// HasReview reports whether memberID reviewed tx. When decision is given only
// a review with that decision matches.
func HasReview(tx Reviewable, memberID string, decision ...Decision) bool {
	for _, r := range tx.GetReviews() {
		if r.MemberID != memberID {
			continue
		}
		if len(decision) == 0 {
			return true
		}
		return r.Decision == decision[0]
	}
	return false
}

// UpsertReview returns a new review list where memberID's review is added or
// replaced. The input list is not modified.
func UpsertReview(tx Reviewable, memberID string, decision Decision) []Review {
	current := tx.GetReviews()
	out := make([]Review, 0, len(current)+1)
	replaced := false
	for _, r := range current {
		if r.MemberID == memberID {
			if replaced {
				continue
			}
			r.Decision = decision
			replaced = true
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, Review{MemberID: memberID, Decision: decision})
	}
	return out
}

// EvaluateQuorum applies the review rules in order:
//  1. any REJECT vetoes the transaction,
//  2. approvals from at least every eligible admin approve it,
//  3. otherwise the fallback status stands.
//
// With no eligible admins the transaction is never approved.
func EvaluateQuorum(tx Reviewable, membership Membership, fallback Status) QuorumResult {
	eligible := membership.EligibleReviewers()
	approvals := 0
	for _, r := range tx.GetReviews() {
		switch r.Decision {
		case DecisionReject:
			return QuorumResult{Status: StatusRejected, Outcome: OutcomeVetoed, Eligible: eligible, Rejector: r.MemberID}
		case DecisionApprove:
			approvals++
		}
	}
	if eligible > 0 && approvals >= eligible {
		return QuorumResult{Status: StatusApproved, Outcome: OutcomeApproved, Eligible: eligible, Approvals: approvals}
	}
	return QuorumResult{Status: fallback, Outcome: OutcomePending, Eligible: eligible, Approvals: approvals}
}
