package chama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admins(ids ...string) Membership {
	m := Membership{ChamaID: "chama-1"}
	for _, id := range ids {
		m.Members = append(m.Members, Member{ID: id, Roles: []Role{RoleAdmin}})
	}
	return m
}

func withReviews(reviews ...Review) *Transaction {
	return &Transaction{Status: StatusPending, Reviews: reviews}
}

func TestHasReview(t *testing.T) {
	tx := withReviews(
		Review{MemberID: "a1", Decision: DecisionApprove},
		Review{MemberID: "a2", Decision: DecisionReject},
	)

	assert.True(t, HasReview(tx, "a1"))
	assert.True(t, HasReview(tx, "a1", DecisionApprove))
	assert.False(t, HasReview(tx, "a1", DecisionReject))
	assert.True(t, HasReview(tx, "a2", DecisionReject))
	assert.False(t, HasReview(tx, "a3"))
	assert.False(t, HasReview(withReviews(), "a1"))
}

func TestUpsertReview(t *testing.T) {
	t.Run("adds a new reviewer", func(t *testing.T) {
		tx := withReviews(Review{MemberID: "a1", Decision: DecisionApprove})

		reviews := UpsertReview(tx, "a2", DecisionApprove)

		require.Len(t, reviews, 2)
		assert.Equal(t, Review{MemberID: "a2", Decision: DecisionApprove}, reviews[1])
		assert.Len(t, tx.Reviews, 1, "input must not be modified")
	})

	t.Run("replaces the latest decision", func(t *testing.T) {
		tx := withReviews()
		tx.Reviews = UpsertReview(tx, "a1", DecisionApprove)
		tx.Reviews = UpsertReview(tx, "a1", DecisionReject)

		require.Len(t, tx.Reviews, 1)
		assert.Equal(t, DecisionReject, tx.Reviews[0].Decision)
	})

	t.Run("keeps order and does not alias the input", func(t *testing.T) {
		tx := withReviews(
			Review{MemberID: "a1", Decision: DecisionApprove},
			Review{MemberID: "a2", Decision: DecisionApprove},
		)

		reviews := UpsertReview(tx, "a1", DecisionReject)

		require.Len(t, reviews, 2)
		assert.Equal(t, "a1", reviews[0].MemberID)
		assert.Equal(t, DecisionReject, reviews[0].Decision)
		assert.Equal(t, DecisionApprove, tx.Reviews[0].Decision)
	})
}

func TestEvaluateQuorum(t *testing.T) {
	three := admins("a1", "a2", "a3")

	tests := []struct {
		name       string
		membership Membership
		reviews    []Review
		expected   Status
		outcome    Outcome
	}{
		{
			name:       "veto beats two of three approvals",
			membership: three,
			reviews: []Review{
				{MemberID: "a1", Decision: DecisionApprove},
				{MemberID: "a2", Decision: DecisionApprove},
				{MemberID: "a3", Decision: DecisionReject},
			},
			expected: StatusRejected,
			outcome:  OutcomeVetoed,
		},
		{
			name:       "unanimous approval",
			membership: three,
			reviews: []Review{
				{MemberID: "a1", Decision: DecisionApprove},
				{MemberID: "a2", Decision: DecisionApprove},
				{MemberID: "a3", Decision: DecisionApprove},
			},
			expected: StatusApproved,
			outcome:  OutcomeApproved,
		},
		{
			name:       "two of three approvals stays pending",
			membership: three,
			reviews: []Review{
				{MemberID: "a1", Decision: DecisionApprove},
				{MemberID: "a2", Decision: DecisionApprove},
			},
			expected: StatusPending,
			outcome:  OutcomePending,
		},
		{
			name:       "no reviews stays pending",
			membership: three,
			expected:   StatusPending,
			outcome:    OutcomePending,
		},
		{
			name:       "single rejection with no approvals",
			membership: three,
			reviews:    []Review{{MemberID: "a2", Decision: DecisionReject}},
			expected:   StatusRejected,
			outcome:    OutcomeVetoed,
		},
		{
			name:       "zero admins never auto approve",
			membership: Membership{Members: []Member{{ID: "m1", Roles: []Role{RoleMember}}}},
			reviews: []Review{
				{MemberID: "m1", Decision: DecisionApprove},
				{MemberID: "m2", Decision: DecisionApprove},
			},
			expected: StatusPending,
			outcome:  OutcomePending,
		},
		{
			name:       "external admins count toward quorum",
			membership: Membership{Members: []Member{{ID: "a1", Roles: []Role{RoleAdmin}}, {ID: "x1", Roles: []Role{RoleExternalAdmin}}}},
			reviews: []Review{
				{MemberID: "a1", Decision: DecisionApprove},
				{MemberID: "x1", Decision: DecisionApprove},
			},
			expected: StatusApproved,
			outcome:  OutcomeApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateQuorum(withReviews(tt.reviews...), tt.membership, StatusPending)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, tt.outcome, result.Outcome)
		})
	}
}

func TestEvaluateQuorum_ZeroAdminsUsesFallback(t *testing.T) {
	tx := withReviews(Review{MemberID: "m1", Decision: DecisionApprove})

	result := EvaluateQuorum(tx, Membership{}, StatusManualReview)

	assert.Equal(t, StatusManualReview, result.Status)
	assert.Equal(t, 0, result.Eligible)
}

func TestEvaluateQuorum_ResultIsLegalFromPending(t *testing.T) {
	// Callers validate before persisting; every quorum result is either a legal
	// successor of PENDING or PENDING itself, which is a no-op.
	three := admins("a1", "a2", "a3")
	cases := [][]Review{
		nil,
		{{MemberID: "a1", Decision: DecisionApprove}},
		{{MemberID: "a1", Decision: DecisionReject}},
		{{MemberID: "a1", Decision: DecisionApprove}, {MemberID: "a2", Decision: DecisionApprove}, {MemberID: "a3", Decision: DecisionApprove}},
	}
	for _, reviews := range cases {
		result := EvaluateQuorum(withReviews(reviews...), three, StatusPending)
		if result.Status == StatusPending {
			continue
		}
		assert.True(t, IsValidTransition(StatusPending, result.Status), "PENDING -> %s", result.Status)
	}
}
