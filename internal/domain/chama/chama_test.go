package chama

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

func TestTransitions_Table(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{name: "PENDING -> APPROVED", from: StatusPending, to: StatusApproved, expected: true},
		{name: "PENDING -> REJECTED", from: StatusPending, to: StatusRejected, expected: true},
		{name: "PENDING -> FAILED", from: StatusPending, to: StatusFailed, expected: true},
		{name: "PENDING -> MANUAL_REVIEW", from: StatusPending, to: StatusManualReview, expected: true},
		{name: "PENDING -> PROCESSING (approval gate)", from: StatusPending, to: StatusProcessing, expected: false},
		{name: "PENDING -> COMPLETE (approval gate)", from: StatusPending, to: StatusComplete, expected: false},

		{name: "APPROVED -> PROCESSING", from: StatusApproved, to: StatusProcessing, expected: true},
		{name: "APPROVED -> COMPLETE", from: StatusApproved, to: StatusComplete, expected: true},
		{name: "APPROVED -> REJECTED (invalid)", from: StatusApproved, to: StatusRejected, expected: false},
		{name: "APPROVED -> PENDING (invalid)", from: StatusApproved, to: StatusPending, expected: false},

		{name: "PROCESSING -> COMPLETE", from: StatusProcessing, to: StatusComplete, expected: true},
		{name: "PROCESSING -> APPROVED (retry)", from: StatusProcessing, to: StatusApproved, expected: true},
		{name: "PROCESSING -> PENDING (invalid)", from: StatusProcessing, to: StatusPending, expected: false},

		{name: "MANUAL_REVIEW -> UNRECOGNIZED", from: StatusManualReview, to: StatusUnrecognized, expected: true},
		{name: "MANUAL_REVIEW -> APPROVED (invalid)", from: StatusManualReview, to: StatusApproved, expected: false},

		{name: "REJECTED -> APPROVED (invalid)", from: StatusRejected, to: StatusApproved, expected: false},
		{name: "COMPLETE -> FAILED (invalid)", from: StatusComplete, to: StatusFailed, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestTransitions_TableIsTotal(t *testing.T) {
	for _, s := range Statuses() {
		_, ok := Transitions[s]
		assert.True(t, ok, "missing table entry for %s", s)
	}
	assert.Len(t, Transitions, len(Statuses()))
}

func TestTransitions_TerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusComplete, StatusFailed, StatusRejected, StatusUnrecognized} {
		assert.Empty(t, AllowedNext(s), "terminal %s must have no successors", s)
	}
}

func TestValidateTransition_AllPairs(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			err := ValidateTransition(from, to)
			if IsValidTransition(from, to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			var invalid *lifecycle.InvalidTransitionError[Status]
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, "chama transaction", invalid.Entity)
			assert.Equal(t, AllowedNext(from), invalid.Allowed)
		}
	}
}

func TestTransaction_TransitionTo(t *testing.T) {
	tx, err := NewTransaction("chama-1", "member-1", TypeWithdrawal, 2500, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
	assert.NotNil(t, tx.Reviews)

	assert.ErrorIs(t, tx.TransitionTo(StatusProcessing), lifecycle.ErrInvalidTransition)
	require.NoError(t, tx.TransitionTo(StatusApproved))
	require.NoError(t, tx.TransitionTo(StatusProcessing))
	require.NoError(t, tx.TransitionTo(StatusComplete))
}

func TestNewTransaction_Validation(t *testing.T) {
	_, err := NewTransaction("", "m", TypeDeposit, 1, "")
	assert.ErrorIs(t, err, ErrMissingChama)
	_, err = NewTransaction("c", "", TypeDeposit, 1, "")
	assert.ErrorIs(t, err, ErrMissingMember)
	_, err = NewTransaction("c", "m", Type("SHARES"), 1, "")
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = NewTransaction("c", "m", TypeTransfer, -5, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMembership(t *testing.T) {
	m := Membership{Members: []Member{
		{ID: "a1", Roles: []Role{RoleMember, RoleAdmin}},
		{ID: "a2", Roles: []Role{RoleExternalAdmin}},
		{ID: "m1", Roles: []Role{RoleMember}},
		{ID: "m2"},
	}}
	assert.Equal(t, 2, m.EligibleReviewers())

	member, ok := m.Find("a2")
	require.True(t, ok)
	assert.True(t, member.CanReview())

	member, ok = m.Find("m1")
	require.True(t, ok)
	assert.False(t, member.CanReview())

	_, ok = m.Find("nobody")
	assert.False(t, ok)
}
