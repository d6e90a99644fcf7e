package review

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chama-ledger/ledger/internal/domain/chama"
	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

type fakeMetrics struct {
	outcomes map[string]int
}

func (f *fakeMetrics) ObserveQuorum(outcome string) {
	if f.outcomes == nil {
		f.outcomes = map[string]int{}
	}
	f.outcomes[outcome]++
}

func threeAdmins() chama.Membership {
	return chama.Membership{
		ChamaID: "chama-1",
		Members: []chama.Member{
			{ID: "a1", Roles: []chama.Role{chama.RoleAdmin}},
			{ID: "a2", Roles: []chama.Role{chama.RoleAdmin}},
			{ID: "a3", Roles: []chama.Role{chama.RoleExternalAdmin}},
			{ID: "m1", Roles: []chama.Role{chama.RoleMember}},
		},
	}
}

func pendingTx(t *testing.T, reviews ...chama.Review) *chama.Transaction {
	t.Helper()
	tx, err := chama.NewTransaction("chama-1", "m1", chama.TypeWithdrawal, 5_000, "ref")
	require.NoError(t, err)
	tx.Reviews = reviews
	return tx
}

func TestEngine_ComputeStatus(t *testing.T) {
	tests := []struct {
		name       string
		membership chama.Membership
		reviews    []chama.Review
		expected   chama.Status
		outcome    chama.Outcome
	}{
		{
			name:       "veto beats two approvals",
			membership: threeAdmins(),
			reviews: []chama.Review{
				{MemberID: "a1", Decision: chama.DecisionApprove},
				{MemberID: "a2", Decision: chama.DecisionApprove},
				{MemberID: "a3", Decision: chama.DecisionReject},
			},
			expected: chama.StatusRejected,
			outcome:  chama.OutcomeVetoed,
		},
		{
			name:       "unanimous approval",
			membership: threeAdmins(),
			reviews: []chama.Review{
				{MemberID: "a1", Decision: chama.DecisionApprove},
				{MemberID: "a2", Decision: chama.DecisionApprove},
				{MemberID: "a3", Decision: chama.DecisionApprove},
			},
			expected: chama.StatusApproved,
			outcome:  chama.OutcomeApproved,
		},
		{
			name:       "partial approval stays pending",
			membership: threeAdmins(),
			reviews: []chama.Review{
				{MemberID: "a1", Decision: chama.DecisionApprove},
				{MemberID: "a2", Decision: chama.DecisionApprove},
			},
			expected: chama.StatusPending,
			outcome:  chama.OutcomePending,
		},
		{
			name:       "no admins never approves",
			membership: chama.Membership{ChamaID: "chama-1", Members: []chama.Member{{ID: "m1", Roles: []chama.Role{chama.RoleMember}}}},
			reviews: []chama.Review{
				{MemberID: "m1", Decision: chama.DecisionApprove},
				{MemberID: "m2", Decision: chama.DecisionApprove},
			},
			expected: chama.StatusPending,
			outcome:  chama.OutcomePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &fakeMetrics{}
			engine := NewEngine(metrics, zerolog.Nop())

			res := engine.ComputeStatus(pendingTx(t, tt.reviews...), tt.membership, chama.StatusPending)

			assert.Equal(t, tt.expected, res.Status)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, 1, metrics.outcomes[string(tt.outcome)])
		})
	}
}

func TestEngine_LogsVetoAndApproval(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine(nil, zerolog.New(&buf))

	engine.ComputeStatus(pendingTx(t, chama.Review{MemberID: "a2", Decision: chama.DecisionReject}), threeAdmins(), chama.StatusPending)
	assert.Contains(t, buf.String(), "transaction rejected by reviewer")
	assert.Contains(t, buf.String(), `"rejector":"a2"`)

	buf.Reset()
	tx := pendingTx(t)
	for _, id := range []string{"a1", "a2", "a3"} {
		tx.Reviews = engine.UpsertReview(tx, id, chama.DecisionApprove)
	}
	engine.ComputeStatus(tx, threeAdmins(), chama.StatusPending)
	assert.Contains(t, buf.String(), "transaction approved by quorum")
}

func TestEngine_UpsertReplacesDecision(t *testing.T) {
	engine := NewEngine(nil, zerolog.Nop())
	tx := pendingTx(t)

	tx.Reviews = engine.UpsertReview(tx, "a1", chama.DecisionApprove)
	tx.Reviews = engine.UpsertReview(tx, "a1", chama.DecisionReject)

	require.Len(t, tx.Reviews, 1)
	assert.True(t, engine.HasReview(tx, "a1"))
	assert.True(t, engine.HasReview(tx, "a1", chama.DecisionReject))
	assert.False(t, engine.HasReview(tx, "a1", chama.DecisionApprove))
	assert.False(t, engine.HasReview(tx, "a2"))
}

// The engine does not consult the transition table. From PENDING every result
// is either legal or unchanged; from later states the caller's validation is
// what stops a late veto from regressing the transaction.
func TestEngine_OutputMustBeValidatedByCaller(t *testing.T) {
	engine := NewEngine(nil, zerolog.Nop())
	admins := threeAdmins()

	reviewSets := [][]chama.Review{
		nil,
		{{MemberID: "a1", Decision: chama.DecisionApprove}},
		{{MemberID: "a1", Decision: chama.DecisionReject}},
		{
			{MemberID: "a1", Decision: chama.DecisionApprove},
			{MemberID: "a2", Decision: chama.DecisionApprove},
			{MemberID: "a3", Decision: chama.DecisionApprove},
		},
	}
	for _, reviews := range reviewSets {
		res := engine.ComputeStatus(pendingTx(t, reviews...), admins, chama.StatusPending)
		if res.Status == chama.StatusPending {
			continue
		}
		assert.NoError(t, chama.ValidateTransition(chama.StatusPending, res.Status), "from PENDING to %s", res.Status)
	}

	approved := pendingTx(t, chama.Review{MemberID: "a1", Decision: chama.DecisionReject})
	approved.Status = chama.StatusApproved
	res := engine.ComputeStatus(approved, admins, approved.Status)
	require.Equal(t, chama.StatusRejected, res.Status)

	err := chama.ValidateTransition(approved.Status, res.Status)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}
