package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chama-ledger/ledger/internal/domain/chama"
)

// MembershipRepository implements chama.MembershipProvider over chama_members.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// GetMembership reads a fresh snapshot. A chama without members yields an empty snapshot.
func (r *MembershipRepository) GetMembership(ctx context.Context, chamaID string) (*chama.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_id, roles FROM chama_members WHERE chama_id=$1 ORDER BY joined_at ASC
	`, chamaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := &chama.Membership{ChamaID: chamaID, Members: []chama.Member{}}
	for rows.Next() {
		var id string
		var roles []string
		if err := rows.Scan(&id, &roles); err != nil {
			return nil, err
		}
		member := chama.Member{ID: id, Roles: make([]chama.Role, 0, len(roles))}
		for _, role := range roles {
			member.Roles = append(member.Roles, chama.Role(role))
		}
		m.Members = append(m.Members, member)
	}
	return m, rows.Err()
}

// PutMember inserts or replaces a member's roles.
func (r *MembershipRepository) PutMember(ctx context.Context, chamaID string, member chama.Member) error {
	roles := make([]string, 0, len(member.Roles))
	for _, role := range member.Roles {
		roles = append(roles, string(role))
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chama_members (chama_id, member_id, roles) VALUES ($1,$2,$3)
		ON CONFLICT (chama_id, member_id) DO UPDATE SET roles=EXCLUDED.roles
	`, chamaID, member.ID, roles)
	return err
}
