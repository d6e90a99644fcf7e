package chama

// Role represents a member's role within a chama.
type Role string

const (
	RoleMember        Role = "MEMBER"
	RoleAdmin         Role = "ADMIN"
	RoleExternalAdmin Role = "EXTERNAL_ADMIN"
)

// Member is one entry of a membership snapshot.
type Member struct {
	ID    string `json:"id"`
	Roles []Role `json:"roles"`
}

// HasRole reports whether the member holds role.
func (m Member) HasRole(role Role) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanReview reports whether the member counts toward the review quorum.
func (m Member) CanReview() bool {
	return m.HasRole(RoleAdmin) || m.HasRole(RoleExternalAdmin)
}

// Membership is a read-only snapshot of a chama's members, supplied fresh by the caller.
type Membership struct {
	ChamaID string   `json:"chamaId"`
	Members []Member `json:"members"`
}

// Find returns the member with id.
func (m Membership) Find(id string) (Member, bool) {
	for _, member := range m.Members {
		if member.ID == id {
			return member, true
		}
	}
	return Member{}, false
}

// EligibleReviewers counts members holding ADMIN or EXTERNAL_ADMIN.
func (m Membership) EligibleReviewers() int {
	n := 0
	for _, member := range m.Members {
		if member.CanReview() {
			n++
		}
	}
	return n
}
