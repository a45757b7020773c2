package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrNotMember            = errors.New("user is not a member of this organization")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrSlugTaken            = errors.New("organization slug already in use")
)

type MembershipRole string

const (
	RoleOwner  MembershipRole = "owner"
	RoleAdmin  MembershipRole = "admin"
	RoleMember MembershipRole = "member"
)

type Organization struct {
	ID        string
	Name      string
	Slug      string
	Plan      PlanType
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Membership struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           MembershipRole
	CreatedAt      time.Time
}

func (m Membership) CanManage() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error)
	ListOrganizationsByUser(ctx context.Context, userID string) ([]Organization, error)
	UpdateOrganization(ctx context.Context, org Organization) error
	DeleteOrganization(ctx context.Context, id string) error

	CreateMembership(ctx context.Context, membership Membership) error
	GetMembership(ctx context.Context, organizationID, userID string) (Membership, error)
	ListMemberships(ctx context.Context, organizationID string) ([]Membership, error)
}

type CreateOrganizationParams struct {
	Name    string
	ActorID string
}

type UpdateOrganizationParams struct {
	OrganizationID string
	ActorID        string
	Name           string
}

type InviteMemberParams struct {
	OrganizationID string
	ActorID        string
	Email          string
	Role           MembershipRole
}

// Member joins a membership with the user's display fields for listings.
type Member struct {
	Membership
	Email string
	Name  string
}

type OrganizationManager interface {
	CreateOrganization(ctx context.Context, params CreateOrganizationParams) (Organization, error)
	GetOrganization(ctx context.Context, actorID, organizationID string) (Organization, error)
	ListOrganizations(ctx context.Context, actorID string) ([]Organization, error)
	UpdateOrganization(ctx context.Context, params UpdateOrganizationParams) (Organization, error)
	DeleteOrganization(ctx context.Context, actorID, organizationID string) error
	ListMembers(ctx context.Context, actorID, organizationID string) ([]Member, error)
	InviteMember(ctx context.Context, params InviteMemberParams) (Membership, error)

	// RequireMembership resolves the caller's membership or ErrNotMember.
	RequireMembership(ctx context.Context, organizationID, userID string) (Membership, error)
}
