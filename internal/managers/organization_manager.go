package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type organizationManager struct {
	orgs   domain.OrganizationStore
	users  domain.UserStore
	ids    domain.IDGenerator
	mailer domain.InviteMailer
	audit  domain.AuditRecorder
}

type OrganizationManagerDependencies struct {
	OrganizationStore domain.OrganizationStore
	UserStore         domain.UserStore
	IDGenerator       domain.IDGenerator
	InviteMailer      domain.InviteMailer
	AuditRecorder     domain.AuditRecorder
}

func NewOrganizationManager(deps OrganizationManagerDependencies) domain.OrganizationManager {
	return &organizationManager{
		orgs:   deps.OrganizationStore,
		users:  deps.UserStore,
		ids:    deps.IDGenerator,
		mailer: deps.InviteMailer,
		audit:  auditRecorderOrNoop(deps.AuditRecorder),
	}
}

func (m *organizationManager) CreateOrganization(ctx context.Context, params domain.CreateOrganizationParams) (domain.Organization, error) {
	now := time.Now()

	org := domain.Organization{
		ID:        m.ids.NewID(),
		Name:      params.Name,
		Slug:      slug.Make(params.Name),
		Plan:      domain.PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := m.orgs.CreateOrganization(ctx, org)
	if errors.Is(err, domain.ErrSlugTaken) {
		org.Slug = fmt.Sprintf("%s-%s", org.Slug, m.ids.NewID())
		err = m.orgs.CreateOrganization(ctx, org)
	}
	if err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}

	membership := domain.Membership{
		ID:             m.ids.NewID(),
		UserID:         params.ActorID,
		OrganizationID: org.ID,
		Role:           domain.RoleOwner,
		CreatedAt:      now,
	}

	if err := m.orgs.CreateMembership(ctx, membership); err != nil {
		return domain.Organization{}, fmt.Errorf("failed to create owner membership: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: org.ID,
		ActorID:        params.ActorID,
		Action:         "organization.created",
		ResourceType:   "organization",
		ResourceID:     org.ID,
	})

	return org, nil
}

func (m *organizationManager) GetOrganization(ctx context.Context, actorID, organizationID string) (domain.Organization, error) {
	if _, err := m.RequireMembership(ctx, organizationID, actorID); err != nil {
		return domain.Organization{}, err
	}

	org, err := m.orgs.GetOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			return domain.Organization{}, domain.ErrOrganizationNotFound
		}
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

func (m *organizationManager) ListOrganizations(ctx context.Context, actorID string) ([]domain.Organization, error) {
	orgs, err := m.orgs.ListOrganizationsByUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}

func (m *organizationManager) UpdateOrganization(ctx context.Context, params domain.UpdateOrganizationParams) (domain.Organization, error) {
	if err := m.requireManager(ctx, params.OrganizationID, params.ActorID); err != nil {
		return domain.Organization{}, err
	}

	org, err := m.orgs.GetOrganization(ctx, params.OrganizationID)
	if err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			return domain.Organization{}, domain.ErrOrganizationNotFound
		}
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}

	if params.Name != "" {
		org.Name = params.Name
	}
	org.UpdatedAt = time.Now()

	if err := m.orgs.UpdateOrganization(ctx, org); err != nil {
		return domain.Organization{}, fmt.Errorf("failed to update organization: %w", err)
	}

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: org.ID,
		ActorID:        params.ActorID,
		Action:         "organization.updated",
		ResourceType:   "organization",
		ResourceID:     org.ID,
	})

	return org, nil
}

func (m *organizationManager) DeleteOrganization(ctx context.Context, actorID, organizationID string) error {
	membership, err := m.RequireMembership(ctx, organizationID, actorID)
	if err != nil {
		return err
	}
	if membership.Role != domain.RoleOwner {
		return domain.ErrPermissionDenied
	}

	if err := m.orgs.DeleteOrganization(ctx, organizationID); err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) {
			return domain.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

func (m *organizationManager) ListMembers(ctx context.Context, actorID, organizationID string) ([]domain.Member, error) {
	if _, err := m.RequireMembership(ctx, organizationID, actorID); err != nil {
		return nil, err
	}

	memberships, err := m.orgs.ListMemberships(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	members := make([]domain.Member, 0, len(memberships))
	for _, membership := range memberships {
		member := domain.Member{Membership: membership}

		user, err := m.users.GetUser(ctx, membership.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", membership.UserID).Msg("failed to resolve member user")
		} else {
			member.Email = user.Email
			member.Name = user.Name
		}

		members = append(members, member)
	}

	return members, nil
}

func (m *organizationManager) InviteMember(ctx context.Context, params domain.InviteMemberParams) (domain.Membership, error) {
	if err := m.requireManager(ctx, params.OrganizationID, params.ActorID); err != nil {
		return domain.Membership{}, err
	}

	user, err := m.users.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Membership{}, domain.ErrUserNotFound
		}
		return domain.Membership{}, fmt.Errorf("failed to get user: %w", err)
	}

	role := params.Role
	if role == "" {
		role = domain.RoleMember
	}

	membership := domain.Membership{
		ID:             m.ids.NewID(),
		UserID:         user.ID,
		OrganizationID: params.OrganizationID,
		Role:           role,
		CreatedAt:      time.Now(),
	}

	if err := m.orgs.CreateMembership(ctx, membership); err != nil {
		return domain.Membership{}, fmt.Errorf("failed to create membership: %w", err)
	}

	m.sendInviteMail(ctx, params, user)

	m.audit.Record(domain.AuditEntry{
		ID:             m.ids.NewID(),
		OrganizationID: params.OrganizationID,
		ActorID:        params.ActorID,
		Action:         "member.invited",
		ResourceType:   "membership",
		ResourceID:     membership.ID,
		Metadata:       map[string]any{"email": user.Email, "role": string(role)},
	})

	return membership, nil
}

// sendInviteMail is best effort. The membership exists either way; mail
// failures only get logged.
func (m *organizationManager) sendInviteMail(ctx context.Context, params domain.InviteMemberParams, user domain.User) {
	if m.mailer == nil {
		return
	}

	inviteParams := domain.InviteParams{Email: user.Email}

	if org, err := m.orgs.GetOrganization(ctx, params.OrganizationID); err == nil {
		inviteParams.OrganizationName = org.Name
	}
	if inviter, err := m.users.GetUser(ctx, params.ActorID); err == nil {
		inviteParams.InviterName = inviter.Name
	}

	if err := m.mailer.SendInvite(ctx, inviteParams); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to send invite mail")
	}
}

func (m *organizationManager) RequireMembership(ctx context.Context, organizationID, userID string) (domain.Membership, error) {
	membership, err := m.orgs.GetMembership(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return domain.Membership{}, domain.ErrNotMember
		}
		return domain.Membership{}, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

func (m *organizationManager) requireManager(ctx context.Context, organizationID, userID string) error {
	membership, err := m.RequireMembership(ctx, organizationID, userID)
	if err != nil {
		return err
	}
	if !membership.CanManage() {
		return domain.ErrPermissionDenied
	}

	return nil
}
