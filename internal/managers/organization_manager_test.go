package managers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type recordingMailer struct {
	mu      sync.Mutex
	invites []domain.InviteParams
	fail    error
}

func (m *recordingMailer) SendInvite(ctx context.Context, params domain.InviteParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.invites = append(m.invites, params)
	return nil
}

func newTestOrganizationManager(f *fixture, mailer domain.InviteMailer, audit domain.AuditRecorder) domain.OrganizationManager {
	return NewOrganizationManager(OrganizationManagerDependencies{
		OrganizationStore: f.store,
		UserStore:         f.store,
		IDGenerator:       f.ids,
		InviteMailer:      mailer,
		AuditRecorder:     audit,
	})
}

func TestOrganizationManager_CreateOrganization(t *testing.T) {
	f := newFixture(t)
	audit := &auditSink{}
	manager := newTestOrganizationManager(f, nil, audit)
	ctx := context.Background()

	org, err := manager.CreateOrganization(ctx, domain.CreateOrganizationParams{
		Name:    "Prompt Labs",
		ActorID: f.user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "prompt-labs", org.Slug)
	assert.Equal(t, domain.PlanFree, org.Plan)

	membership, err := f.store.GetMembership(ctx, org.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, membership.Role)

	assert.Contains(t, audit.Actions(), "organization.created")
}

func TestOrganizationManager_CreateOrganizationSlugConflict(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)
	ctx := context.Background()

	first, err := manager.CreateOrganization(ctx, domain.CreateOrganizationParams{Name: "Prompt Labs", ActorID: f.user.ID})
	require.NoError(t, err)

	second, err := manager.CreateOrganization(ctx, domain.CreateOrganizationParams{Name: "Prompt Labs", ActorID: f.user.ID})
	require.NoError(t, err)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "prompt-labs-"))
}

func TestOrganizationManager_GetRequiresMembership(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)
	ctx := context.Background()

	outsider := f.addUser(t, "outsider@example.com")

	_, err := manager.GetOrganization(ctx, outsider.ID, f.org.ID)
	assert.ErrorIs(t, err, domain.ErrNotMember)

	org, err := manager.GetOrganization(ctx, f.user.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, f.org.ID, org.ID)
}

func TestOrganizationManager_UpdateRequiresManagerRole(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)
	ctx := context.Background()

	member := f.addUser(t, "member@example.com")
	require.NoError(t, f.store.CreateMembership(ctx, domain.Membership{
		ID:             f.ids.NewID(),
		UserID:         member.ID,
		OrganizationID: f.org.ID,
		Role:           domain.RoleMember,
	}))

	_, err := manager.UpdateOrganization(ctx, domain.UpdateOrganizationParams{
		OrganizationID: f.org.ID,
		ActorID:        member.ID,
		Name:           "Renamed",
	})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	updated, err := manager.UpdateOrganization(ctx, domain.UpdateOrganizationParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestOrganizationManager_DeleteRequiresOwner(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)
	ctx := context.Background()

	admin := f.addUser(t, "admin@example.com")
	require.NoError(t, f.store.CreateMembership(ctx, domain.Membership{
		ID:             f.ids.NewID(),
		UserID:         admin.ID,
		OrganizationID: f.org.ID,
		Role:           domain.RoleAdmin,
	}))

	err := manager.DeleteOrganization(ctx, admin.ID, f.org.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	require.NoError(t, manager.DeleteOrganization(ctx, f.user.ID, f.org.ID))

	_, err = f.store.GetOrganization(ctx, f.org.ID)
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}

func TestOrganizationManager_InviteMember(t *testing.T) {
	f := newFixture(t)
	mailer := &recordingMailer{}
	manager := newTestOrganizationManager(f, mailer, nil)
	ctx := context.Background()

	invitee := f.addUser(t, "invitee@example.com")

	membership, err := manager.InviteMember(ctx, domain.InviteMemberParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Email:          "Invitee@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, invitee.ID, membership.UserID)
	assert.Equal(t, domain.RoleMember, membership.Role)

	require.Len(t, mailer.invites, 1)
	assert.Equal(t, "invitee@example.com", mailer.invites[0].Email)
	assert.Equal(t, f.org.Name, mailer.invites[0].OrganizationName)
	assert.Equal(t, f.user.Name, mailer.invites[0].InviterName)
}

func TestOrganizationManager_InviteUnknownEmail(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)

	_, err := manager.InviteMember(context.Background(), domain.InviteMemberParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Email:          "ghost@example.com",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestOrganizationManager_InviteSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	mailer := &recordingMailer{fail: errors.New("smtp down")}
	manager := newTestOrganizationManager(f, mailer, nil)
	ctx := context.Background()

	invitee := f.addUser(t, "invitee@example.com")

	membership, err := manager.InviteMember(ctx, domain.InviteMemberParams{
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Email:          invitee.Email,
	})
	require.NoError(t, err)

	stored, err := f.store.GetMembership(ctx, f.org.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.ID, stored.ID)
}

func TestOrganizationManager_ListMembersJoinsUsers(t *testing.T) {
	f := newFixture(t)
	manager := newTestOrganizationManager(f, nil, nil)
	ctx := context.Background()

	members, err := manager.ListMembers(ctx, f.user.ID, f.org.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, f.user.Email, members[0].Email)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
}
