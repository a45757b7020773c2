package managers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/storage/memory"
)

// fixture seeds the in-memory store with one user owning one
// organization and one project.
type fixture struct {
	store *memory.Store
	ids   domain.IDGenerator

	user    domain.User
	org     domain.Organization
	project domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.NewStore(),
		ids:   domain.NewIDGenerator(),
	}

	ctx := context.Background()
	now := time.Now()

	f.user = domain.User{
		ID:           f.ids.NewID(),
		Email:        "owner@example.com",
		Name:         "Owner",
		PasswordHash: "irrelevant",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.store.CreateUser(ctx, f.user))

	f.org = f.addOrganization(t, "Acme", f.user.ID)

	f.project = domain.Project{
		ID:             f.ids.NewID(),
		OrganizationID: f.org.ID,
		Name:           "Main",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.store.CreateProject(ctx, f.project))

	return f
}

func (f *fixture) addOrganization(t *testing.T, name, ownerID string) domain.Organization {
	t.Helper()

	ctx := context.Background()
	now := time.Now()

	org := domain.Organization{
		ID:        f.ids.NewID(),
		Name:      name,
		Slug:      fmt.Sprintf("%s-%s", name, f.ids.NewID()),
		Plan:      domain.PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.CreateOrganization(ctx, org))

	require.NoError(t, f.store.CreateMembership(ctx, domain.Membership{
		ID:             f.ids.NewID(),
		UserID:         ownerID,
		OrganizationID: org.ID,
		Role:           domain.RoleOwner,
		CreatedAt:      now,
	}))

	return org
}

func (f *fixture) addUser(t *testing.T, email string) domain.User {
	t.Helper()

	now := time.Now()
	user := domain.User{
		ID:           f.ids.NewID(),
		Email:        email,
		Name:         email,
		PasswordHash: "irrelevant",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), user))

	return user
}

func (f *fixture) addProject(t *testing.T, organizationID string) domain.Project {
	t.Helper()

	now := time.Now()
	project := domain.Project{
		ID:             f.ids.NewID(),
		OrganizationID: organizationID,
		Name:           "Side project",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.store.CreateProject(context.Background(), project))

	return project
}

func (f *fixture) addPrompt(t *testing.T, projectID string) (domain.Prompt, domain.PromptVersion) {
	t.Helper()

	now := time.Now()

	version := domain.PromptVersion{
		ID:        f.ids.NewID(),
		Version:   1,
		Content:   "You are a helpful assistant.",
		CreatedAt: now,
	}
	prompt := domain.Prompt{
		ID:               f.ids.NewID(),
		ProjectID:        projectID,
		Name:             "Greeting",
		CurrentVersionID: version.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	version.PromptID = prompt.ID

	require.NoError(t, f.store.CreatePromptWithVersion(context.Background(), prompt, version))

	return prompt, version
}

// auditSink records audit entries synchronously for assertions.
type auditSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *auditSink) Record(entry domain.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *auditSink) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// eventSink records dispatched webhook events for assertions.
type eventSink struct {
	mu     sync.Mutex
	events []domain.WebhookEvent
}

func (s *eventSink) Dispatch(event domain.WebhookEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *eventSink) Events() []domain.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]domain.WebhookEvent, len(s.events))
	copy(events, s.events)
	return events
}

// stubProvider is a deterministic model backend for chat tests.
type stubProvider struct {
	completeText string
	streamChunks []string
	chunkDelay   time.Duration
}

func (p *stubProvider) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	return domain.CompletionResponse{
		Text:      p.completeText,
		TokensIn:  10,
		TokensOut: 5,
		LatencyMS: 1,
	}, nil
}

func (p *stubProvider) StreamComplete(ctx context.Context, req domain.CompletionRequest) (<-chan domain.CompletionChunk, error) {
	out := make(chan domain.CompletionChunk)

	go func() {
		defer close(out)

		for _, text := range p.streamChunks {
			if p.chunkDelay > 0 {
				select {
				case <-time.After(p.chunkDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- domain.CompletionChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case out <- domain.CompletionChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

type stubRegistry struct {
	provider domain.ModelProvider
}

func (r *stubRegistry) ProviderForModel(ctx context.Context, organizationID, model string) (domain.ModelProvider, error) {
	return r.provider, nil
}
