// Package memory holds an in-memory implementation of every store port.
// Manager tests run against it instead of Postgres; it mirrors the SQL
// stores' ordering and error semantics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	users          map[string]domain.User
	organizations  map[string]domain.Organization
	memberships    map[string]domain.Membership
	billing        map[string]domain.Billing
	projects       map[string]domain.Project
	prompts        map[string]domain.Prompt
	promptVersions map[string]domain.PromptVersion
	experiments    map[string]domain.Experiment
	runs           map[string]domain.Run
	pipelines      map[string]domain.Pipeline
	chatSessions   map[string]domain.ChatSession
	templates      map[string]domain.Template
	apiKeys        map[string]domain.APIKey
	webhooks       map[string]domain.Webhook
	providerKeys   map[string]domain.ProviderKey
	auditEntries   []domain.AuditEntry
}

var (
	_ domain.UserStore         = (*Store)(nil)
	_ domain.OrganizationStore = (*Store)(nil)
	_ domain.BillingStore      = (*Store)(nil)
	_ domain.ProjectStore      = (*Store)(nil)
	_ domain.PromptStore       = (*Store)(nil)
	_ domain.ExperimentStore   = (*Store)(nil)
	_ domain.RunStore          = (*Store)(nil)
	_ domain.PipelineStore     = (*Store)(nil)
	_ domain.ChatSessionStore  = (*Store)(nil)
	_ domain.TemplateStore     = (*Store)(nil)
	_ domain.APIKeyStore       = (*Store)(nil)
	_ domain.WebhookStore      = (*Store)(nil)
	_ domain.ProviderKeyStore  = (*Store)(nil)
	_ domain.AuditStore        = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		users:          make(map[string]domain.User),
		organizations:  make(map[string]domain.Organization),
		memberships:    make(map[string]domain.Membership),
		billing:        make(map[string]domain.Billing),
		projects:       make(map[string]domain.Project),
		prompts:        make(map[string]domain.Prompt),
		promptVersions: make(map[string]domain.PromptVersion),
		experiments:    make(map[string]domain.Experiment),
		runs:           make(map[string]domain.Run),
		pipelines:      make(map[string]domain.Pipeline),
		chatSessions:   make(map[string]domain.ChatSession),
		templates:      make(map[string]domain.Template),
		apiKeys:        make(map[string]domain.APIKey),
		webhooks:       make(map[string]domain.Webhook),
		providerKeys:   make(map[string]domain.ProviderKey),
	}
}

// Users

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}

	s.users[user.ID] = user

	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}

	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}

	s.users[user.ID] = user

	return nil
}

// Organizations

func (s *Store) CreateOrganization(ctx context.Context, organization domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.organizations {
		if existing.Slug == organization.Slug {
			return domain.ErrSlugTaken
		}
	}

	s.organizations[organization.ID] = organization

	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	organization, ok := s.organizations[id]
	if !ok {
		return domain.Organization{}, domain.ErrOrganizationNotFound
	}

	return organization, nil
}

func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, organization := range s.organizations {
		if organization.Slug == slug {
			return organization, nil
		}
	}

	return domain.Organization{}, domain.ErrOrganizationNotFound
}

func (s *Store) ListOrganizationsByUser(ctx context.Context, userID string) ([]domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Organization

	for _, membership := range s.memberships {
		if membership.UserID != userID {
			continue
		}

		if organization, ok := s.organizations[membership.OrganizationID]; ok {
			result = append(result, organization)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, organization domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[organization.ID]; !ok {
		return domain.ErrOrganizationNotFound
	}

	s.organizations[organization.ID] = organization

	return nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[id]; !ok {
		return domain.ErrOrganizationNotFound
	}

	delete(s.organizations, id)
	delete(s.billing, id)

	for membershipID, membership := range s.memberships {
		if membership.OrganizationID == id {
			delete(s.memberships, membershipID)
		}
	}

	return nil
}

func (s *Store) CreateMembership(ctx context.Context, membership domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.UserID == membership.UserID && existing.OrganizationID == membership.OrganizationID {
			return fmt.Errorf("membership already exists")
		}
	}

	s.memberships[membership.ID] = membership

	return nil
}

func (s *Store) GetMembership(ctx context.Context, organizationID, userID string) (domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, membership := range s.memberships {
		if membership.OrganizationID == organizationID && membership.UserID == userID {
			return membership, nil
		}
	}

	return domain.Membership{}, domain.ErrMembershipNotFound
}

func (s *Store) ListMemberships(ctx context.Context, organizationID string) ([]domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Membership

	for _, membership := range s.memberships {
		if membership.OrganizationID == organizationID {
			result = append(result, membership)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Billing

func (s *Store) GetBilling(ctx context.Context, organizationID string) (domain.Billing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	billing, ok := s.billing[organizationID]
	if !ok {
		return domain.Billing{}, domain.ErrBillingNotFound
	}

	return billing, nil
}

func (s *Store) ApplyPlanChange(ctx context.Context, billing domain.Billing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	organization, ok := s.organizations[billing.OrganizationID]
	if !ok {
		return domain.ErrOrganizationNotFound
	}

	if existing, ok := s.billing[billing.OrganizationID]; ok {
		billing.CreatedAt = existing.CreatedAt
		if billing.PaymentCustomerID == "" {
			billing.PaymentCustomerID = existing.PaymentCustomerID
		}
	}

	s.billing[billing.OrganizationID] = billing

	organization.Plan = billing.Plan
	organization.UpdatedAt = billing.UpdatedAt
	s.organizations[organization.ID] = organization

	return nil
}

// Projects

func (s *Store) CreateProject(ctx context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[project.ID] = project

	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrProjectNotFound
	}

	return project, nil
}

func (s *Store) ListProjectsByOrganization(ctx context.Context, organizationID string) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Project

	for _, project := range s.projects {
		if project.OrganizationID == organizationID {
			result = append(result, project)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdateProject(ctx context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; !ok {
		return domain.ErrProjectNotFound
	}

	s.projects[project.ID] = project

	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}

	delete(s.projects, id)

	return nil
}

// Prompts

func (s *Store) CreatePrompt(ctx context.Context, prompt domain.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts[prompt.ID] = prompt

	return nil
}

func (s *Store) GetPrompt(ctx context.Context, id string) (domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompt, ok := s.prompts[id]
	if !ok {
		return domain.Prompt{}, domain.ErrPromptNotFound
	}

	return prompt, nil
}

func (s *Store) ListPromptsByProject(ctx context.Context, projectID string) ([]domain.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Prompt

	for _, prompt := range s.prompts {
		if prompt.ProjectID == projectID {
			result = append(result, prompt)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[prompt.ID]; !ok {
		return domain.ErrPromptNotFound
	}

	s.prompts[prompt.ID] = prompt

	return nil
}

func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[id]; !ok {
		return domain.ErrPromptNotFound
	}

	delete(s.prompts, id)

	for versionID, version := range s.promptVersions {
		if version.PromptID == id {
			delete(s.promptVersions, versionID)
		}
	}

	return nil
}

func (s *Store) CreatePromptVersion(ctx context.Context, version domain.PromptVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promptVersions[version.ID] = version

	return nil
}

func (s *Store) GetPromptVersion(ctx context.Context, id string) (domain.PromptVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.promptVersions[id]
	if !ok {
		return domain.PromptVersion{}, domain.ErrPromptVersionNotFound
	}

	return version, nil
}

func (s *Store) ListPromptVersions(ctx context.Context, promptID string) ([]domain.PromptVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PromptVersion

	for _, version := range s.promptVersions {
		if version.PromptID == promptID {
			result = append(result, version)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})

	return result, nil
}

func (s *Store) LatestVersionNumber(ctx context.Context, promptID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := 0

	for _, version := range s.promptVersions {
		if version.PromptID == promptID && version.Version > latest {
			latest = version.Version
		}
	}

	return latest, nil
}

func (s *Store) CreatePromptWithVersion(ctx context.Context, prompt domain.Prompt, version domain.PromptVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts[prompt.ID] = prompt
	s.promptVersions[version.ID] = version

	return nil
}

// Experiments

func (s *Store) CreateExperiment(ctx context.Context, experiment domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.experiments[experiment.ID] = experiment

	return nil
}

func (s *Store) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	experiment, ok := s.experiments[id]
	if !ok {
		return domain.Experiment{}, domain.ErrExperimentNotFound
	}

	return experiment, nil
}

func (s *Store) ListExperimentsByProject(ctx context.Context, projectID string) ([]domain.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Experiment

	for _, experiment := range s.experiments {
		if experiment.ProjectID == projectID {
			result = append(result, experiment)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdateExperiment(ctx context.Context, experiment domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[experiment.ID]; !ok {
		return domain.ErrExperimentNotFound
	}

	s.experiments[experiment.ID] = experiment

	return nil
}

func (s *Store) DeleteExperiment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[id]; !ok {
		return domain.ErrExperimentNotFound
	}

	delete(s.experiments, id)

	return nil
}

// Runs

func (s *Store) CreateRun(ctx context.Context, run domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run

	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, domain.ErrRunNotFound
	}

	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filterRuns(filter)

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], nil
}

func (s *Store) GetRunStats(ctx context.Context, filter domain.RunFilter) (domain.RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.RunStats
	var totalLatency int64

	for _, run := range s.filterRuns(filter) {
		stats.Count++
		if run.Success {
			stats.SuccessCount++
		}
		stats.TokensIn += run.TokensIn
		stats.TokensOut += run.TokensOut
		totalLatency += run.LatencyMS
	}

	if stats.Count > 0 {
		stats.AvgLatencyMS = float64(totalLatency) / float64(stats.Count)
	}

	return stats, nil
}

func (s *Store) GetVariantStats(ctx context.Context, experimentID string) ([]domain.VariantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byVersion := make(map[string]*domain.VariantStats)
	latency := make(map[string]int64)

	for _, run := range s.runs {
		if run.ExperimentID != experimentID {
			continue
		}

		stats, ok := byVersion[run.PromptVersionID]
		if !ok {
			stats = &domain.VariantStats{PromptVersionID: run.PromptVersionID}
			byVersion[run.PromptVersionID] = stats
		}

		stats.Count++
		if run.Success {
			stats.SuccessCount++
		}
		stats.TokensIn += run.TokensIn
		stats.TokensOut += run.TokensOut
		latency[run.PromptVersionID] += run.LatencyMS
	}

	result := make([]domain.VariantStats, 0, len(byVersion))

	for versionID, stats := range byVersion {
		if stats.Count > 0 {
			stats.AvgLatencyMS = float64(latency[versionID]) / float64(stats.Count)
		}
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PromptVersionID < result[j].PromptVersionID
	})

	return result, nil
}

func (s *Store) SumTokensInForOrganization(ctx context.Context, organizationID string, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64

	for _, run := range s.runs {
		project, ok := s.projects[run.ProjectID]
		if !ok || project.OrganizationID != organizationID {
			continue
		}

		if run.CreatedAt.Before(from) || run.CreatedAt.After(to) {
			continue
		}

		total += run.TokensIn
	}

	return total, nil
}

func (s *Store) filterRuns(filter domain.RunFilter) []domain.Run {
	var matched []domain.Run

	for _, run := range s.runs {
		if filter.ProjectID != "" && run.ProjectID != filter.ProjectID {
			continue
		}
		if filter.PromptID != "" && run.PromptID != filter.PromptID {
			continue
		}
		if filter.ExperimentID != "" && run.ExperimentID != filter.ExperimentID {
			continue
		}
		if !filter.From.IsZero() && run.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && run.CreatedAt.After(filter.To) {
			continue
		}

		matched = append(matched, run)
	}

	return matched
}

// Pipelines

func (s *Store) CreatePipeline(ctx context.Context, pipeline domain.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipelines[pipeline.ID] = pipeline

	return nil
}

func (s *Store) GetPipeline(ctx context.Context, id string) (domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipeline, ok := s.pipelines[id]
	if !ok {
		return domain.Pipeline{}, domain.ErrPipelineNotFound
	}

	return pipeline, nil
}

func (s *Store) ListPipelinesByProject(ctx context.Context, projectID string) ([]domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Pipeline

	for _, pipeline := range s.pipelines {
		if pipeline.ProjectID == projectID {
			result = append(result, pipeline)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdatePipeline(ctx context.Context, pipeline domain.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pipelines[pipeline.ID]; !ok {
		return domain.ErrPipelineNotFound
	}

	s.pipelines[pipeline.ID] = pipeline

	return nil
}

func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pipelines[id]; !ok {
		return domain.ErrPipelineNotFound
	}

	delete(s.pipelines, id)

	return nil
}

func (s *Store) GetPublishedPipelineBySlug(ctx context.Context, slug, organizationID string) (domain.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pipeline := range s.pipelines {
		if pipeline.EndpointSlug != slug || !pipeline.IsPublished() {
			continue
		}

		project, ok := s.projects[pipeline.ProjectID]
		if !ok || project.OrganizationID != organizationID {
			continue
		}

		return pipeline, nil
	}

	return domain.Pipeline{}, domain.ErrPipelineNotFound
}

// Chat sessions

func (s *Store) CreateChatSession(ctx context.Context, session domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatSessions[session.ID] = session

	return nil
}

func (s *Store) GetChatSession(ctx context.Context, id string) (domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.chatSessions[id]
	if !ok {
		return domain.ChatSession{}, domain.ErrChatSessionNotFound
	}

	return session, nil
}

func (s *Store) ListChatSessionsByProject(ctx context.Context, projectID string) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ChatSession

	for _, session := range s.chatSessions {
		if session.ProjectID == projectID {
			result = append(result, session)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}

func (s *Store) UpdateChatSession(ctx context.Context, session domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chatSessions[session.ID]; !ok {
		return domain.ErrChatSessionNotFound
	}

	s.chatSessions[session.ID] = session

	return nil
}

func (s *Store) AppendChatMessages(ctx context.Context, sessionID string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.chatSessions[sessionID]
	if !ok {
		return domain.ErrChatSessionNotFound
	}

	session.Messages = append(session.Messages, messages...)
	session.UpdatedAt = time.Now()
	s.chatSessions[sessionID] = session

	return nil
}

func (s *Store) DeleteChatSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chatSessions[id]; !ok {
		return domain.ErrChatSessionNotFound
	}

	delete(s.chatSessions, id)

	return nil
}

// Templates

func (s *Store) CreateTemplate(ctx context.Context, template domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Seeding is idempotent, matching the SQL store's conflict handling.
	if _, ok := s.templates[template.ID]; ok {
		return nil
	}

	s.templates[template.ID] = template

	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.templates[id]
	if !ok {
		return domain.Template{}, domain.ErrTemplateNotFound
	}

	return template, nil
}

func (s *Store) ListTemplates(ctx context.Context, category string) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Template

	for _, template := range s.templates {
		if !template.Public {
			continue
		}
		if category != "" && template.Category != category {
			continue
		}

		result = append(result, template)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// API keys

func (s *Store) CreateAPIKey(ctx context.Context, key domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apiKeys[key.ID] = key

	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, tokenHash string) (domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.apiKeys {
		if key.TokenHash == tokenHash {
			return key, nil
		}
	}

	return domain.APIKey{}, domain.ErrAPIKeyNotFound
}

func (s *Store) ListAPIKeysByOrganization(ctx context.Context, organizationID string) ([]domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.APIKey

	for _, key := range s.apiKeys {
		if key.OrganizationID == organizationID {
			result = append(result, key)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrAPIKeyNotFound
	}

	key.LastUsedAt = &usedAt
	s.apiKeys[id] = key

	return nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apiKeys[id]; !ok {
		return domain.ErrAPIKeyNotFound
	}

	delete(s.apiKeys, id)

	return nil
}

// Webhooks

func (s *Store) CreateWebhook(ctx context.Context, webhook domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.webhooks[webhook.ID] = webhook

	return nil
}

func (s *Store) GetWebhook(ctx context.Context, id string) (domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	webhook, ok := s.webhooks[id]
	if !ok {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}

	return webhook, nil
}

func (s *Store) ListWebhooksByOrganization(ctx context.Context, organizationID string) ([]domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Webhook

	for _, webhook := range s.webhooks {
		if webhook.OrganizationID == organizationID {
			result = append(result, webhook)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) UpdateWebhook(ctx context.Context, webhook domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[webhook.ID]; !ok {
		return domain.ErrWebhookNotFound
	}

	s.webhooks[webhook.ID] = webhook

	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[id]; !ok {
		return domain.ErrWebhookNotFound
	}

	delete(s.webhooks, id)

	return nil
}

// Provider keys

func (s *Store) CreateProviderKey(ctx context.Context, key domain.ProviderKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.providerKeys[key.ID] = key

	return nil
}

func (s *Store) GetProviderKey(ctx context.Context, id string) (domain.ProviderKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.providerKeys[id]
	if !ok {
		return domain.ProviderKey{}, domain.ErrProviderKeyNotFound
	}

	return key, nil
}

func (s *Store) GetProviderKeyByProvider(ctx context.Context, organizationID string, provider domain.ModelProviderType) (domain.ProviderKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest domain.ProviderKey
	found := false

	for _, key := range s.providerKeys {
		if key.OrganizationID != organizationID || key.Provider != provider {
			continue
		}

		if !found || key.CreatedAt.After(newest.CreatedAt) {
			newest = key
			found = true
		}
	}

	if !found {
		return domain.ProviderKey{}, domain.ErrProviderKeyNotFound
	}

	return newest, nil
}

func (s *Store) ListProviderKeysByOrganization(ctx context.Context, organizationID string) ([]domain.ProviderKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ProviderKey

	for _, key := range s.providerKeys {
		if key.OrganizationID == organizationID {
			result = append(result, key)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) DeleteProviderKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providerKeys[id]; !ok {
		return domain.ErrProviderKeyNotFound
	}

	delete(s.providerKeys, id)

	return nil
}

// Audit

func (s *Store) CreateAuditEntries(ctx context.Context, entries []domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditEntries = append(s.auditEntries, entries...)

	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, organizationID string, limit, offset int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.AuditEntry

	for _, entry := range s.auditEntries {
		if entry.OrganizationID == organizationID {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}

	if offset > len(matched) {
		offset = len(matched)
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], nil
}
