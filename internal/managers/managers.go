// Package managers holds the domain logic behind the HTTP layer. Each
// manager is constructed from a Dependencies struct and returns the
// interface declared in the domain package. Managers receive an
// organization id that the membership middleware has already verified;
// they are responsible for checking that nested resources belong to
// that organization.
package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(domain.AuditEntry) {}

type noopEventDispatcher struct{}

func (noopEventDispatcher) Dispatch(domain.WebhookEvent) {}

func auditRecorderOrNoop(recorder domain.AuditRecorder) domain.AuditRecorder {
	if recorder == nil {
		return noopAuditRecorder{}
	}
	return recorder
}

func eventDispatcherOrNoop(dispatcher domain.EventDispatcher) domain.EventDispatcher {
	if dispatcher == nil {
		return noopEventDispatcher{}
	}
	return dispatcher
}

// requireProject resolves a project and hides cross-tenant projects
// behind ErrProjectNotFound.
func requireProject(ctx context.Context, projects domain.ProjectStore, organizationID, projectID string) (domain.Project, error) {
	project, err := projects.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("failed to get project: %w", err)
	}

	if project.OrganizationID != organizationID {
		return domain.Project{}, domain.ErrProjectNotFound
	}

	return project, nil
}

// requirePrompt resolves a prompt through its project chain. Prompts
// outside the organization resolve to ErrPromptNotFound.
func requirePrompt(ctx context.Context, prompts domain.PromptStore, projects domain.ProjectStore, organizationID, promptID string) (domain.Prompt, error) {
	prompt, err := prompts.GetPrompt(ctx, promptID)
	if err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) {
			return domain.Prompt{}, domain.ErrPromptNotFound
		}
		return domain.Prompt{}, fmt.Errorf("failed to get prompt: %w", err)
	}

	if _, err := requireProject(ctx, projects, organizationID, prompt.ProjectID); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Prompt{}, domain.ErrPromptNotFound
		}
		return domain.Prompt{}, err
	}

	return prompt, nil
}
