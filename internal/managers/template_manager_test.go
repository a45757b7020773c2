package managers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

func newTestTemplateManager(f *fixture) domain.TemplateManager {
	return NewTemplateManager(TemplateManagerDependencies{
		TemplateStore: f.store,
		PromptStore:   f.store,
		ProjectStore:  f.store,
		IDGenerator:   f.ids,
	})
}

func (f *fixture) addTemplate(t *testing.T, name, category string) domain.Template {
	t.Helper()

	template := domain.Template{
		ID:          f.ids.NewID(),
		Name:        name,
		Description: "Turns tickets into summaries",
		Category:    category,
		Content:     "Summarize the following ticket: {{ticket}}",
		Variables:   map[string]any{"ticket": "string"},
		Public:      true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.store.CreateTemplate(context.Background(), template))

	return template
}

func TestTemplateManager_ListByCategory(t *testing.T) {
	f := newFixture(t)
	manager := newTestTemplateManager(f)
	ctx := context.Background()

	f.addTemplate(t, "Ticket summarizer", "support")
	f.addTemplate(t, "Code reviewer", "engineering")

	all, err := manager.ListTemplates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	support, err := manager.ListTemplates(ctx, "support")
	require.NoError(t, err)
	require.Len(t, support, 1)
	assert.Equal(t, "Ticket summarizer", support[0].Name)
}

func TestTemplateManager_InstallTemplate(t *testing.T) {
	f := newFixture(t)
	manager := newTestTemplateManager(f)
	ctx := context.Background()

	template := f.addTemplate(t, "Ticket summarizer", "support")

	prompt, err := manager.InstallTemplate(ctx, domain.InstallTemplateParams{
		TemplateID:     template.ID,
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, template.Name, prompt.Name)
	assert.Equal(t, template.Description, prompt.Description)
	assert.Equal(t, f.project.ID, prompt.ProjectID)
	require.NotEmpty(t, prompt.CurrentVersionID)

	version, err := f.store.GetPromptVersion(ctx, prompt.CurrentVersionID)
	require.NoError(t, err)
	assert.Equal(t, 1, version.Version)
	assert.Equal(t, template.Content, version.Content)
	assert.Equal(t, template.Variables, version.Variables)
}

func TestTemplateManager_InstallWithNameOverride(t *testing.T) {
	f := newFixture(t)
	manager := newTestTemplateManager(f)
	ctx := context.Background()

	template := f.addTemplate(t, "Ticket summarizer", "support")

	prompt, err := manager.InstallTemplate(ctx, domain.InstallTemplateParams{
		TemplateID:     template.ID,
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
		Name:           "Support digest",
	})
	require.NoError(t, err)
	assert.Equal(t, "Support digest", prompt.Name)
}

func TestTemplateManager_InstallUnknownTemplate(t *testing.T) {
	f := newFixture(t)
	manager := newTestTemplateManager(f)

	_, err := manager.InstallTemplate(context.Background(), domain.InstallTemplateParams{
		TemplateID:     "missing",
		ProjectID:      f.project.ID,
		OrganizationID: f.org.ID,
		ActorID:        f.user.ID,
	})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestTemplateManager_InstallCrossTenantProject(t *testing.T) {
	f := newFixture(t)
	manager := newTestTemplateManager(f)
	ctx := context.Background()

	template := f.addTemplate(t, "Ticket summarizer", "support")
	other := f.addOrganization(t, "Other", f.user.ID)

	_, err := manager.InstallTemplate(ctx, domain.InstallTemplateParams{
		TemplateID:     template.ID,
		ProjectID:      f.project.ID,
		OrganizationID: other.ID,
		ActorID:        f.user.ID,
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
