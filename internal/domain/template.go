package domain

import (
	"context"
	"errors"
	"time"
)

var ErrTemplateNotFound = errors.New("template not found")

type Template struct {
	ID          string
	Name        string
	Description string
	Category    string
	Content     string
	Variables   map[string]any
	Public      bool
	CreatedAt   time.Time
}

type TemplateStore interface {
	CreateTemplate(ctx context.Context, template Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplates(ctx context.Context, category string) ([]Template, error)
}

type InstallTemplateParams struct {
	TemplateID     string
	ProjectID      string
	OrganizationID string
	ActorID        string

	// Name overrides the template name for the installed prompt.
	Name string
}

type TemplateManager interface {
	ListTemplates(ctx context.Context, category string) ([]Template, error)
	GetTemplate(ctx context.Context, templateID string) (Template, error)

	// InstallTemplate copies the template into the project as a new
	// prompt with an initial version, in one transaction.
	InstallTemplate(ctx context.Context, params InstallTemplateParams) (Prompt, error)
}
