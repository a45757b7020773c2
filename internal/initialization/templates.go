package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain"
)

// starterTemplates is the built-in gallery. Installed copies become regular
// prompts owned by the installing project.
var starterTemplates = []domain.Template{
	{
		ID:          "tpl-article-summarizer",
		Name:        "Article Summarizer",
		Description: "Condenses an article into a short summary with key takeaways.",
		Category:    "writing",
		Content: "Summarize the following article in {{sentence_count}} sentences, " +
			"then list the {{takeaway_count}} most important takeaways as bullet points.\n\n" +
			"Article:\n{{article}}",
		Variables: map[string]any{
			"sentence_count": 3,
			"takeaway_count": 5,
			"article":        "",
		},
		Public: true,
	},
	{
		ID:          "tpl-support-reply",
		Name:        "Support Reply Drafter",
		Description: "Drafts an empathetic support reply from a ticket and resolution notes.",
		Category:    "support",
		Content: "You are a support agent for {{product_name}}. Write a reply to the " +
			"ticket below. Acknowledge the problem, explain the resolution in plain " +
			"language and keep the tone {{tone}}.\n\n" +
			"Ticket:\n{{ticket}}\n\nResolution notes:\n{{resolution_notes}}",
		Variables: map[string]any{
			"product_name":     "",
			"tone":             "friendly",
			"ticket":           "",
			"resolution_notes": "",
		},
		Public: true,
	},
	{
		ID:          "tpl-sql-generator",
		Name:        "SQL Query Generator",
		Description: "Turns a natural-language question into a SQL query for a given schema.",
		Category:    "engineering",
		Content: "Given this database schema:\n\n{{schema}}\n\n" +
			"Write a single {{dialect}} query answering: {{question}}\n" +
			"Return only the SQL, no explanation.",
		Variables: map[string]any{
			"schema":   "",
			"dialect":  "PostgreSQL",
			"question": "",
		},
		Public: true,
	},
	{
		ID:          "tpl-code-reviewer",
		Name:        "Code Review Assistant",
		Description: "Reviews a diff for bugs, naming and missing tests.",
		Category:    "engineering",
		Content: "Review the following {{language}} diff. Point out likely bugs, " +
			"unclear naming and missing test coverage. Rank findings by severity.\n\n" +
			"Diff:\n{{diff}}",
		Variables: map[string]any{
			"language": "Go",
			"diff":     "",
		},
		Public: true,
	},
	{
		ID:          "tpl-entity-extractor",
		Name:        "Entity Extractor",
		Description: "Extracts structured entities from free text as JSON.",
		Category:    "analysis",
		Content: "Extract every {{entity_type}} mentioned in the text below. " +
			"Respond with a JSON array of objects with fields {{fields}}. " +
			"Respond with JSON only.\n\nText:\n{{text}}",
		Variables: map[string]any{
			"entity_type": "company",
			"fields":      `"name", "context"`,
			"text":        "",
		},
		Public: true,
	},
	{
		ID:          "tpl-release-notes",
		Name:        "Release Notes Writer",
		Description: "Writes user-facing release notes from a commit log.",
		Category:    "marketing",
		Content: "Write release notes for version {{version}} of {{product_name}} " +
			"from the commit log below. Group changes into Added, Changed and " +
			"Fixed. Skip internal-only changes.\n\nCommit log:\n{{commits}}",
		Variables: map[string]any{
			"version":      "",
			"product_name": "",
			"commits":      "",
		},
		Public: true,
	},
}

// SeedTemplates installs the starter gallery into an empty template store.
// A store that already has templates is left untouched, so re-running
// migrations never duplicates or overwrites gallery edits.
func SeedTemplates(ctx context.Context, store domain.TemplateStore) (int, error) {
	existing, err := store.ListTemplates(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing templates: %w", err)
	}

	if len(existing) > 0 {
		return 0, nil
	}

	now := time.Now()
	seeded := 0

	for _, template := range starterTemplates {
		template.CreatedAt = now

		if err := store.CreateTemplate(ctx, template); err != nil {
			return seeded, fmt.Errorf("seeding template %s: %w", template.ID, err)
		}

		seeded++
	}

	return seeded, nil
}
