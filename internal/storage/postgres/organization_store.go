package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type OrganizationStore struct {
	pool *pgxpool.Pool
}

func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pool: pool}
}

func (s *OrganizationStore) CreateOrganization(ctx context.Context, org domain.Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.Slug, string(org.Plan), org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

func (s *OrganizationStore) GetOrganization(ctx context.Context, id string) (domain.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, plan, created_at, updated_at
		FROM organizations WHERE id = $1
	`, id)

	return scanOrganization(row)
}

func (s *OrganizationStore) GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, plan, created_at, updated_at
		FROM organizations WHERE slug = $1
	`, slug)

	return scanOrganization(row)
}

func (s *OrganizationStore) ListOrganizationsByUser(ctx context.Context, userID string) ([]domain.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.name, o.slug, o.plan, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

func (s *OrganizationStore) UpdateOrganization(ctx context.Context, org domain.Organization) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE organizations SET name = $2, slug = $3, plan = $4, updated_at = $5
		WHERE id = $1
	`, org.ID, org.Name, org.Slug, string(org.Plan), org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrganizationNotFound
	}

	return nil
}

func (s *OrganizationStore) DeleteOrganization(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrganizationNotFound
	}

	return nil
}

func (s *OrganizationStore) CreateMembership(ctx context.Context, membership domain.Membership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, membership.ID, membership.UserID, membership.OrganizationID, string(membership.Role), membership.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

func (s *OrganizationStore) GetMembership(ctx context.Context, organizationID, userID string) (domain.Membership, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, organization_id, role, created_at
		FROM memberships WHERE organization_id = $1 AND user_id = $2
	`, organizationID, userID)

	var membership domain.Membership
	var role string

	err := row.Scan(&membership.ID, &membership.UserID, &membership.OrganizationID, &role, &membership.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Membership{}, domain.ErrMembershipNotFound
		}
		return domain.Membership{}, fmt.Errorf("failed to get membership: %w", err)
	}
	membership.Role = domain.MembershipRole(role)

	return membership, nil
}

func (s *OrganizationStore) ListMemberships(ctx context.Context, organizationID string) ([]domain.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, organization_id, role, created_at
		FROM memberships WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		var membership domain.Membership
		var role string

		if err := rows.Scan(&membership.ID, &membership.UserID, &membership.OrganizationID, &role, &membership.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		membership.Role = domain.MembershipRole(role)
		memberships = append(memberships, membership)
	}

	return memberships, rows.Err()
}

func scanOrganization(row pgx.Row) (domain.Organization, error) {
	var org domain.Organization
	var plan string

	err := row.Scan(&org.ID, &org.Name, &org.Slug, &plan, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Organization{}, domain.ErrOrganizationNotFound
		}
		return domain.Organization{}, fmt.Errorf("failed to get organization: %w", err)
	}
	org.Plan = domain.PlanType(plan)

	return org, nil
}
