package domain

import (
	"context"
)

type InviteParams struct {
	Email            string
	OrganizationName string
	InviterName      string
}

type InviteMailer interface {
	SendInvite(ctx context.Context, params InviteParams) error
}
