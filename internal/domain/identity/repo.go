package identity

import (
	"context"

	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/session"
)

type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (*session.Session, error)
}

type DoctorDirectory interface {
	ListDoctors(ctx context.Context) ([]Doctor, error)
}
