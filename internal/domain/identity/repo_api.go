package identity

import (
	"context"
	"fmt"

	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/session"
)

const doctorListPath = "/v1/doctor/list"

// APIRepository reads identities and the doctor listing from the backend.
type APIRepository struct {
	client *backend.Client
}

func NewAPIRepository(client *backend.Client) *APIRepository {
	return &APIRepository{client: client}
}

func (r *APIRepository) Login(ctx context.Context, creds backend.Credentials) (*session.Session, error) {
	return r.client.Login(ctx, creds)
}

func (r *APIRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.client.Get(ctx, doctorListPath, "", &doctors); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}
