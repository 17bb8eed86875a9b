package diagnosis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/medadmin/medadmin/internal/platform/backend"
)

const (
	listPath       = "/v1/diagnosis/list"
	collectionPath = "/v1/diagnosis"
)

const itemPath backend.Template = "/v1/diagnosis/{id}"

type APIRepository struct {
	client *backend.Client
}

func NewAPIRepository(client *backend.Client) *APIRepository {
	return &APIRepository{client: client}
}

func itemURL(id int64) string {
	return itemPath.Expand(strconv.FormatInt(id, 10))
}

func (r *APIRepository) List(ctx context.Context, token string) ([]Diagnosis, error) {
	var out []Diagnosis
	if err := r.client.Get(ctx, listPath, token, &out); err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	return out, nil
}

func (r *APIRepository) Get(ctx context.Context, token string, id int64) (Diagnosis, error) {
	var out Diagnosis
	if err := r.client.Get(ctx, itemURL(id), token, &out); err != nil {
		return Diagnosis{}, fmt.Errorf("get diagnosis %d: %w", id, err)
	}
	return out, nil
}

// Create posts d. A backend that answers without a body yields d unchanged,
// with a zero ID.
func (r *APIRepository) Create(ctx context.Context, token string, d Diagnosis) (Diagnosis, error) {
	d.ID = 0
	out := d
	if err := r.client.Post(ctx, collectionPath, token, d, &out); err != nil {
		return Diagnosis{}, fmt.Errorf("create diagnosis: %w", err)
	}
	return out, nil
}

func (r *APIRepository) Update(ctx context.Context, token string, d Diagnosis) (Diagnosis, error) {
	out := d
	if err := r.client.Put(ctx, itemURL(d.ID), token, d, &out); err != nil {
		return Diagnosis{}, fmt.Errorf("update diagnosis %d: %w", d.ID, err)
	}
	if out.ID == 0 {
		out.ID = d.ID
	}
	return out, nil
}

func (r *APIRepository) Delete(ctx context.Context, token string, id int64) error {
	if err := r.client.Delete(ctx, itemURL(id), token); err != nil {
		return fmt.Errorf("delete diagnosis %d: %w", id, err)
	}
	return nil
}
