package examination

import (
	"context"
	"fmt"
	"strconv"

	"github.com/medadmin/medadmin/internal/platform/backend"
)

const (
	collectionPath = "/v1/examination"
	diagnosisPath  = "/v1/diagnosis/list"
)

const (
	itemPath    backend.Template = "/v1/examination/{id}"
	patientPath backend.Template = "/v1/examination/patient/{id}"
)

type APIRepository struct {
	client *backend.Client
}

func NewAPIRepository(client *backend.Client) *APIRepository {
	return &APIRepository{client: client}
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }

func (r *APIRepository) ListByPatient(ctx context.Context, token string, patientID int64) ([]Examination, error) {
	var out []Examination
	if err := r.client.Get(ctx, patientPath.Expand(idString(patientID)), token, &out); err != nil {
		return nil, fmt.Errorf("list examinations of patient %d: %w", patientID, err)
	}
	return out, nil
}

func (r *APIRepository) Get(ctx context.Context, token string, id int64) (Examination, error) {
	var out Examination
	if err := r.client.Get(ctx, itemPath.Expand(idString(id)), token, &out); err != nil {
		return Examination{}, fmt.Errorf("get examination %d: %w", id, err)
	}
	return out, nil
}

func (r *APIRepository) Create(ctx context.Context, token string, e Examination) (Examination, error) {
	e.ID = 0
	out := e
	if err := r.client.Post(ctx, collectionPath, token, e, &out); err != nil {
		return Examination{}, fmt.Errorf("create examination: %w", err)
	}
	return out, nil
}

func (r *APIRepository) Delete(ctx context.Context, token string, id int64) error {
	if err := r.client.Delete(ctx, itemPath.Expand(idString(id)), token); err != nil {
		return fmt.Errorf("delete examination %d: %w", id, err)
	}
	return nil
}

func (r *APIRepository) DiagnosisOptions(ctx context.Context, token string) ([]DiagnosisOption, error) {
	var out []DiagnosisOption
	if err := r.client.Get(ctx, diagnosisPath, token, &out); err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	return out, nil
}
