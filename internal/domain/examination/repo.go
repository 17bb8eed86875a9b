package examination

import "context"

type Repository interface {
	ListByPatient(ctx context.Context, token string, patientID int64) ([]Examination, error)
	Get(ctx context.Context, token string, id int64) (Examination, error)
	Create(ctx context.Context, token string, e Examination) (Examination, error)
	Delete(ctx context.Context, token string, id int64) error
	DiagnosisOptions(ctx context.Context, token string) ([]DiagnosisOption, error)
}
