package diagnosis

import "context"

// Repository is the backend's diagnosis resource. Every call carries the
// caller's bearer token.
type Repository interface {
	List(ctx context.Context, token string) ([]Diagnosis, error)
	Get(ctx context.Context, token string, id int64) (Diagnosis, error)
	Create(ctx context.Context, token string, d Diagnosis) (Diagnosis, error)
	Update(ctx context.Context, token string, d Diagnosis) (Diagnosis, error)
	Delete(ctx context.Context, token string, id int64) error
}
