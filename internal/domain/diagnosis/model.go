package diagnosis

import "strings"

type Diagnosis struct {
	ID          int64  `json:"id,omitempty"`
	Diagnosis   string `json:"diagnosis"`
	Description string `json:"description"`
}

func key(d Diagnosis) int64 { return d.ID }

// Form is the submitted create/edit form.
type Form struct {
	Diagnosis   string `form:"diagnosis"`
	Description string `form:"description"`
}

func (f Form) toDiagnosis(id int64) Diagnosis {
	return Diagnosis{
		ID:          id,
		Diagnosis:   strings.TrimSpace(f.Diagnosis),
		Description: strings.TrimSpace(f.Description),
	}
}
