package examination

import (
	"strconv"
	"strings"

	"github.com/medadmin/medadmin/internal/platform/screen"
)

type Examination struct {
	ID              int64   `json:"id,omitempty"`
	ExaminationDate string  `json:"examinationDate"`
	Treatment       string  `json:"treatment"`
	DiagnosisIDs    []int64 `json:"diagnosisIds"`
	PatientID       int64   `json:"patientId,omitempty"`
	DoctorID        int64   `json:"doctorId,omitempty"`
}

func key(e Examination) int64 { return e.ID }

// DiagnosisOption is a diagnosis offered on the examination form.
type DiagnosisOption struct {
	ID        int64  `json:"id"`
	Diagnosis string `json:"diagnosis"`
}

// Form is the submitted new-examination form.
type Form struct {
	PatientID       int64   `form:"patientId"`
	ExaminationDate string  `form:"examinationDate"`
	Treatment       string  `form:"treatment"`
	DiagnosisIDs    []int64 `form:"diagnosisIds"`
}

func (f Form) toExamination(doctorID int64) Examination {
	return Examination{
		ExaminationDate: strings.TrimSpace(f.ExaminationDate),
		Treatment:       strings.TrimSpace(f.Treatment),
		DiagnosisIDs:    append([]int64{}, f.DiagnosisIDs...),
		PatientID:       f.PatientID,
		DoctorID:        doctorID,
	}
}

// ListView is the data of the examination list page.
type ListView struct {
	PatientID int64
	CanCreate bool
	CanDelete bool
	List      screen.Snapshot[Examination]
}

type OptionView struct {
	ID      int64
	Label   string
	Checked bool
}

// FormView is the data of the new-examination page.
type FormView struct {
	PatientID       int64
	ExaminationDate string
	Treatment       string
	Diagnoses       []OptionView
}

func newFormView(f Form, options []DiagnosisOption) FormView {
	checked := make(map[int64]bool, len(f.DiagnosisIDs))
	for _, id := range f.DiagnosisIDs {
		checked[id] = true
	}
	v := FormView{PatientID: f.PatientID, ExaminationDate: f.ExaminationDate, Treatment: f.Treatment}
	for _, o := range options {
		label := o.Diagnosis
		if label == "" {
			label = "#" + strconv.FormatInt(o.ID, 10)
		}
		v.Diagnoses = append(v.Diagnoses, OptionView{ID: o.ID, Label: label, Checked: checked[o.ID]})
	}
	return v
}
