package clinicapi

import (
	"github.com/linnemanlabs/smilecare/internal/analysis"
	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/catalog"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

// assessmentView adds what the quiz screen renders to an assessment.
type assessmentView struct {
	*triage.Assessment
	Question *urgency.Question `json:"question,omitempty"`
	Progress float64           `json:"progress"`
	Tier     *urgency.TierInfo `json:"tier_info,omitempty"`
}

func newAssessmentView(a *triage.Assessment) assessmentView {
	v := assessmentView{Assessment: a, Progress: a.Quiz().Progress()}
	if q, ok := a.CurrentQuestion(); ok {
		v.Question = &q
	}
	if a.Result != nil {
		info := a.Result.Tier.Info()
		v.Tier = &info
	}
	return v
}

type jobView struct {
	*analysis.Job
	Progress    float64       `json:"progress"`
	CurrentStep analysis.Step `json:"current_step"`
}

func newJobView(j *analysis.Job) jobView {
	v := jobView{Job: j, Progress: j.Progress()}
	if j.Step >= 0 && j.Step < len(j.Steps) {
		v.CurrentStep = j.Steps[j.Step]
	}
	return v
}

// draftView adds the selected catalog entries and running cost to a draft.
type draftView struct {
	*booking.Draft
	StepName  string           `json:"step_name"`
	Doctor    *catalog.Doctor  `json:"doctor,omitempty"`
	Service   *catalog.Service `json:"service,omitempty"`
	TotalCost int              `json:"total_cost"`
}

func newDraftView(d *booking.Draft) draftView {
	v := draftView{Draft: d, StepName: d.Step.String()}
	if doc, err := catalog.DoctorByID(d.DoctorID); err == nil {
		v.Doctor = &doc
		v.TotalCost += doc.Price
	}
	if svc, err := catalog.ServiceByID(d.ServiceID); err == nil {
		v.Service = &svc
		v.TotalCost += svc.Price
	}
	return v
}
