package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

const quoteToolName = "quote_consultation"

// ConsultationQuote prices a service with the doctor the patient is
// chatting with. It is only offered while that doctor takes bookings.
type ConsultationQuote struct {
	Doctor catalog.Doctor
}

type quote struct {
	DoctorID   int      `json:"doctor_id"`
	DoctorName string   `json:"doctor_name"`
	Service    string   `json:"service"`
	Duration   string   `json:"duration"`
	DoctorFee  int      `json:"doctor_fee"`
	ServiceFee int      `json:"service_fee"`
	Total      int      `json:"total"`
	TimeSlots  []string `json:"time_slots"`
}

func (ConsultationQuote) Name() string { return quoteToolName }

func (q ConsultationQuote) Description() string {
	return fmt.Sprintf(`Quote the total price of booking a service with you, %s.
The total is your consultation fee ($%d) plus the service price. Also returns the bookable
times of day. Use this when the patient asks what a visit with you would cost or when
they could come in. Look up service ids with list_services first.`, q.Doctor.Name, q.Doctor.Price)
}

func (ConsultationQuote) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "service_id": {
                "type": "integer",
                "description": "Id of the service from list_services."
            }
        },
        "required": ["service_id"]
    }`)
}

func (q ConsultationQuote) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		ServiceID int `json:"service_id"`
	}
	if err := decodeParams(params, &input); err != nil {
		return nil, err
	}
	svc, err := catalog.ServiceByID(input.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("service %d: %w", input.ServiceID, err)
	}
	return json.Marshal(quote{
		DoctorID:   q.Doctor.ID,
		DoctorName: q.Doctor.Name,
		Service:    svc.Name,
		Duration:   svc.Duration,
		DoctorFee:  q.Doctor.Price,
		ServiceFee: svc.Price,
		Total:      q.Doctor.Price + svc.Price,
		TimeSlots:  catalog.TimeSlots(),
	})
}
