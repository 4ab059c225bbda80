package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

const defaultProductLimit = 6

// ListDoctors returns the clinic's doctors with their specialties and fees.
type ListDoctors struct{}

type doctorSummary struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Specialty   string   `json:"specialty"`
	Rating      float64  `json:"rating"`
	Experience  string   `json:"experience"`
	Price       int      `json:"price"`
	Available   bool     `json:"available"`
	Specialties []string `json:"specialties"`
}

func (ListDoctors) Name() string { return "list_doctors" }

func (ListDoctors) Description() string {
	return `List the clinic's doctors with specialty, rating, years of experience, consultation fee
and availability. Use this when the patient asks who to see, what a doctor specializes in,
or how much a consultation costs. Optionally filter by a specialty keyword such as "cosmetic" or "eczema".`
}

func (ListDoctors) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "specialty": {
                "type": "string",
                "description": "Case-insensitive keyword matched against the doctor's specialty and specialties."
            }
        }
    }`)
}

func (ListDoctors) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Specialty string `json:"specialty"`
	}
	if err := decodeParams(params, &input); err != nil {
		return nil, err
	}
	kw := strings.ToLower(strings.TrimSpace(input.Specialty))

	out := make([]doctorSummary, 0, 3)
	for _, d := range catalog.Doctors() {
		if kw != "" && !doctorMatches(d, kw) {
			continue
		}
		out = append(out, doctorSummary{
			ID:          d.ID,
			Name:        d.Name,
			Specialty:   d.Specialty,
			Rating:      d.Rating,
			Experience:  d.Experience,
			Price:       d.Price,
			Available:   d.Available,
			Specialties: d.Specialties,
		})
	}
	return json.Marshal(map[string]any{"doctors": out})
}

func doctorMatches(d catalog.Doctor, kw string) bool {
	if strings.Contains(strings.ToLower(d.Specialty), kw) {
		return true
	}
	for _, s := range d.Specialties {
		if strings.Contains(strings.ToLower(s), kw) {
			return true
		}
	}
	return false
}

// ListServices returns the bookable services with duration and price.
type ListServices struct{}

func (ListServices) Name() string { return "list_services" }

func (ListServices) Description() string {
	return `List the bookable clinic services with duration, price and a short description.
Use this when the patient asks what they can book or what a treatment costs.
The total cost of an appointment is the doctor's fee plus the service price.`
}

func (ListServices) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (ListServices) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]any{"services": catalog.Services()})
}

// SearchProducts filters the shop by category and name.
type SearchProducts struct{}

type productSummary struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         int     `json:"price"`
	OriginalPrice int     `json:"original_price"`
	Rating        float64 `json:"rating"`
	Description   string  `json:"description"`
}

func (SearchProducts) Name() string { return "search_products" }

func (SearchProducts) Description() string {
	return `Search the clinic shop for care products. Filter by category (skincare, dental, tools,
supplements, or all) and by a case-insensitive name substring. Use this to recommend concrete
products the patient can buy, never invent products that are not returned here.`
}

func (SearchProducts) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "category": {
                "type": "string",
                "description": "Category id: all, skincare, dental, tools or supplements. Defaults to all."
            },
            "query": {
                "type": "string",
                "description": "Case-insensitive substring of the product name."
            },
            "limit": {
                "type": "integer",
                "description": "Maximum number of products to return. Default 6."
            }
        }
    }`)
}

func (SearchProducts) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Category string `json:"category"`
		Query    string `json:"query"`
		Limit    int    `json:"limit"`
	}
	if err := decodeParams(params, &input); err != nil {
		return nil, err
	}
	if input.Limit <= 0 || input.Limit > defaultProductLimit {
		input.Limit = defaultProductLimit
	}

	matches := catalog.FilterProducts(input.Category, input.Query)
	out := make([]productSummary, 0, min(len(matches), input.Limit))
	for _, p := range matches {
		if len(out) >= input.Limit {
			break
		}
		out = append(out, productSummary{
			ID:            p.ID,
			Name:          p.Name,
			Category:      p.Category,
			Price:         p.Price,
			OriginalPrice: p.OriginalPrice,
			Rating:        p.Rating,
			Description:   p.Description,
		})
	}
	return json.Marshal(map[string]any{"products": out, "total": len(matches)})
}

// decodeParams unmarshals tool input, treating empty params as an empty object.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
