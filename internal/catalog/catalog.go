// Package catalog is the single read-only catalog of the clinic: doctors,
// bookable services, product categories, products, clinic offerings and
// appointment time slots. Every accessor returns copies.
package catalog

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups for IDs that are not in the catalog.
var ErrNotFound = errors.New("not found in catalog")

// AllCategory matches every product in FilterProducts.
const AllCategory = "all"

// BookingWindowDays is the number of consecutive days offered for booking.
const BookingWindowDays = 21

// ChatStatus is a doctor's availability for chat.
type ChatStatus string

const (
	ChatOnline ChatStatus = "online"
	ChatBusy   ChatStatus = "busy"
)

type Doctor struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Specialty   string     `json:"specialty"`
	Rating      float64    `json:"rating"`
	Experience  string     `json:"experience"`
	Price       int        `json:"price"`
	Image       string     `json:"image"`
	Available   bool       `json:"available"`
	ChatStatus  ChatStatus `json:"chat_status"`
	Greeting    string     `json:"greeting"`
	Specialties []string   `json:"specialties"`
}

type Service struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	Minutes     int    `json:"minutes"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Product struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Price         int     `json:"price"`
	OriginalPrice int     `json:"original_price"`
	Rating        float64 `json:"rating"`
	Reviews       int     `json:"reviews"`
	Image         string  `json:"image"`
	Category      string  `json:"category"`
	IsNew         bool    `json:"is_new"`
	Description   string  `json:"description"`
}

// Offering is a clinic feature card on the services screen.
type Offering struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	Color       string   `json:"color"`
	Features    []string `json:"features"`
	Duration    string   `json:"duration"`
	Accuracy    string   `json:"accuracy"`
}

// BookingDate is one selectable day in the booking calendar.
type BookingDate struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Day       int    `json:"day"`
	Month     string `json:"month"`
	Weekday   string `json:"weekday"`
	IsToday   bool   `json:"is_today"`
	IsWeekend bool   `json:"is_weekend"`
}

// Doctors returns every doctor.
func Doctors() []Doctor {
	out := make([]Doctor, len(doctors))
	for i, d := range doctors {
		out[i] = d.clone()
	}
	return out
}

// DoctorByID looks up a doctor.
func DoctorByID(id int) (Doctor, error) {
	for _, d := range doctors {
		if d.ID == id {
			return d.clone(), nil
		}
	}
	return Doctor{}, ErrNotFound
}

// Services returns every bookable service.
func Services() []Service {
	return append([]Service(nil), services...)
}

// ServiceByID looks up a bookable service.
func ServiceByID(id int) (Service, error) {
	for _, s := range services {
		if s.ID == id {
			return s, nil
		}
	}
	return Service{}, ErrNotFound
}

// Categories returns the product categories, "all" first.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Products returns every product.
func Products() []Product {
	return append([]Product(nil), products...)
}

// ProductByID looks up a product.
func ProductByID(id int) (Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// FilterProducts returns the products in category whose name contains query,
// case-insensitively. An empty category or AllCategory matches everything, as
// does an empty query.
func FilterProducts(category, query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != AllCategory && p.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Offerings returns the clinic feature cards.
func Offerings() []Offering {
	out := make([]Offering, len(offerings))
	for i, o := range offerings {
		o.Features = append([]string(nil), o.Features...)
		out[i] = o
	}
	return out
}

// TimeSlots returns the bookable times of day in display order.
func TimeSlots() []string {
	return append([]string(nil), timeSlots...)
}

// IsTimeSlot reports whether s is one of the bookable times.
func IsTimeSlot(s string) bool {
	for _, ts := range timeSlots {
		if ts == s {
			return true
		}
	}
	return false
}

// BookingDates returns BookingWindowDays consecutive days starting at from's
// calendar day. Friday and Saturday are flagged as the weekend.
func BookingDates(from time.Time) []BookingDate {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	out := make([]BookingDate, 0, BookingWindowDays)
	for i := range BookingWindowDays {
		d := start.AddDate(0, 0, i)
		out = append(out, BookingDate{
			Date:      d.Format(time.DateOnly),
			Day:       d.Day(),
			Month:     d.Format("Jan"),
			Weekday:   d.Format("Mon"),
			IsToday:   i == 0,
			IsWeekend: d.Weekday() == time.Friday || d.Weekday() == time.Saturday,
		})
	}
	return out
}

// InBookingWindow reports whether date (YYYY-MM-DD) is one of the days
// BookingDates(from) offers.
func InBookingWindow(date string, from time.Time) bool {
	for _, d := range BookingDates(from) {
		if d.Date == date {
			return true
		}
	}
	return false
}

func (d Doctor) clone() Doctor {
	d.Specialties = append([]string(nil), d.Specialties...)
	return d
}
