// Package shop keeps each patient's favorite products and cart.
package shop

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

var ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

// CartLine is one product in a cart.
type CartLine struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal int             `json:"subtotal"`
}

// Cart is a priced snapshot of a patient's cart.
type Cart struct {
	Lines []CartLine `json:"lines"`
	Items int        `json:"items"`
	Total int        `json:"total"`
}

type basket struct {
	favorites map[int]bool
	// product id -> quantity
	cart map[int]int
}

// Service holds favorites and carts in memory.
type Service struct {
	mu      sync.Mutex
	baskets map[string]*basket
}

func NewService() *Service {
	return &Service{baskets: make(map[string]*basket)}
}

func (s *Service) basket(patientID string) *basket {
	b, ok := s.baskets[patientID]
	if !ok {
		b = &basket{favorites: make(map[int]bool), cart: make(map[int]int)}
		s.baskets[patientID] = b
	}
	return b
}

// ToggleFavorite flips productID in the patient's favorites and reports
// whether it is now a favorite.
func (s *Service) ToggleFavorite(_ context.Context, patientID string, productID int) (bool, error) {
	if _, err := catalog.ProductByID(productID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.basket(patientID)
	if b.favorites[productID] {
		delete(b.favorites, productID)
		return false, nil
	}
	b.favorites[productID] = true
	return true, nil
}

// Favorites returns the patient's favorite product ids in ascending order.
func (s *Service) Favorites(_ context.Context, patientID string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, 0)
	if b, ok := s.baskets[patientID]; ok {
		for id := range b.favorites {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// AddToCart adds quantity of productID to the patient's cart.
func (s *Service) AddToCart(ctx context.Context, patientID string, productID, quantity int) (*Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if _, err := catalog.ProductByID(productID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	b := s.basket(patientID)
	b.cart[productID] = min(b.cart[productID]+quantity, MaxQuantity)
	s.mu.Unlock()

	return s.Cart(ctx, patientID), nil
}

// RemoveFromCart drops productID from the cart.
func (s *Service) RemoveFromCart(ctx context.Context, patientID string, productID int) (*Cart, error) {
	if _, err := catalog.ProductByID(productID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if b, ok := s.baskets[patientID]; ok {
		delete(b.cart, productID)
	}
	s.mu.Unlock()

	return s.Cart(ctx, patientID), nil
}

// Cart prices the patient's cart against the catalog.
func (s *Service) Cart(_ context.Context, patientID string) *Cart {
	s.mu.Lock()
	quantities := make(map[int]int)
	if b, ok := s.baskets[patientID]; ok {
		for id, q := range b.cart {
			quantities[id] = q
		}
	}
	s.mu.Unlock()

	ids := make([]int, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := &Cart{Lines: make([]CartLine, 0, len(ids))}
	for _, id := range ids {
		p, err := catalog.ProductByID(id)
		if err != nil {
			continue
		}
		q := quantities[id]
		out.Lines = append(out.Lines, CartLine{Product: p, Quantity: q, Subtotal: p.Price * q})
		out.Items += q
		out.Total += p.Price * q
	}
	return out
}
