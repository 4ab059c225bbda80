package shop

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

func TestToggleFavorite(t *testing.T) {
	t.Parallel()

	s := NewService()
	ctx := context.Background()

	on, err := s.ToggleFavorite(ctx, "p1", 2)
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v, want true", on, err)
	}
	_, _ = s.ToggleFavorite(ctx, "p1", 1)
	if got := s.Favorites(ctx, "p1"); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("favorites = %v, want [1 2]", got)
	}

	on, err = s.ToggleFavorite(ctx, "p1", 2)
	if err != nil || on {
		t.Fatalf("second toggle = %v, %v, want false", on, err)
	}
	if got := s.Favorites(ctx, "p1"); !slices.Equal(got, []int{1}) {
		t.Errorf("favorites = %v, want [1]", got)
	}
	if got := s.Favorites(ctx, "p2"); len(got) != 0 {
		t.Errorf("other patient favorites = %v", got)
	}
}

func TestToggleFavorite_UnknownProduct(t *testing.T) {
	t.Parallel()

	s := NewService()
	if _, err := s.ToggleFavorite(context.Background(), "p1", 99); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want catalog.ErrNotFound", err)
	}
}

func TestCart(t *testing.T) {
	t.Parallel()

	s := NewService()
	ctx := context.Background()

	if c := s.Cart(ctx, "p1"); len(c.Lines) != 0 || c.Total != 0 {
		t.Errorf("empty cart = %+v", c)
	}

	// toothpaste 25, electric toothbrush 150
	if _, err := s.AddToCart(ctx, "p1", 4, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	c, err := s.AddToCart(ctx, "p1", 2, 2)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if c.Total != 200 || c.Items != 3 || len(c.Lines) != 2 {
		t.Errorf("cart = %+v, want total 200 over 3 items", c)
	}
	if c.Lines[0].Product.ID != 2 || c.Lines[0].Subtotal != 50 {
		t.Errorf("first line = %+v", c.Lines[0])
	}

	c, _ = s.AddToCart(ctx, "p1", 2, 1)
	if c.Lines[0].Quantity != 3 {
		t.Errorf("toothpaste quantity = %d, want 3", c.Lines[0].Quantity)
	}

	c, err = s.RemoveFromCart(ctx, "p1", 4)
	if err != nil {
		t.Fatalf("RemoveFromCart: %v", err)
	}
	if c.Total != 75 || len(c.Lines) != 1 {
		t.Errorf("after remove = %+v", c)
	}
}

func TestAddToCart_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		product int
		qty     int
		want    error
	}{
		{"unknown product", 42, 1, catalog.ErrNotFound},
		{"zero quantity", 1, 0, ErrInvalidQuantity},
		{"negative quantity", 1, -2, ErrInvalidQuantity},
		{"too many", 1, MaxQuantity + 1, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewService()
			if _, err := s.AddToCart(context.Background(), "p1", tt.product, tt.qty); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddToCart_CapsQuantity(t *testing.T) {
	t.Parallel()

	s := NewService()
	ctx := context.Background()
	_, _ = s.AddToCart(ctx, "p1", 1, 60)
	c, _ := s.AddToCart(ctx, "p1", 1, 60)
	if c.Lines[0].Quantity != MaxQuantity {
		t.Errorf("quantity = %d, want %d", c.Lines[0].Quantity, MaxQuantity)
	}
}
