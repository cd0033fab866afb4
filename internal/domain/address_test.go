package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

func TestAddressEquals(t *testing.T) {
	a := domain.NewAddress("Tverskaya 1", "Moscow", "Moscow", "RU", "125009")
	b := domain.NewAddress("Tverskaya 1", "Moscow", "Moscow", "RU", "125009")
	c := domain.NewAddress("Tverskaya 2", "Moscow", "Moscow", "RU", "125009")

	if !a.Equals(b) {
		t.Fatal("addresses with equal fields must be equal")
	}
	if a.Equals(c) {
		t.Fatal("addresses with different street must not be equal")
	}
	if a.IsZero() {
		t.Fatal("filled address must not be zero")
	}
	if !(domain.Address{}).IsZero() {
		t.Fatal("empty address must be zero")
	}
}
