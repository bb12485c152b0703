package geo

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"
)

// Cell quantizes a coordinate to the H3 cell id at res. Nearby requests for
// the same place share upstream cache entries this way.
func Cell(lat, lon float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if !Valid(lat, lon) {
		return "", fmt.Errorf("invalid coordinates %v,%v", lat, lon)
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// Parent returns the ancestor of cell at parentRes.
func Parent(cell string, parentRes int) (string, error) {
	if err := validateRes(parentRes); err != nil {
		return "", err
	}
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return "", fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return "", fmt.Errorf("invalid h3 cell %q", cell)
	}
	cur := c.Resolution()
	if parentRes > cur {
		return "", fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, cur)
	}
	if parentRes == cur {
		return cell, nil
	}
	p, err := c.Parent(parentRes)
	if err != nil {
		return "", fmt.Errorf("h3 parent: %w", err)
	}
	return p.String(), nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
