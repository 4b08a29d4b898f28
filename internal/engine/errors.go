package engine

import "fmt"

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrNilResolver is returned when the engine is built without a
	// location resolver.
	ErrNilResolver = constError("engine requires a location resolver")
)

// EmptyRouteError marks a shipment that has no legs to estimate.
type EmptyRouteError struct {
	Reference string
}

func (e *EmptyRouteError) Error() string {
	if e.Reference == "" {
		return "shipment has no legs"
	}
	return fmt.Sprintf("shipment %s has no legs", e.Reference)
}
