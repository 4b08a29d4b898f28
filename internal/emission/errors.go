package emission

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for emission estimation, comparable with errors.Is().
var (
	// ErrUnsupportedMode indicates a leg mode outside the supported set
	// (air, sea). The leg is excluded from totals but kept in breakdowns.
	ErrUnsupportedMode = constError("unsupported transport mode")

	// ErrNoFactor indicates the factor set has no entry for a supported
	// mode. This is a dataset problem, not a shipment problem.
	ErrNoFactor = constError("no emission factor for mode")

	// ErrUnknownSubtype indicates a vehicle subtype the factor set does not
	// define for the given mode.
	ErrUnknownSubtype = constError("unknown vehicle subtype")

	// ErrInvalidFactorSet indicates the factor dataset failed validation.
	ErrInvalidFactorSet = constError("invalid factor set")

	// ErrSchemaVersion indicates a factor dataset version outside the
	// supported schema range.
	ErrSchemaVersion = constError("unsupported factor schema version")

	// ErrNegativeDistance indicates a negative leg distance.
	ErrNegativeDistance = constError("negative distance")

	// ErrNegativeMass indicates a negative cargo mass.
	ErrNegativeMass = constError("negative cargo mass")
)
