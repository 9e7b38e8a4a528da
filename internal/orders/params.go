package orders

import "context"

// ProcessingParams drives the pouch and box math. Weight is pressed into
// juice at JuiceRatio liters per kilogram, bagged into pouches of
// PouchLiters, and packed BoxCapacity pouches per box.
type ProcessingParams struct {
	JuiceRatio  float64
	PouchLiters float64
	BoxCapacity int
}

// DefaultProcessingParams returns the press line defaults.
func DefaultProcessingParams() ProcessingParams {
	return ProcessingParams{JuiceRatio: 0.65, PouchLiters: 3, BoxCapacity: 8}
}

// ParamsSource supplies the current processing parameters, usually backed by
// the settings store.
type ParamsSource interface {
	ProcessingParams(ctx context.Context) (ProcessingParams, error)
}

// StaticParams is a ParamsSource with fixed values.
type StaticParams struct {
	Params ProcessingParams
}

// ProcessingParams implements ParamsSource.
func (s StaticParams) ProcessingParams(context.Context) (ProcessingParams, error) {
	return s.Params, nil
}
