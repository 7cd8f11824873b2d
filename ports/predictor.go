package ports

// PredictorPort is the single capability the causal core requires of a
// black-box model: a pure, side-effect-free mapping from a feature vector to
// a scalar prediction. Adapter and wrapping logic for concrete ML libraries
// lives outside this module; nothing reflection-based may leak in here.
//
// Predict may return a non-finite value for pathological inputs; the core
// excludes such samples and degrades rather than failing outright.
type PredictorPort interface {
	Predict(features []float64) float64
}

// PredictorFunc adapts a plain function to PredictorPort.
type PredictorFunc func(features []float64) float64

// Predict calls the wrapped function.
func (f PredictorFunc) Predict(features []float64) float64 {
	return f(features)
}
