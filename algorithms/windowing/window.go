package windowing

// Window is implemented by every analysis window in this package
type Window interface {
	ApplyInPlace(signal []float64) error
	Coefficients() []float64
	Size() int
	Type() string
}

var _ Window = (*Hann)(nil)
