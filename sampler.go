package wingtips

// Sampler decides whether a brand-new trace should be marked sampleable.
// The decision is made once, when a trace's root span starts; child spans
// and continued traces inherit the flag from their parent instead.
//
// Sampleable spans still complete and notify listeners; the flag tells
// exporters and the span logger whether the trace should be kept.
type Sampler interface {
	ShouldSample(spanName string) bool
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(spanName string) bool

// ShouldSample implements Sampler.
func (f SamplerFunc) ShouldSample(spanName string) bool { return f(spanName) }

// SampleAll marks every new trace sampleable. This is the default strategy.
func SampleAll() Sampler {
	return SamplerFunc(func(string) bool { return true })
}

// SampleNone marks no new trace sampleable.
func SampleNone() Sampler {
	return SamplerFunc(func(string) bool { return false })
}
