package spectral

// FFTFrequencies returns the center frequency of each non-negative FFT bin:
// k*sampleRate/windowSize for k in [0, windowSize/2].
func FFTFrequencies(sampleRate, windowSize int) []float64 {
	if windowSize <= 0 {
		return []float64{}
	}

	bins := windowSize/2 + 1
	freqs := make([]float64, bins)
	for k := range bins {
		freqs[k] = float64(k) * float64(sampleRate) / float64(windowSize)
	}
	return freqs
}

// FramesToTime converts frame indices to seconds (frame*hop/sampleRate)
func FramesToTime(frames []int, sampleRate, hopSize int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f*hopSize) / float64(sampleRate)
	}
	return times
}

// FrameTimes returns the time of every frame in [0, numFrames)
func FrameTimes(numFrames, sampleRate, hopSize int) []float64 {
	times := make([]float64, max(numFrames, 0))
	for i := range times {
		times[i] = float64(i*hopSize) / float64(sampleRate)
	}
	return times
}
