package preprocess

import "math"

// downmixMono averages interleaved multi-channel samples into a single mono
// channel. Mono input is returned unchanged.
func downmixMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// resampleLinear resamples mono samples from srcRate to dstRate using linear
// interpolation over the time axis. A band-limited resampler would alias
// less, but linear interpolation is inaudible to the speech models this
// feeds and needs no window lookahead. If srcRate == dstRate the input is
// returned unchanged.
func resampleLinear(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float64, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// gateWindowMs is the analysis window for the noise gate. 20 ms at 16 kHz is
// 320 samples, short enough to track non-stationary noise between words.
const gateWindowMs = 20

// reduceNoise applies a non-stationary energy gate to mono samples. The noise
// floor is estimated per window from a slow-tracking minimum of the RMS
// envelope; windows whose energy sits near the floor are attenuated by
// propDecrease (0.8 removes 80 % of the amplitude in noise-only windows).
// Gains are interpolated between window centres to avoid audible steps.
//
// This is an amplitude-domain stand-in for spectral gating: it suppresses
// hiss and room tone between words without touching speech-level windows.
func reduceNoise(samples []float64, sampleRate int, propDecrease float64) []float64 {
	window := sampleRate * gateWindowMs / 1000
	if window <= 0 || len(samples) < window*2 {
		return samples
	}
	if propDecrease < 0 {
		propDecrease = 0
	} else if propDecrease > 1 {
		propDecrease = 1
	}

	nWindows := len(samples) / window
	rms := make([]float64, nWindows)
	for w := range nWindows {
		var sum float64
		for i := w * window; i < (w+1)*window; i++ {
			sum += samples[i] * samples[i]
		}
		rms[w] = math.Sqrt(sum / float64(window))
	}

	// Slow-tracking minimum: rises gently so the floor follows changing
	// background noise, snaps down immediately on quieter windows.
	const floorRise = 1.05
	noiseFloor := rms[0]
	gains := make([]float64, nWindows)
	for w := range nWindows {
		if rms[w] < noiseFloor {
			noiseFloor = rms[w]
		} else {
			noiseFloor *= floorRise
		}

		// Windows within 2x of the tracked floor are treated as noise.
		if rms[w] <= noiseFloor*2 {
			gains[w] = 1 - propDecrease
		} else {
			gains[w] = 1
		}
	}

	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = samples[i] * gainAt(gains, i, window)
	}
	return out
}

// gainAt linearly interpolates per-window gains at sample index i so gain
// transitions ramp across a window instead of switching at its edge.
func gainAt(gains []float64, i, window int) float64 {
	centre := float64(i)/float64(window) - 0.5
	w0 := int(math.Floor(centre))
	frac := centre - float64(w0)

	g0 := gainClamped(gains, w0)
	g1 := gainClamped(gains, w0+1)
	return g0*(1-frac) + g1*frac
}

func gainClamped(gains []float64, w int) float64 {
	if w < 0 {
		w = 0
	} else if w >= len(gains) {
		w = len(gains) - 1
	}
	return gains[w]
}
