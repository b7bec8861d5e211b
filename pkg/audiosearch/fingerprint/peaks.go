package fingerprint

import (
	"math"
	"sort"
)

type Peak struct {
	TimeIdx int
	FreqIdx int
	Time    float64 // seconds
	Freq    float64 // Hz
	MagDB   float64
}

const (
	freqNeighbour = 3
	timeNeighbour = 1
	minDbAboveAvg = 3.0
	eps           = 1e-10
)

// band is a half-open bin range [lo, hi).
type band struct{ lo, hi int }

// logBands splits nBins into [0,10) followed by octave bands.
func logBands(nBins int) []band {
	bands := []band{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, band{start, end})
		if end == nBins {
			break
		}
	}
	return bands
}

func toDB(mag float64) float64 {
	return 20.0 * math.Log10(mag+eps)
}

// ExtractPeaks picks, per frame, the strongest bin of each band, keeps those
// louder than the frame's band average by minDbAboveAvg and that are a
// local maximum in a small time/frequency neighbourhood. The result is
// sorted by time, then frequency.
func ExtractPeaks(spectrogram [][]float64, sampleRate int) []Peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 || sampleRate <= 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	freqRes := float64(sampleRate) / float64(WindowSize)
	frameTime := float64(HopSize) / float64(sampleRate)
	bands := logBands(nBins)

	peaks := make([]Peak, 0, nFrames*2)
	bestMag := make([]float64, len(bands))
	bestBin := make([]int, len(bands))

	for t, frame := range spectrogram {
		var sumDb float64
		for bi, b := range bands {
			bestMag[bi], bestBin[bi] = 0, b.lo
			for i := b.lo; i < b.hi; i++ {
				if frame[i] > bestMag[bi] {
					bestMag[bi], bestBin[bi] = frame[i], i
				}
			}
			sumDb += toDB(bestMag[bi])
		}
		avgDb := sumDb / float64(len(bands))

		for bi, mag := range bestMag {
			if mag <= 0 {
				continue
			}
			magDb := toDB(mag)
			if magDb < avgDb+minDbAboveAvg {
				continue
			}
			bin := bestBin[bi]
			if !isLocalMax(spectrogram, t, bin, mag) {
				continue
			}
			peaks = append(peaks, Peak{
				TimeIdx: t,
				FreqIdx: bin,
				Time:    float64(t) * frameTime,
				Freq:    float64(bin) * freqRes,
				MagDB:   magDb,
			})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].TimeIdx == peaks[j].TimeIdx {
			return peaks[i].FreqIdx < peaks[j].FreqIdx
		}
		return peaks[i].TimeIdx < peaks[j].TimeIdx
	})
	return peaks
}

func isLocalMax(spec [][]float64, t, bin int, mag float64) bool {
	nFrames, nBins := len(spec), len(spec[0])
	for dt := -timeNeighbour; dt <= timeNeighbour; dt++ {
		ti := t + dt
		if ti < 0 || ti >= nFrames {
			continue
		}
		for df := -freqNeighbour; df <= freqNeighbour; df++ {
			fi := bin + df
			if fi < 0 || fi >= nBins || (dt == 0 && df == 0) {
				continue
			}
			if spec[ti][fi] > mag {
				return false
			}
		}
	}
	return true
}
