//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"strconv"
	"syscall/js"

	"github.com/himanishpuri/audiosearch/internal/browser"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorSpectrogramFailed
	ErrorPeakExtraction
	ErrorHashGeneration
)

// generateFingerprint turns audio samples into the hash map accepted by
// POST /api/audio/match/hashes.
// Returns: {error: number, data: {hash: anchorMs} | string}
func generateFingerprint(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS := args[0]
	sampleRateJS := args[1]
	channelsJS := args[2]

	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}
	if channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "channels must be a number")
	}

	sampleRate := sampleRateJS.Int()
	channels := channelsJS.Int()

	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}

	if channels == 2 {
		samples = stereoToMono(samples)
	}

	spec, err := fingerprint.ComputeSpectrogramFromSamples(samples, sampleRate, 0, 0)
	if err != nil {
		return makeErrorResponse(ErrorSpectrogramFailed, fmt.Sprintf("Failed to generate spectrogram: %v", err))
	}

	peaks := fingerprint.ExtractPeaks(spec, sampleRate)
	if len(peaks) == 0 {
		return makeErrorResponse(ErrorPeakExtraction, "No peaks found in audio (audio may be silent or too short)")
	}

	query := fingerprint.QueryHashes(peaks)
	if len(query) == 0 {
		return makeErrorResponse(ErrorHashGeneration, "No fingerprint hashes generated")
	}

	hashes := js.Global().Get("Object").New()
	for hash, anchor := range query {
		hashes.Set(strconv.FormatUint(uint64(hash), 10), anchor)
	}
	return makeResponse(hashes)
}

// filterDataset(files: string[], term: string) -> string[]
func filterDataset(this js.Value, args []js.Value) any {
	if len(args) < 2 || args[1].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: files, term")
	}
	files, err := stringSlice(args[0])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	filtered := browser.Filter(browser.ItemsFromFilenames(files), args[1].String())
	return makeResponse(itemsToJS(filtered))
}

// mergeMatches(files: string[], matches: {filename, similarity}[]) ->
// {filename, similarity?}[]
func mergeMatches(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: files, matches")
	}
	files, err := stringSlice(args[0])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if args[1].Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "matches must be an Array")
	}

	matches := make([]models.AudioMatch, args[1].Length())
	for i := range matches {
		m := args[1].Index(i)
		if m.Type() != js.TypeObject || m.Get("filename").Type() != js.TypeString {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("match %d has no filename", i))
		}
		matches[i].Filename = m.Get("filename").String()
		if sim := m.Get("similarity"); sim.Type() == js.TypeNumber {
			matches[i].Similarity = sim.Float()
		}
	}

	merged := browser.MergeMatches(browser.ItemsFromFilenames(files), matches)
	return makeResponse(itemsToJS(merged))
}

// paginate(total: number, page: number) ->
// {page, totalPages, start, end, hasNext, hasPrev}
func paginate(this js.Value, args []js.Value) any {
	if len(args) < 2 || args[0].Type() != js.TypeNumber || args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 numbers: total, page")
	}

	p := browser.NewPager(args[0].Int())
	p.Goto(args[1].Int())
	start, end := p.Bounds()

	out := js.Global().Get("Object").New()
	out.Set("page", p.Page)
	out.Set("totalPages", p.TotalPages())
	out.Set("pageSize", browser.PageSize)
	out.Set("start", start)
	out.Set("end", end)
	out.Set("hasNext", p.HasNext())
	out.Set("hasPrev", p.HasPrev())
	return makeResponse(out)
}

func stringSlice(v js.Value) ([]string, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("files must be an Array")
	}
	out := make([]string, v.Length())
	for i := range out {
		el := v.Index(i)
		if el.Type() != js.TypeString {
			return nil, fmt.Errorf("files element %d is not a string", i)
		}
		out[i] = el.String()
	}
	return out, nil
}

func itemsToJS(items []browser.MusicItem) js.Value {
	arr := js.Global().Get("Array").New(len(items))
	for i, it := range items {
		obj := js.Global().Get("Object").New()
		obj.Set("filename", it.Filename)
		obj.Set("playUrl", browser.PlayURL(it.Filename))
		if it.Similarity != nil {
			obj.Set("similarity", *it.Similarity)
		}
		arr.SetIndex(i, obj)
	}
	return arr
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}

func makeResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, format string, args ...any) {
		if !console.IsUndefined() {
			console.Call(method, fmt.Sprintf(format, args...))
		}
	}
	logf("log", "audiosearch WASM module initializing...")

	done := make(chan struct{})

	exports := map[string]func(js.Value, []js.Value) any{
		"generateFingerprint": generateFingerprint,
		"filterDataset":       filterDataset,
		"mergeMatches":        mergeMatches,
		"paginate":            paginate,
	}
	for name, fn := range exports {
		js.Global().Set(name, js.FuncOf(fn))
		logf("log", "%s function registered", name)
	}

	window := js.Global().Get("window")
	if window.IsUndefined() {
		logf("error", "window object is undefined, wasmReady not dispatched")
	} else {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	}

	logf("log", "audiosearch WASM module loaded and ready")
	<-done
}
