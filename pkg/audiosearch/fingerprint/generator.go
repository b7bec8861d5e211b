package fingerprint

import (
	"sort"

	"github.com/himanishpuri/audiosearch/pkg/models"
)

// pair is one anchor/target hash with the anchor time in ms.
type pair struct {
	hash     uint32
	anchorMs uint32
}

// pairs applies the fan-out policy: each anchor is paired with up to FanOut
// following peaks whose delta fits the hash layout.
func pairs(peaks []Peak) []pair {
	sorted := make([]Peak, len(peaks))
	copy(sorted, peaks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	out := make([]pair, 0, len(sorted)*FanOut)
	for i, anchor := range sorted {
		paired := 0
		for j := i + 1; j < len(sorted) && paired < FanOut; j++ {
			addr, ok := createAddress(anchor, sorted[j])
			if !ok {
				continue
			}
			out = append(out, pair{hash: addr, anchorMs: msOf(anchor.Time)})
			paired++
		}
	}
	return out
}

// Fingerprint produces hash -> couples for the peaks of one track.
func Fingerprint(peaks []Peak, trackID string) map[uint32][]models.Couple {
	fp := make(map[uint32][]models.Couple)
	for _, p := range pairs(peaks) {
		fp[p.hash] = append(fp[p.hash], models.Couple{TrackID: trackID, AnchorTimeMs: p.anchorMs})
	}
	return fp
}

// QueryHashes returns hash -> anchor time for a query clip, keeping the
// earliest anchor for duplicate hashes. This is the form clients send to
// the hash-matching endpoint.
func QueryHashes(peaks []Peak) map[uint32]uint32 {
	out := make(map[uint32]uint32)
	for _, p := range pairs(peaks) {
		if prev, ok := out[p.hash]; !ok || p.anchorMs < prev {
			out[p.hash] = p.anchorMs
		}
	}
	return out
}

// Hashes lists the distinct hashes of a query map in ascending order.
func Hashes(query map[uint32]uint32) []uint32 {
	hs := make([]uint32, 0, len(query))
	for h := range query {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// MergeFingerprints appends src's couples into dst.
func MergeFingerprints(dst, src map[uint32][]models.Couple) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

type voteBox map[string]map[int32]int

func (v voteBox) add(trackID string, offset int32) {
	m, ok := v[trackID]
	if !ok {
		m = make(map[int32]int)
		v[trackID] = m
	}
	m[offset]++
}

// ranked flattens votes into one Match per track at its best offset,
// sorted by descending count. Ties break on track id then smaller offset.
func (v voteBox) ranked() []models.Match {
	matches := make([]models.Match, 0, len(v))
	for trackID, offsets := range v {
		best := models.Match{TrackID: trackID}
		for off, cnt := range offsets {
			if cnt > best.Count || (cnt == best.Count && off < best.OffsetMs) {
				best.Count, best.OffsetMs = cnt, off
			}
		}
		if best.Count > 0 {
			matches = append(matches, best)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Count != matches[j].Count {
			return matches[i].Count > matches[j].Count
		}
		return matches[i].TrackID < matches[j].TrackID
	})
	return matches
}

// QueryFingerprints votes query pairs against db buckets on
// (track, dbAnchor - queryAnchor) and returns ranked matches.
func QueryFingerprints(queryPeaks []Peak, db map[uint32][]models.Couple) []models.Match {
	votes := make(voteBox)
	for _, p := range pairs(queryPeaks) {
		for _, cou := range db[p.hash] {
			votes.add(cou.TrackID, int32(cou.AnchorTimeMs)-int32(p.anchorMs))
		}
	}
	return votes.ranked()
}

// MatchHashes is QueryFingerprints for pre-computed query hashes.
func MatchHashes(query map[uint32]uint32, db map[uint32][]models.Couple) []models.Match {
	votes := make(voteBox)
	for h, anchorMs := range query {
		for _, cou := range db[h] {
			votes.add(cou.TrackID, int32(cou.AnchorTimeMs)-int32(anchorMs))
		}
	}
	return votes.ranked()
}
