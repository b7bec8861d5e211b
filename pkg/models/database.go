package models

// Couple is one occurrence of a hash: the track it came from and where its
// anchor peak sits, in milliseconds from the start of that track.
type Couple struct {
	TrackID      string
	AnchorTimeMs uint32
}

// Match is a track whose hashes lined up with the query at OffsetMs
// (track anchor minus query anchor). Count is the number of aligned hashes.
type Match struct {
	TrackID  string
	OffsetMs int32
	Count    int
}
