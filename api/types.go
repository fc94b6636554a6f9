package api

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fundraiser is the unwrapped body of GET /fundraiser.
type Fundraiser struct {
	AmountRaised  float64 `json:"amountRaised"`
	CauseCurrency string  `json:"causeCurrency"`
}

// AmountText renders the amount with the shortest decimal representation
// that round-trips ("4200", "12.5").
func (f Fundraiser) AmountText() string {
	return strconv.FormatFloat(f.AmountRaised, 'f', -1, 64)
}

// fundraiserEnvelope is the wire shape: the record sits under "data".
type fundraiserEnvelope struct {
	Data Fundraiser `json:"data"`
}

// LiveStreamDetails describes a streamer who is currently live.
type LiveStreamDetails struct {
	Href      string `json:"href"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	Viewers   string `json:"viewers"`
}

// StreamMap maps streamer name to details, nil when offline. Iteration
// follows the order of the JSON document.
type StreamMap = orderedmap.OrderedMap[string, *LiveStreamDetails]

// NewStreamMap returns an empty StreamMap.
func NewStreamMap() *StreamMap {
	return orderedmap.New[string, *LiveStreamDetails]()
}

// LiveStreamList is one platform's stream status.
type LiveStreamList struct {
	Updated string     `json:"updated"`
	Streams *StreamMap `json:"streams"`
}

// Streams is the body of GET /streams. Unlike /fundraiser it has no
// envelope.
type Streams struct {
	YouTube LiveStreamList `json:"youtube"`
	Twitch  LiveStreamList `json:"twitch"`
}

// Snapshot is the result of FetchAll.
type Snapshot struct {
	Fundraiser Fundraiser
	Streams    Streams
}
