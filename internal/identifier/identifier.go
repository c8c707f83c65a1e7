package identifier

import (
	"math"
	"strconv"
	"strings"

	"nwbconv/internal/convert"
)

const (
	// DefaultChannelWidth pads local channel indices to three digits (max 999).
	DefaultChannelWidth = 3
	// DefaultUnitWidth pads cluster ids to four digits (max 9999).
	DefaultUnitWidth = 4
	// MaxWidth bounds the padding so the result stays well within int64.
	MaxWidth = 6
	// MaxProbeNumber is the largest probe number that still encodes as one digit.
	MaxProbeNumber = 9
)

// Synthesizer builds channel and unit identifiers with fixed padding widths.
type Synthesizer struct {
	ChannelWidth int
	UnitWidth    int
}

// New returns a Synthesizer, substituting defaults for non-positive widths.
func New(channelWidth, unitWidth int) (Synthesizer, error) {
	if channelWidth <= 0 {
		channelWidth = DefaultChannelWidth
	}
	if unitWidth <= 0 {
		unitWidth = DefaultUnitWidth
	}
	if channelWidth > MaxWidth || unitWidth > MaxWidth {
		return Synthesizer{}, convert.Errorf(convert.ErrConfiguration, "identifier widths",
			"padding width must be at most %d (channel=%d unit=%d)", MaxWidth, channelWidth, unitWidth)
	}
	return Synthesizer{ChannelWidth: channelWidth, UnitWidth: unitWidth}, nil
}

// ChannelID returns the identifier for a channel at a 1-based local index.
func (s Synthesizer) ChannelID(sessionID, probeNumber, localIndex int) (int64, error) {
	return compose("channel", sessionID, probeNumber, localIndex, s.channelWidth())
}

// UnitID returns the identifier for a sorted cluster on a probe.
func (s Synthesizer) UnitID(sessionID, probeNumber, clusterID int) (int64, error) {
	return compose("unit", sessionID, probeNumber, clusterID, s.unitWidth())
}

// Capacity returns the largest local value a width can encode.
func Capacity(width int) int {
	return int(math.Pow10(width)) - 1
}

func (s Synthesizer) channelWidth() int {
	if s.ChannelWidth <= 0 {
		return DefaultChannelWidth
	}
	return s.ChannelWidth
}

func (s Synthesizer) unitWidth() int {
	if s.UnitWidth <= 0 {
		return DefaultUnitWidth
	}
	return s.UnitWidth
}

func compose(kind string, sessionID, probeNumber, local, width int) (int64, error) {
	op := kind + " id"
	if sessionID < 0 {
		return 0, convert.Errorf(convert.ErrIdentifierCollision, op, "session id %d is negative", sessionID)
	}
	if probeNumber < 1 || probeNumber > MaxProbeNumber {
		return 0, convert.Errorf(convert.ErrIdentifierCollision, op,
			"probe number %d outside 1..%d (session %d)", probeNumber, MaxProbeNumber, sessionID)
	}
	if limit := Capacity(width); local < 0 || local > limit {
		return 0, convert.Errorf(convert.ErrIdentifierCollision, op,
			"local value %d exceeds %d-digit capacity 0..%d (session %d probe %d)", local, width, limit, sessionID, probeNumber)
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(sessionID))
	b.WriteString(strconv.Itoa(probeNumber))
	digits := strconv.Itoa(local)
	b.WriteString(strings.Repeat("0", width-len(digits)))
	b.WriteString(digits)

	id, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, convert.Errorf(convert.ErrIdentifierCollision, op,
			"identifier %s does not fit in 64 bits (session %d probe %d)", b.String(), sessionID, probeNumber)
	}
	return id, nil
}
