package structure

import "strings"

// span is a segment before labelling, in seconds
type span struct {
	start, end float64
}

// label assigns semantic labels in priority order: intro, outro, chorus
// (the most frequent cluster), instrumental (short), bridge (a cluster seen
// once, in the middle of the track), and verse for everything else
func (s *Segmenter) label(spans []span, clusters []int, duration float64) []Segment {
	counts := map[int]int{}
	for _, c := range clusters {
		counts[c]++
	}
	chorus, best := 0, -1
	for c, n := range counts {
		if n > best || (n == best && c < chorus) {
			chorus, best = c, n
		}
	}

	cfg := s.config
	segments := make([]Segment, 0, len(spans))
	for i, sp := range spans {
		length := sp.end - sp.start
		position := 0.0
		if duration > 0 {
			position = sp.start / duration
		}

		var label Label
		var confidence float64
		switch c := clusters[i]; {
		case i == 0 && sp.start < cfg.IntroMaxStart:
			label, confidence = LabelIntro, 0.8
		case i == len(spans)-1 && sp.end > duration-cfg.OutroWindow:
			label, confidence = LabelOutro, 0.8
		case c == chorus:
			label, confidence = LabelChorus, 0.7
		case length < cfg.InstrumentalMax:
			label, confidence = LabelInstrumental, 0.5
		case counts[c] == 1 && position > cfg.BridgeMinPosition && position < cfg.BridgeMaxPosition:
			label, confidence = LabelBridge, 0.6
		default:
			label, confidence = LabelVerse, 0.6
		}
		segments = append(segments, Segment{Label: label, Start: sp.start, End: sp.end, Confidence: confidence})
	}
	return segments
}

// MergeShort folds every segment shorter than minDuration into its
// successor. The merged segment keeps the label with the higher confidence
// (the successor's on ties) at 0.95 of that confidence. A short final
// segment is kept as is so the segments still cover the whole track.
func MergeShort(segments []Segment, minDuration, decay float64) []Segment {
	if len(segments) <= 1 {
		return segments
	}
	merged := []Segment{}
	current := segments[0]
	for _, next := range segments[1:] {
		if current.Duration() >= minDuration {
			merged = append(merged, current)
			current = next
			continue
		}
		label, confidence := current.Label, current.Confidence
		if next.Confidence >= current.Confidence {
			label, confidence = next.Label, next.Confidence
		}
		current = Segment{
			Label:      label,
			Start:      current.Start,
			End:        next.End,
			Confidence: confidence * decay,
		}
	}
	return append(merged, current)
}

// Form writes the song form: I and O for intro and outro, and letters from A
// for the other labels in order of first appearance
func Form(segments []Segment) string {
	letters := map[Label]byte{}
	next := byte('A')
	var b strings.Builder
	for _, s := range segments {
		switch s.Label {
		case LabelIntro:
			b.WriteByte('I')
		case LabelOutro:
			b.WriteByte('O')
		default:
			l, ok := letters[s.Label]
			if !ok {
				l = next
				letters[s.Label] = l
				next++
			}
			b.WriteByte(l)
		}
	}
	return b.String()
}

// Transitions lists the boundaries between consecutive segments. Repeats of
// a label are weak, verse and chorus swaps strong, and anything touching a
// bridge strongest.
func Transitions(segments []Segment) []Transition {
	out := make([]Transition, 0, max(0, len(segments)-1))
	for i := 0; i+1 < len(segments); i++ {
		from, to := segments[i].Label, segments[i+1].Label
		strength := 0.6
		switch {
		case from == to:
			strength = 0.3
		case from == LabelVerse && to == LabelChorus, from == LabelChorus && to == LabelVerse:
			strength = 0.8
		case from == LabelBridge || to == LabelBridge:
			strength = 0.9
		}
		out = append(out, Transition{Time: segments[i].End, From: from, To: to, Strength: strength})
	}
	return out
}
