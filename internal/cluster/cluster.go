package cluster

import (
	"jimakugen/internal/subtitle"
	"jimakugen/pkg/log"
)

// Cluster is a non-empty, time-ordered run of dialogue cues processed as
// a single transcription unit.
type Cluster struct {
	Cues []subtitle.Cue
}

// StartMS returns the start of the first cue.
func (c Cluster) StartMS() int64 {
	return c.Cues[0].StartMS
}

// EndMS returns the end of the last cue.
func (c Cluster) EndMS() int64 {
	return c.Cues[len(c.Cues)-1].EndMS
}

func (c Cluster) Len() int {
	return len(c.Cues)
}

// Options tunes the grouping heuristic.
type Options struct {
	// TargetDurationS is the soft span bound; a cluster may exceed it while
	// dialogue stays dense.
	TargetDurationS int
	// MaxGapS is the silence between consecutive cues required before a
	// split is allowed.
	MaxGapS float64
}

// Group partitions time-ordered cues into clusters with a single greedy
// forward pass. A new cluster starts only when the running span exceeds
// the target duration AND the gap to the previous cue exceeds the gap
// threshold; both must hold, so continuous dialogue is never fragmented
// by span alone. Every cue lands in exactly one cluster, in input order.
func Group(cues []subtitle.Cue, opts Options) []Cluster {
	if len(cues) == 0 {
		return nil
	}

	targetMS := int64(opts.TargetDurationS) * 1000
	maxGapMS := int64(opts.MaxGapS * 1000)

	clusters := make([]Cluster, 0)
	current := Cluster{Cues: []subtitle.Cue{cues[0]}}

	for i := 1; i < len(cues); i++ {
		prev := cues[i-1]
		curr := cues[i]

		gap := curr.StartMS - prev.EndMS
		span := curr.EndMS - current.StartMS()

		if span > targetMS && gap > maxGapMS {
			clusters = append(clusters, current)
			current = Cluster{Cues: []subtitle.Cue{curr}}
		} else {
			current.Cues = append(current.Cues, curr)
		}
	}
	clusters = append(clusters, current)

	log.Debug("Grouped %d cues into %d chunks", len(cues), len(clusters))
	return clusters
}
