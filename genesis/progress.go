package genesis

import "sync"

// ProgressFunc receives the fraction of the job done, in [0, 1], and a
// status message
type ProgressFunc func(fraction float64, message string)

// Pipeline progress checkpoints
const (
	ProgressLoaded  = 0.05
	ProgressBeats   = 0.2
	ProgressStems   = 0.35
	ProgressEffects = 0.9
	ProgressDone    = 1.0

	// harmony, structure and emotion finish in any order and each advance
	// the job by analysisStep past ProgressStems
	analysisStep = 0.15
)

// progressReporter serializes calls to a ProgressFunc and never lets the
// reported fraction go backwards
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last float64
	done int // finished concurrent stages
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (p *progressReporter) report(fraction float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(fraction, message)
}

// stageDone reports one of the concurrent analysis stages finishing
func (p *progressReporter) stageDone(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.emit(ProgressStems+float64(p.done)*analysisStep, message)
}

func (p *progressReporter) emit(fraction float64, message string) {
	fraction = max(p.last, min(1, fraction))
	p.last = fraction
	if p.fn != nil {
		p.fn(fraction, message)
	}
}
