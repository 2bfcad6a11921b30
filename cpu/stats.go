package cpu

import (
	"strings"

	"github.com/rv32sim/rv32sim/isa"
	"github.com/rv32sim/rv32sim/metrics"
)

// stats records machine activity into a metrics.Registry. A nil *stats is
// valid and records nothing.
type stats struct {
	retired          *metrics.Counter
	faults           *metrics.Counter
	halts            *metrics.Counter
	loads            *metrics.Counter
	stores           *metrics.Counter
	branchesTaken    *metrics.Counter
	branchesNotTaken *metrics.Counter
	formats          map[isa.Format]*metrics.Counter
	runTime          *metrics.Histogram

	// Set when the machine stops: pc is the halting or faulting
	// instruction, exitCode the ECALL/EBREAK code.
	exitCode *metrics.Gauge
	pc       *metrics.Gauge
}

func newStats(r *metrics.Registry) *stats {
	if r == nil {
		return nil
	}
	s := &stats{
		retired:          r.Counter("cpu.instructions_retired"),
		faults:           r.Counter("cpu.faults"),
		halts:            r.Counter("cpu.halts"),
		loads:            r.Counter("cpu.loads"),
		stores:           r.Counter("cpu.stores"),
		branchesTaken:    r.Counter("cpu.branches_taken"),
		branchesNotTaken: r.Counter("cpu.branches_not_taken"),
		formats:          make(map[isa.Format]*metrics.Counter),
		runTime:          r.Histogram("cpu.run_us"),
		exitCode:         r.Gauge("cpu.exit_code"),
		pc:               r.Gauge("cpu.pc"),
	}
	for f := isa.FormatR; f <= isa.FormatJ; f++ {
		s.formats[f] = r.Counter("cpu.format." + strings.ToLower(f.String()))
	}
	return s
}

func (s *stats) retire(f isa.Format) {
	if s == nil {
		return
	}
	s.retired.Inc()
	if c := s.formats[f]; c != nil {
		c.Inc()
	}
}

func (s *stats) branch(taken bool) {
	switch {
	case s == nil:
	case taken:
		s.branchesTaken.Inc()
	default:
		s.branchesNotTaken.Inc()
	}
}

func (s *stats) load() {
	if s != nil {
		s.loads.Inc()
	}
}

func (s *stats) store() {
	if s != nil {
		s.stores.Inc()
	}
}

func (s *stats) fault(pc uint32) {
	if s != nil {
		s.faults.Inc()
		s.pc.Set(int64(pc))
	}
}

func (s *stats) halt(code, pc uint32) {
	if s != nil {
		s.halts.Inc()
		s.exitCode.Set(int64(code))
		s.pc.Set(int64(pc))
	}
}

// timer starts timing a Run. The returned timer is nil-safe to Stop.
func (s *stats) timer() *metrics.Timer {
	if s == nil {
		return metrics.NewTimer(nil)
	}
	return metrics.NewTimer(s.runTime)
}
