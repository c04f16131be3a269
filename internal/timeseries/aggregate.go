package timeseries

// Sample is one event's contribution to a metric: an integer value (tokens,
// requests, cost nanos) and an optional key for distinct counting.
// Integer accumulation keeps bucket sums exact however many samples land in
// a bucket.
type Sample struct {
	Value int64
	Key   string
}

// State is one bucket's partial aggregate. Merge must be associative and
// commutative: partial states built over disjoint event partitions merge to
// the same result in any order. That contract is what makes the parallel
// reduction in the usage aggregator safe.
type State interface {
	Add(s Sample)
	Merge(other State)
	Value() float64
}

// Aggregator builds fresh bucket states for a metric.
type Aggregator interface {
	NewState() State
}

// Sum accumulates sample values.
type Sum struct{}

func (Sum) NewState() State { return &sumState{} }

type sumState struct{ total int64 }

func (s *sumState) Add(sample Sample) { s.total += sample.Value }
func (s *sumState) Merge(other State) { s.total += other.(*sumState).total }
func (s *sumState) Value() float64    { return float64(s.total) }

// Count counts samples, ignoring their values.
type Count struct{}

func (Count) NewState() State { return &countState{} }

type countState struct{ n int64 }

func (s *countState) Add(Sample)        { s.n++ }
func (s *countState) Merge(other State) { s.n += other.(*countState).n }
func (s *countState) Value() float64    { return float64(s.n) }

// Mean is kept as a sum/count pair and divided only at the final read.
// Merging running averages would weight partitions incorrectly.
type Mean struct{}

func (Mean) NewState() State { return &meanState{} }

type meanState struct {
	sum int64
	n   int64
}

func (s *meanState) Add(sample Sample) {
	s.sum += sample.Value
	s.n++
}

func (s *meanState) Merge(other State) {
	o := other.(*meanState)
	s.sum += o.sum
	s.n += o.n
}

func (s *meanState) Value() float64 {
	if s.n == 0 {
		return 0
	}
	return float64(s.sum) / float64(s.n)
}

// Distinct counts unique sample keys via a mergeable set. A sketch can take
// its place behind the same Merge contract if cardinalities outgrow memory.
type Distinct struct{}

func (Distinct) NewState() State { return &distinctState{seen: make(map[string]struct{})} }

type distinctState struct{ seen map[string]struct{} }

func (s *distinctState) Add(sample Sample) {
	if sample.Key != "" {
		s.seen[sample.Key] = struct{}{}
	}
}

func (s *distinctState) Merge(other State) {
	for k := range other.(*distinctState).seen {
		s.seen[k] = struct{}{}
	}
}

func (s *distinctState) Value() float64 { return float64(len(s.seen)) }
