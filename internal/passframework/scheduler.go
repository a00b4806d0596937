package passframework

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/specverify/verifier/internal/diagnostics"
)

// Result records what happened when one pass ran.
type Result struct {
	PassID    string
	Err       error
	Panicked  bool
	Recovered interface{}
}

// Report is the outcome of one scheduler Run: the order passes actually
// executed in, and a per-pass Result.
type Report struct {
	Order   []string
	Results map[string]*Result
}

// Scheduler holds a registered set of passes and orders them.
type Scheduler struct {
	passes map[string]Pass
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{passes: make(map[string]Pass)}
}

// Register adds a pass. Registering two passes with the same ID panics —
// that is a programming error in the orchestrator wiring, not a
// domain-input error.
func (s *Scheduler) Register(p Pass) {
	if _, exists := s.passes[p.ID()]; exists {
		panic(fmt.Sprintf("passframework: pass %q registered twice", p.ID()))
	}
	s.passes[p.ID()] = p
}

type pqItem struct {
	priority int
	id       string
}

type priorityQueue []pqItem

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].id < q[j].id
}
func (q priorityQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// schedule performs a Kahn topological sort over only the enabled
// passes, breaking ties deterministically by (priority, id) among
// currently-ready passes. It returns an error naming the cycle if one
// exists, rather than panicking or silently dropping passes.
func (s *Scheduler) schedule(enabled map[string]bool) ([]string, error) {
	indegree := make(map[string]int)
	dependents := make(map[string][]string)

	for id, p := range s.passes {
		if !enabled[id] {
			continue
		}
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range p.DependsOn() {
			if !enabled[dep] {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	pq := &priorityQueue{}
	heap.Init(pq)
	for id, deg := range indegree {
		if deg == 0 {
			heap.Push(pq, pqItem{priority: s.passes[id].Priority(), id: id})
		}
	}

	var order []string
	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		order = append(order, item.id)
		for _, dep := range dependents[item.id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				heap.Push(pq, pqItem{priority: s.passes[dep].Priority(), id: dep})
			}
		}
	}

	if len(order) != len(indegree) {
		remaining := make([]string, 0, len(indegree)-len(order))
		done := make(map[string]bool, len(order))
		for _, id := range order {
			done[id] = true
		}
		for id := range indegree {
			if !done[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("passframework: dependency cycle among passes %v", remaining)
	}

	return order, nil
}

// Run schedules and executes every enabled pass over ctx. A pass that
// panics is recovered and turned into an internal-inconsistency
// diagnostic rather than crashing the run. By default (failFast=false)
// every remaining pass still runs even after an earlier one reports
// errors or itself fails, so a single bad stage never hides diagnostics
// a later stage would have found; failFast=true stops scheduling new
// passes after the first failing one (but lets already-started
// dependents finish, since "started" never applies — passes are
// synchronous).
func (s *Scheduler) Run(ctx *PassContext, failFast bool) *Report {
	enabled := make(map[string]bool, len(s.passes))
	for id, p := range s.passes {
		enabled[id] = p.EnabledByDefault()
	}

	order, err := s.schedule(enabled)
	report := &Report{Results: make(map[string]*Result)}
	if err != nil {
		ctx.Report(diagnostics.New(
			diagnostics.CodeInternalInconsistency,
			"pass-scheduling",
			diagnostics.SeverityError,
			diagnostics.Location{},
			err.Error(),
		))
		return report
	}

	failed := false
	for _, id := range order {
		if failFast && failed {
			break
		}
		report.Order = append(report.Order, id)
		report.Results[id] = s.runOne(ctx, s.passes[id])
		if report.Results[id].Err != nil || report.Results[id].Panicked {
			failed = true
		}
	}
	return report
}

func (s *Scheduler) runOne(ctx *PassContext, p Pass) (res *Result) {
	res = &Result{PassID: p.ID()}
	defer func() {
		if r := recover(); r != nil {
			res.Panicked = true
			res.Recovered = r
			ctx.Report(diagnostics.New(
				diagnostics.CodeInternalInconsistency,
				"pass-execution",
				diagnostics.SeverityError,
				diagnostics.Location{},
				fmt.Sprintf("pass %q panicked: %v", p.ID(), r),
			))
		}
	}()
	res.Err = p.Run(ctx)
	if res.Err != nil {
		ctx.Report(diagnostics.New(
			diagnostics.CodeInternalInconsistency,
			"pass-execution",
			diagnostics.SeverityError,
			diagnostics.Location{},
			fmt.Sprintf("pass %q returned an error: %v", p.ID(), res.Err),
		))
	}
	return res
}
