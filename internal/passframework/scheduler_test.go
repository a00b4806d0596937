package passframework

import (
	"errors"
	"testing"

	"github.com/specverify/verifier/internal/ast"
)

type fakePass struct {
	id       string
	deps     []string
	priority int
	run      func(ctx *PassContext) error
}

func (f *fakePass) ID() string             { return f.id }
func (f *fakePass) Name() string           { return f.id }
func (f *fakePass) Description() string    { return "" }
func (f *fakePass) DependsOn() []string    { return f.deps }
func (f *fakePass) Priority() int          { return f.priority }
func (f *fakePass) EnabledByDefault() bool { return true }
func (f *fakePass) Run(ctx *PassContext) error {
	if f.run != nil {
		return f.run(ctx)
	}
	return nil
}

func newTestContext() *PassContext {
	return NewContext(&ast.Domain{Name: "test", Version: "1.0.0"})
}

func TestScheduleOrdersByDependencyThenPriorityThenID(t *testing.T) {
	var ran []string
	record := func(id string) func(ctx *PassContext) error {
		return func(ctx *PassContext) error {
			ran = append(ran, id)
			return nil
		}
	}
	s := New()
	s.Register(&fakePass{id: "resolve", priority: 0, run: record("resolve")})
	s.Register(&fakePass{id: "purity", deps: []string{"resolve"}, priority: 5, run: record("purity")})
	s.Register(&fakePass{id: "exhaustiveness", deps: []string{"resolve"}, priority: 1, run: record("exhaustiveness")})
	s.Register(&fakePass{id: "consistency", deps: []string{"purity", "exhaustiveness"}, priority: 0, run: record("consistency")})

	ctx := newTestContext()
	report := s.Run(ctx, false)

	want := []string{"resolve", "exhaustiveness", "purity", "consistency"}
	if len(report.Order) != len(want) {
		t.Fatalf("order = %v, want %v", report.Order, want)
	}
	for i, id := range want {
		if report.Order[i] != id {
			t.Fatalf("order[%d] = %q, want %q (full order %v)", i, report.Order[i], id, report.Order)
		}
	}
	if len(ran) != len(want) {
		t.Fatalf("ran %v, want all of %v", ran, want)
	}
}

func TestScheduleDetectsCycle(t *testing.T) {
	s := New()
	s.Register(&fakePass{id: "a", deps: []string{"b"}})
	s.Register(&fakePass{id: "b", deps: []string{"a"}})

	ctx := newTestContext()
	report := s.Run(ctx, false)

	if len(report.Order) != 0 {
		t.Fatalf("expected no passes to run on a cycle, got %v", report.Order)
	}
	if !ctx.Diagnostics.HasErrors() {
		t.Fatalf("expected a cycle diagnostic")
	}
}

func TestRunRecoversPanicAndContinuesByDefault(t *testing.T) {
	var secondRan bool
	s := New()
	s.Register(&fakePass{id: "boom", run: func(ctx *PassContext) error {
		panic("unexpected nil dereference")
	}})
	s.Register(&fakePass{id: "after", deps: []string{"boom"}, run: func(ctx *PassContext) error {
		secondRan = true
		return nil
	}})

	ctx := newTestContext()
	report := s.Run(ctx, false)

	if !report.Results["boom"].Panicked {
		t.Fatalf("expected boom pass to be recorded as panicked")
	}
	if !secondRan {
		t.Fatalf("expected the dependent pass to still run without fail-fast")
	}
	if !ctx.Diagnostics.HasErrors() {
		t.Fatalf("expected a diagnostic for the panic")
	}
}

func TestRunFailFastStopsSchedulingAfterFailure(t *testing.T) {
	var secondRan bool
	s := New()
	s.Register(&fakePass{id: "first", priority: 0, run: func(ctx *PassContext) error {
		return errors.New("boom")
	}})
	s.Register(&fakePass{id: "second", priority: 1, run: func(ctx *PassContext) error {
		secondRan = true
		return nil
	}})

	ctx := newTestContext()
	report := s.Run(ctx, true)

	if len(report.Order) != 1 {
		t.Fatalf("expected fail-fast to stop after the first pass, order = %v", report.Order)
	}
	if secondRan {
		t.Fatalf("expected fail-fast to prevent the second pass from running")
	}
}
