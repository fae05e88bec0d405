package intercept_test

import (
	"testing"

	"shelftags/internal/intercept"
)

type sumFunc func(a, b int) int

func newSumHook() *intercept.Hook[sumFunc] {
	return intercept.NewHook[sumFunc]("sum", func(a, b int) int { return a + b })
}

func TestSpliceIsCalled(t *testing.T) {
	hook := newSumHook()
	called := false
	hook.Splice(func(original sumFunc) sumFunc {
		return func(a, b int) int {
			called = true
			return original(a, b)
		}
	})
	if got := hook.Func()(1, 2); got != 3 {
		t.Fatalf("expected delegated result 3, got %d", got)
	}
	if !called {
		t.Fatal("expected replacement to run")
	}
}

func TestSpliceReturnValueIsUsed(t *testing.T) {
	hook := newSumHook()
	hook.Splice(func(sumFunc) sumFunc {
		return func(a, b int) int { return a * b }
	})
	if got := hook.Func()(2, 4); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestSpliceHasOriginal(t *testing.T) {
	hook := newSumHook()
	hook.Splice(func(original sumFunc) sumFunc {
		return func(a, b int) int { return original(a, b) + 10 }
	})
	if got := hook.Func()(2, 4); got != 16 {
		t.Fatalf("expected 16, got %d", got)
	}
	if got := hook.Original()(2, 4); got != 6 {
		t.Fatalf("expected original to still add, got %d", got)
	}
}

func TestSpliceIsIdempotent(t *testing.T) {
	hook := newSumHook()
	build := func(original sumFunc) sumFunc {
		return func(a, b int) int { return original(a, b) + 10 }
	}
	if !hook.Splice(build) {
		t.Fatal("expected first splice to install")
	}
	if hook.Splice(build) {
		t.Fatal("expected second splice to be a no-op")
	}
	if got := hook.Func()(2, 4); got != 16 {
		t.Fatalf("expected a single wrapper (16), got %d", got)
	}
}

func TestRestore(t *testing.T) {
	hook := newSumHook()
	hook.Splice(func(sumFunc) sumFunc {
		return func(a, b int) int { return 0 }
	})
	hook.Restore()
	if hook.Spliced() {
		t.Fatal("expected hook to be restored")
	}
	if got := hook.Func()(2, 4); got != 6 {
		t.Fatalf("expected original behaviour, got %d", got)
	}
}

func TestGatewaySpliceOncePerOwner(t *testing.T) {
	g := intercept.NewGateway()
	hook := newSumHook()
	owner := &struct{ name string }{"pool"}
	build := func(original sumFunc) sumFunc {
		return func(a, b int) int { return original(a, b) + 1 }
	}
	if !intercept.Splice(g, owner, hook, build) {
		t.Fatal("expected first gateway splice to install")
	}
	if intercept.Splice(g, owner, hook, build) {
		t.Fatal("expected repeated gateway splice to be a no-op")
	}
	if !g.Installed(owner, "sum") {
		t.Fatal("expected gateway to record the splice")
	}
	if got := hook.Func()(1, 1); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	g.RestoreAll()
	if got := hook.Func()(1, 1); got != 2 {
		t.Fatalf("expected restore to original, got %d", got)
	}
	if g.Installed(owner, "sum") {
		t.Fatal("expected gateway to forget restored splices")
	}
}

func TestGatewayLeavesForeignSpliceAlone(t *testing.T) {
	first := intercept.NewGateway()
	second := intercept.NewGateway()
	hook := newSumHook()
	owner := &struct{ name string }{"pool"}
	build := func(original sumFunc) sumFunc {
		return func(a, b int) int { return original(a, b) + 1 }
	}

	if !intercept.Splice(first, owner, hook, build) {
		t.Fatal("expected first gateway to install")
	}
	if intercept.Splice(second, owner, hook, build) {
		t.Fatal("expected second gateway to find the hook taken")
	}
	if second.Installed(owner, "sum") {
		t.Fatal("expected second gateway not to claim the splice")
	}

	second.RestoreAll()
	if got := hook.Func()(1, 1); got != 3 {
		t.Fatalf("expected first gateway's splice to survive, got %d", got)
	}
	if !first.Installed(owner, "sum") {
		t.Fatal("expected first gateway to keep its splice")
	}

	first.RestoreAll()
	if got := hook.Func()(1, 1); got != 2 {
		t.Fatalf("expected original after owner restores, got %d", got)
	}
}
