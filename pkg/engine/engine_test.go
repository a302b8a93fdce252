package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/chazu/meshbool/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/ungerik/go3d/float64/vec3"
)

// stubKernel returns a canned result and counts its calls.
type stubKernel struct {
	name   string
	result kernel.Result
	panics bool
	block  bool

	mu    sync.Mutex
	calls int
}

func (s *stubKernel) Name() string { return s.name }

func (s *stubKernel) Boolean(ctx context.Context, a, b kernel.Mesh, op kernel.Op) kernel.Result {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("boom")
	}
	if s.block {
		<-ctx.Done()
		return kernel.Failure("stopped")
	}
	return s.result
}

func (s *stubKernel) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func cube() kernel.Mesh { return kernel.BoxMesh(1, 1, 1) }

func TestChainFallback(t *testing.T) {
	tests := []struct {
		name    string
		primary *stubKernel
	}{
		{"primary failure", &stubKernel{name: "primary", result: kernel.Failure("non-manifold input")}},
		{"primary empty", &stubKernel{name: "primary", result: kernel.Empty("no volume")}},
		{"primary panic", &stubKernel{name: "primary", panics: true}},
		{"primary success with empty mesh", &stubKernel{name: "primary", result: kernel.Success(kernel.Mesh{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &stubKernel{name: "fallback", result: kernel.Success(cube())}
			c := NewChain([]kernel.Kernel{tt.primary, fallback})

			m, attempts, err := c.Evaluate(context.Background(), cube(), cube(), kernel.OpIntersection)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if m.TriangleCount() != 12 {
				t.Errorf("result has %d faces, want the fallback's 12", m.TriangleCount())
			}
			if got := fallback.Calls(); got != 1 {
				t.Errorf("fallback called %d times, want 1", got)
			}
			if len(attempts) != 2 {
				t.Fatalf("len(attempts) = %d, want 2", len(attempts))
			}
			if attempts[0].Status == kernel.StatusSuccess {
				t.Errorf("primary attempt status = success")
			}
			if attempts[1].Engine != "fallback" || attempts[1].Status != kernel.StatusSuccess {
				t.Errorf("second attempt = %+v", attempts[1])
			}
		})
	}
}

func TestChainPrimarySuccessSkipsFallback(t *testing.T) {
	primary := &stubKernel{name: "primary", result: kernel.Success(cube())}
	fallback := &stubKernel{name: "fallback", result: kernel.Success(cube())}
	c := NewChain([]kernel.Kernel{primary, fallback})

	_, attempts, err := c.Evaluate(context.Background(), cube(), cube(), kernel.OpDifference)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if fallback.Calls() != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.Calls())
	}
	if len(attempts) != 1 {
		t.Errorf("len(attempts) = %d, want 1", len(attempts))
	}
}

func TestChainExhausted(t *testing.T) {
	c := NewChain([]kernel.Kernel{
		&stubKernel{name: "a", result: kernel.Failure("crashed")},
		&stubKernel{name: "b", result: kernel.Empty("nothing")},
	})
	_, attempts, err := c.Evaluate(context.Background(), cube(), cube(), kernel.OpIntersection)
	if !errors.Is(err, ErrAllEnginesExhausted) {
		t.Fatalf("error = %v, want ErrAllEnginesExhausted", err)
	}
	if !errors.Is(err, ErrEngineFailure) || !errors.Is(err, ErrEngineEmpty) {
		t.Errorf("error = %v, want both per-attempt sentinels", err)
	}
	if AllEmpty(attempts) {
		t.Error("AllEmpty() = true for mixed attempts")
	}
	if !strings.Contains(err.Error(), "crashed") {
		t.Errorf("error %q does not carry the failure reason", err)
	}
}

func TestChainAllEmpty(t *testing.T) {
	c := NewChain([]kernel.Kernel{
		&stubKernel{name: "a", result: kernel.Empty("disjoint")},
		&stubKernel{name: "b", result: kernel.Empty("disjoint")},
	})
	_, attempts, err := c.Evaluate(context.Background(), cube(), cube(), kernel.OpIntersection)
	if !errors.Is(err, ErrEngineEmpty) {
		t.Fatalf("error = %v, want ErrEngineEmpty", err)
	}
	if errors.Is(err, ErrEngineFailure) {
		t.Errorf("error = %v, should not match ErrEngineFailure", err)
	}
	if !AllEmpty(attempts) {
		t.Error("AllEmpty() = false, want true")
	}
}

func TestChainNoEngines(t *testing.T) {
	_, _, err := NewChain(nil).Evaluate(context.Background(), cube(), cube(), kernel.OpUnion)
	if !errors.Is(err, ErrNoEngines) {
		t.Fatalf("error = %v, want ErrNoEngines", err)
	}
}

func TestChainTimeoutFallsBack(t *testing.T) {
	slow := &stubKernel{name: "slow", block: true}
	fallback := &stubKernel{name: "fallback", result: kernel.Success(cube())}
	c := NewChain([]kernel.Kernel{slow, fallback}, WithTimeout(50*time.Millisecond))

	done := make(chan struct{})
	var (
		attempts []Attempt
		err      error
	)
	go func() {
		defer close(done)
		_, attempts, err = c.Evaluate(context.Background(), cube(), cube(), kernel.OpIntersection)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Evaluate did not return after the engine timeout")
	}
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if attempts[0].Status != kernel.StatusFailure || !strings.Contains(attempts[0].Reason, "timed out") {
		t.Errorf("first attempt = %+v, want timeout failure", attempts[0])
	}
}

func TestChainCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k := &stubKernel{name: "a", result: kernel.Success(cube())}

	_, _, err := NewChain([]kernel.Kernel{k}).Evaluate(ctx, cube(), cube(), kernel.OpUnion)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if k.Calls() != 0 {
		t.Errorf("kernel called %d times after cancellation", k.Calls())
	}
}

func TestChainRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := NewChain([]kernel.Kernel{
		&stubKernel{name: "a", result: kernel.Failure("x")},
		&stubKernel{name: "b", result: kernel.Success(cube())},
	}, WithMetrics(m), WithLogger(zerolog.Nop()))

	if _, _, err := c.Evaluate(context.Background(), cube(), cube(), kernel.OpDifference); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := testutil.ToFloat64(m.EngineAttempts.WithLabelValues("a", "difference", "failure")); got != 1 {
		t.Errorf("failure attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EngineAttempts.WithLabelValues("b", "difference", "success")); got != 1 {
		t.Errorf("success attempts = %v, want 1", got)
	}
}

func TestWaitWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ch := make(chan kernel.Result) // Never sends

	res := waitWithTimeout(ctx, ch, 20*time.Millisecond)
	if res.Status != kernel.StatusFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	if !strings.Contains(res.Reason, "timed out") {
		t.Errorf("reason = %q, want timeout message", res.Reason)
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr error
	}{
		{"default order", nil, []string{"bsp", "sdfx"}, nil},
		{"explicit", []string{"sdfx", "bsp"}, []string{"sdfx", "bsp"}, nil},
		{"duplicates and case", []string{"BSP", " bsp ", "sdfx"}, []string{"bsp", "sdfx"}, nil},
		{"unknown", []string{"bsp", "cgal"}, nil, ErrUnknownEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernels, err := Build(tt.names, Options{}, zerolog.Nop())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			got := NewChain(kernels).Names()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChainWithRealKernels(t *testing.T) {
	kernels, err := Build([]string{"bsp", "sdfx"}, Options{SdfxCells: 32}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := NewChain(kernels)
	a := cube()
	b := cube().Translate(vec3.T{5, 5, 5})

	_, attempts, err := c.Evaluate(context.Background(), a, b, kernel.OpIntersection)
	if !errors.Is(err, ErrAllEnginesExhausted) || !AllEmpty(attempts) {
		t.Fatalf("disjoint intersection: err = %v, attempts = %+v", err, attempts)
	}

	m, _, err := c.Evaluate(context.Background(), a, cube().Translate(vec3.T{0.5, 0.5, 0.5}), kernel.OpIntersection)
	if err != nil {
		t.Fatalf("overlapping intersection: %v", err)
	}
	if m.IsEmpty() {
		t.Error("overlapping intersection is empty")
	}
}
