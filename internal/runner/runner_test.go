package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/clock"
	"github.com/raoulx24/camrelay/internal/delivery"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/mailbox"
	"github.com/raoulx24/camrelay/internal/queue"
	"github.com/raoulx24/camrelay/internal/registry"
	"github.com/raoulx24/camrelay/internal/round"
	"github.com/raoulx24/camrelay/internal/worker"
)

type fakeCoordinator struct {
	clock     *clock.Fake
	roundTime time.Duration
	deadlines []time.Time
	cursors   []int
	sets      [][]string
	onRound   func(n int)
}

func ids(cams []registry.Camera) []string {
	out := make([]string, len(cams))
	for i, c := range cams {
		out[i] = c.ID
	}
	return out
}

func (f *fakeCoordinator) RunParallel(ctx context.Context, cams []registry.Camera, deadline time.Time, window clock.Window) (round.Outcome, error) {
	if err := round.CheckParallel(cams); err != nil {
		return round.Outcome{}, err
	}
	f.deadlines = append(f.deadlines, deadline)
	f.sets = append(f.sets, ids(cams))
	if f.onRound != nil {
		f.onRound(len(f.deadlines))
	}
	if ctx.Err() != nil {
		return round.Outcome{}, errors.New("round context must not be cancelled")
	}

	q := queue.New()
	results := make([]worker.Result, len(cams))
	for i, cam := range cams {
		q.Push(artifact.NewDescriptor("/x/"+cam.ID+".png", cam.ID, "1", "", deadline))
		results[i] = worker.Result{CameraID: cam.ID, Captures: 1, Artifacts: 1}
	}
	// workers finish a little after the deadline
	f.clock.Advance(clock.Interval(f.clock.Now(), deadline) + f.roundTime)
	return round.Outcome{Deadline: deadline, Results: results, Queue: q}, nil
}

func (f *fakeCoordinator) RunSequential(ctx context.Context, cams []registry.Camera, cursor int, window clock.Window) (worker.Result, int, error) {
	f.cursors = append(f.cursors, cursor)
	f.sets = append(f.sets, ids(cams))
	if f.onRound != nil {
		f.onRound(len(f.cursors))
	}
	f.clock.Advance(f.roundTime)
	return worker.Result{CameraID: cams[cursor].ID, Captures: 1}, round.Advance(cursor, len(cams)), nil
}

type fakeDrainer struct {
	infos []delivery.RoundInfo
}

func (f *fakeDrainer) Drain(_ context.Context, q *queue.Queue, info delivery.RoundInfo) delivery.Stats {
	f.infos = append(f.infos, info)
	var stats delivery.Stats
	for {
		if _, ok := q.TryPop(); !ok {
			return stats
		}
		stats.Delivered++
	}
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) MaybeSweep(context.Context, time.Time) int {
	s.calls++
	return 0
}

func testCameras(n int) []registry.Camera {
	cams := make([]registry.Camera, n)
	for i := range cams {
		cams[i] = registry.Camera{ID: fmt.Sprintf("cam%d", i+1)}
	}
	return cams
}

var start = time.Date(2024, 5, 14, 12, 3, 0, 0, time.UTC)

func parallelOptions(maxRun time.Duration) Options {
	return Options{Parallel: true, MaxRunTime: maxRun, AlignmentMinutes: 10, StartupOverhead: 40 * time.Second}
}

func TestZeroBudgetRunsNoRounds(t *testing.T) {
	clk := clock.NewFake(start)
	coord := &fakeCoordinator{clock: clk}
	drain := &fakeDrainer{}

	sum, err := New(parallelOptions(0), clk, coord, drain, logging.NewNop()).Run(context.Background(), testCameras(2))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sum.Rounds != 0 || len(coord.deadlines) != 0 || len(drain.infos) != 0 {
		t.Fatalf("expected zero rounds, got %+v", sum)
	}
	if len(clk.Sleeps()) != 0 {
		t.Fatalf("no sleeps expected, got %v", clk.Sleeps())
	}
}

func TestParallelRunAlignsDrainsAndTerminates(t *testing.T) {
	clk := clock.NewFake(start)
	coord := &fakeCoordinator{clock: clk, roundTime: 5 * time.Second}
	drain := &fakeDrainer{}
	sweep := &countingSweeper{}

	r := New(parallelOptions(25*time.Minute), clk, coord, drain, logging.NewNop()).WithSweeper(sweep).WithRunID("run-1")
	sum, err := r.Run(context.Background(), testCameras(3))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, 5, 14, 12, 10, 0, 0, time.UTC),
		time.Date(2024, 5, 14, 12, 20, 0, 0, time.UTC),
		time.Date(2024, 5, 14, 12, 30, 0, 0, time.UTC),
	}
	if len(coord.deadlines) != len(want) {
		t.Fatalf("rounds = %d (%v), want %d", len(coord.deadlines), coord.deadlines, len(want))
	}
	for i, d := range want {
		if !coord.deadlines[i].Equal(d) || !drain.infos[i].Deadline.Equal(d) {
			t.Fatalf("round %d deadline %s / drained %s, want %s", i, coord.deadlines[i], drain.infos[i].Deadline, d)
		}
		if drain.infos[i].RunID != "run-1" {
			t.Fatalf("drain run id = %q", drain.infos[i].RunID)
		}
	}

	// first sleep wakes the overhead before the deadline
	if first := clk.Sleeps()[0]; first != 6*time.Minute+20*time.Second {
		t.Fatalf("first alignment sleep = %s", first)
	}
	if sum.Rounds != 3 || sum.Delivered != 9 || sum.Captures != 9 || sweep.calls != 3 {
		t.Fatalf("unexpected summary %+v (sweeps %d)", sum, sweep.calls)
	}
	if limit := start.Add(25*time.Minute + 10*time.Minute); sum.Ended.After(limit) {
		t.Fatalf("run ended at %s, later than one round past the budget", sum.Ended)
	}
}

func TestOverrunningRoundRealigns(t *testing.T) {
	clk := clock.NewFake(start)
	coord := &fakeCoordinator{clock: clk, roundTime: 15 * time.Minute}

	if _, err := New(parallelOptions(40*time.Minute), clk, coord, &fakeDrainer{}, logging.NewNop()).Run(context.Background(), testCameras(1)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(coord.deadlines) < 2 {
		t.Fatalf("expected a second round, got %v", coord.deadlines)
	}
	if want := time.Date(2024, 5, 14, 12, 30, 0, 0, time.UTC); !coord.deadlines[1].Equal(want) {
		t.Fatalf("second deadline = %s, want %s", coord.deadlines[1], want)
	}
}

func TestParallelRejectsMoreThanFiveCameras(t *testing.T) {
	clk := clock.NewFake(start)
	coord := &fakeCoordinator{clock: clk}

	_, err := New(parallelOptions(time.Hour), clk, coord, &fakeDrainer{}, logging.NewNop()).Run(context.Background(), testCameras(6))
	if !errors.Is(err, errs.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if len(coord.deadlines) != 0 {
		t.Fatal("no round may run")
	}
}

func TestSequentialRotatesUntilBudget(t *testing.T) {
	clk := clock.NewFake(start)
	coord := &fakeCoordinator{clock: clk, roundTime: time.Minute}
	opts := Options{MaxRunTime: 5 * time.Minute, AlignmentMinutes: 10}

	sum, err := New(opts, clk, coord, nil, logging.NewNop()).Run(context.Background(), testCameras(3))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	wantCursors := []int{0, 1, 2, 0, 1}
	if fmt.Sprint(coord.cursors) != fmt.Sprint(wantCursors) {
		t.Fatalf("cursors = %v, want %v", coord.cursors, wantCursors)
	}
	if sum.Rounds != 5 || len(clk.Sleeps()) != 0 {
		t.Fatalf("summary %+v, sleeps %v", sum, clk.Sleeps())
	}
}

func TestReloadAppliedBetweenRounds(t *testing.T) {
	clk := clock.NewFake(start)
	mb := mailbox.New[[]registry.Camera]()
	coord := &fakeCoordinator{clock: clk, roundTime: time.Minute}
	coord.onRound = func(n int) {
		if n == 1 {
			mb.Put(testCameras(2))
		}
	}
	opts := Options{MaxRunTime: 3 * time.Minute}

	sum, err := New(opts, clk, coord, nil, logging.NewNop()).WithReloads(mb).Run(context.Background(), testCameras(4)[3:])
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if fmt.Sprint(coord.sets[0]) != "[cam4]" || fmt.Sprint(coord.sets[1]) != "[cam1 cam2]" {
		t.Fatalf("camera sets per round = %v", coord.sets)
	}
	if sum.Reloads != 1 {
		t.Fatalf("reloads = %d", sum.Reloads)
	}
}

func TestCancellationFinishesRoundThenStops(t *testing.T) {
	clk := clock.NewFake(start)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord := &fakeCoordinator{clock: clk, roundTime: time.Second, onRound: func(int) { cancel() }}
	drain := &fakeDrainer{}

	sum, err := New(parallelOptions(time.Hour), clk, coord, drain, logging.NewNop()).Run(ctx, testCameras(2))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(coord.deadlines) != 1 || len(drain.infos) != 1 {
		t.Fatalf("rounds=%d drains=%d, want the started round to complete", len(coord.deadlines), len(drain.infos))
	}
	if !sum.Interrupted || sum.Delivered != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Draining: "draining", Terminated: "terminated", State(42): "unknown"} {
		if s.String() != want {
			t.Fatalf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
