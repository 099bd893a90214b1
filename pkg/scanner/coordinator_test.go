package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tongchengbin/xport/pkg/types"
	"github.com/tongchengbin/xport/testutils"
)

// mockProber 根据端口号返回确定的结果
type mockProber struct {
	delay   time.Duration
	active  atomic.Int64
	peak    atomic.Int64
	calls   atomic.Int64
	fatalOn int
}

func (m *mockProber) Probe(ctx context.Context, item types.WorkItem) (*types.ProbeResult, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		old := m.peak.Load()
		if n <= old || m.peak.CompareAndSwap(old, n) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return types.NewProbeResult(item, types.StatusError, causeCanceled), nil
		}
	}
	if m.fatalOn != 0 && item.Port == m.fatalOn {
		return types.NewProbeResult(item, types.StatusError, "socket unavailable: too many open files"), ErrSocketUnavailable
	}
	switch item.Port % 3 {
	case 0:
		result := types.NewProbeResult(item, types.StatusOpen, "")
		result.Banner = fmt.Sprintf("banner-%d", item.Port)
		return result, nil
	case 1:
		return types.NewProbeResult(item, types.StatusClosed, ""), nil
	default:
		return types.NewProbeResult(item, types.StatusFiltered, "timeout"), nil
	}
}

func targetsOf(hosts ...string) []types.Target {
	targets := make([]types.Target, 0, len(hosts))
	for _, host := range hosts {
		targets = append(targets, types.NewTarget(host))
	}
	return targets
}

func portRange(lo, hi int) types.PortSet {
	ports := make(types.PortSet, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		ports = append(ports, p)
	}
	return ports
}

func TestCoordinatorLocalhostScenario(t *testing.T) {
	report, err := NewCoordinator(&mockProber{}, WithWorkers(4)).Run(context.Background(),
		targetsOf("127.0.0.1"), types.PortSet{22, 80, 81, 82})
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	var ports []int
	for _, result := range report.Results {
		assert.Equal(t, "127.0.0.1", result.Target.Host())
		ports = append(ports, result.Port)
	}
	assert.Equal(t, []int{22, 80, 81, 82}, ports)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Open)
	assert.Equal(t, 2, report.Closed)
	assert.Equal(t, 1, report.Filtered)
	assert.True(t, report.Complete())
}

func TestCoordinatorDeterministicAcrossWorkerCounts(t *testing.T) {
	targets := targetsOf("gamma.lab", "10.0.0.2", "Alpha.lab", "10.0.0.1", "beta.lab")
	ports := portRange(20, 60)

	run := func(workers int) []types.ProbeResult {
		prober := &mockProber{delay: time.Millisecond}
		report, err := NewCoordinator(prober, WithWorkers(workers)).Run(context.Background(), targets, ports)
		require.NoError(t, err)
		require.Len(t, report.Results, len(targets)*len(ports))
		assert.LessOrEqual(t, prober.peak.Load(), int64(workers))
		out := make([]types.ProbeResult, 0, len(report.Results))
		for _, result := range report.Results {
			r := *result
			r.Duration = 0
			out = append(out, r)
		}
		return out
	}

	serial := run(1)
	parallel := run(16)
	assert.Equal(t, serial, parallel)

	var order []string
	for i := 0; i < len(serial); i += len(ports) {
		order = append(order, serial[i].Target.Host())
	}
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "Alpha.lab", "beta.lab", "gamma.lab"}, order)
}

func TestCoordinatorCallbackSeesEveryResult(t *testing.T) {
	var seen int
	report, err := NewCoordinator(&mockProber{}, WithWorkers(8)).RunWithCallback(context.Background(),
		targetsOf("10.0.0.1", "10.0.0.2"), portRange(1, 100), func(result *types.ProbeResult) {
			seen++
		})
	require.NoError(t, err)
	assert.Equal(t, 200, seen)
	assert.Equal(t, 200, report.Total)
	assert.Equal(t, report.Total, report.Open+report.Closed+report.Filtered+report.Errors)
}

func TestCoordinatorFatalAbort(t *testing.T) {
	prober := &mockProber{fatalOn: 5}
	report, err := NewCoordinator(prober, WithWorkers(1)).Run(context.Background(),
		targetsOf("10.0.0.1"), portRange(1, 200))
	require.ErrorIs(t, err, ErrSocketUnavailable)
	require.NotNil(t, report)
	assert.Len(t, report.Results, 200)
	assert.True(t, report.Complete())

	aborted := 0
	for _, result := range report.Results {
		if result.Error == causeAborted {
			aborted++
			assert.Equal(t, types.StatusError, result.Status)
		}
	}
	assert.Positive(t, aborted)
	assert.Less(t, prober.calls.Load(), int64(200))
}

func TestCoordinatorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	report, err := NewCoordinator(&mockProber{delay: 2 * time.Millisecond}, WithWorkers(2)).RunWithCallback(ctx,
		targetsOf("10.0.0.1"), portRange(1, 300), func(result *types.ProbeResult) {
			seen++
			if seen == 10 {
				cancel()
			}
		})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Len(t, report.Results, 300)

	canceled := 0
	for _, result := range report.Results {
		if result.Error == causeCanceled {
			canceled++
		}
	}
	assert.Positive(t, canceled)
}

func TestCoordinatorEmptyInput(t *testing.T) {
	report, err := NewCoordinator(&mockProber{}).Run(context.Background(), nil, types.PortSet{80})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Total)
}

func TestCoordinatorRejectsZeroWorkers(t *testing.T) {
	_, err := NewCoordinator(&mockProber{}, WithWorkers(0)).Run(context.Background(), targetsOf("10.0.0.1"), types.PortSet{80})
	assert.Error(t, err)
}

func TestCoordinatorPanicBecomesError(t *testing.T) {
	report, err := NewCoordinator(panicProber{}, WithWorkers(2)).Run(context.Background(), targetsOf("10.0.0.1"), types.PortSet{80, 443})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		assert.Equal(t, types.StatusError, result.Status)
		assert.Contains(t, result.Error, "panic")
	}
}

type panicProber struct{}

func (panicProber) Probe(ctx context.Context, item types.WorkItem) (*types.ProbeResult, error) {
	panic(errors.New("probe exploded"))
}

func TestRunAgainstLocalServers(t *testing.T) {
	server := startServer(t, testutils.SSHServer())
	closed, err := testutils.ClosedPort()
	require.NoError(t, err)

	ports := types.PortSet{server.Port(), closed}
	if closed < server.Port() {
		ports = types.PortSet{closed, server.Port()}
	}
	report, err := Run(context.Background(), targetsOf("127.0.0.1"), ports, 4, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		if result.Port == server.Port() {
			assert.Equal(t, types.StatusOpen, result.Status)
			assert.Equal(t, "SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.5", result.Banner)
		} else {
			assert.Equal(t, types.StatusClosed, result.Status)
		}
	}
	assert.Equal(t, 1, report.Open)
	assert.Equal(t, 1, report.Closed)

	_, err = Run(context.Background(), targetsOf("127.0.0.1"), ports, 0, time.Second)
	assert.Error(t, err)
	_, err = Run(context.Background(), targetsOf("127.0.0.1"), ports, 4, 0)
	assert.Error(t, err)
}
