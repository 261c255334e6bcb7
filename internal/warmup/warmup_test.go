package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-assist-go/internal/directory"
	"github.com/garyellow/campus-assist-go/internal/metrics"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []directory.Kind
	fail  map[directory.Kind]error
}

func (f *fakeRefresher) Refresh(_ context.Context, kind directory.Kind) (*directory.Table, error) {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	f.mu.Unlock()
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	return &directory.Table{
		Kind: kind,
		Rows: []directory.Record{{"Name": "a"}, {"Name": "b"}},
	}, nil
}

func TestRun_AllKinds(t *testing.T) {
	t.Parallel()

	f := &fakeRefresher{}
	stats, err := Run(context.Background(), f, Options{})
	require.NoError(t, err)

	assert.ElementsMatch(t, directory.Kinds, f.calls)
	assert.Equal(t, int64(len(directory.Kinds)), stats.Tables.Load())
	assert.Equal(t, int64(2*len(directory.Kinds)), stats.Rows.Load())
	assert.Zero(t, stats.Failed.Load())
}

func TestRun_PartialFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("sheet unreachable")
	f := &fakeRefresher{fail: map[directory.Kind]error{directory.KindLabs: boom}}
	m := metrics.New(prometheus.NewRegistry())

	stats, err := Run(context.Background(), f, Options{
		Kinds:   []directory.Kind{directory.KindFaculty, directory.KindLabs},
		Timeout: time.Second,
		Metrics: m,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "labs")
	assert.Equal(t, int64(1), stats.Tables.Load())
	assert.Equal(t, int64(1), stats.Failed.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupTasksTotal.WithLabelValues("faculty", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmupTasksTotal.WithLabelValues("labs", "error")))
}

func TestRunInBackground_MarksReady(t *testing.T) {
	t.Parallel()

	f := &fakeRefresher{fail: map[directory.Kind]error{directory.KindFaculty: errors.New("down")}}
	ready := NewReadinessState(time.Hour)
	done := make(chan struct{})

	RunInBackground(context.Background(), f, ready, Options{}, done)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("warmup did not finish")
	}
	assert.True(t, ready.WarmupCompleted(), "failures still complete warmup")
}

func TestParseKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    []directory.Kind
		wantErr bool
	}{
		{"empty selects all", "", directory.Kinds, false},
		{"blank items", " , ,", directory.Kinds, false},
		{"subset", "labs, Faculty", []directory.Kind{directory.KindLabs, directory.KindFaculty}, false},
		{"unknown", "labs,canteen", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKinds(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
