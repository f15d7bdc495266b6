package unlock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", Unconditional, false},
		{"unconditional", Unconditional, false},
		{" Selective ", Selective, false},
		{"nuke", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplySelective_SparesExcluded(t *testing.T) {
	k := &fakeKiller{names: map[int32]string{1: "A.exe", 2: "B.exe"}}
	procs := []LockingProcess{{PID: 1}, {PID: 2}}

	res, err := applySelective(context.Background(), k, procs, []string{"A.exe"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Terminated)
	assert.Equal(t, []string{"A.exe"}, res.Skipped)
	assert.Equal(t, []int32{2}, k.killed)
}

func TestApplySelective_CaseInsensitive(t *testing.T) {
	k := &fakeKiller{names: map[int32]string{1: "qBittorrent.exe"}}

	res, err := applySelective(context.Background(), k, []LockingProcess{{PID: 1}}, []string{"QBITTORRENT.EXE"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Terminated)
	assert.Empty(t, k.killed)
}

func TestApplySelective_ExitedProcessSkipped(t *testing.T) {
	k := &fakeKiller{
		names:   map[int32]string{2: "player.exe"},
		gone:    map[int32]bool{1: true},
		killErr: map[int32]error{2: ErrProcessGone},
	}
	procs := []LockingProcess{{PID: 1, Name: "Viewer"}, {PID: 2}}

	res, err := applySelective(context.Background(), k, procs, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Terminated)
	assert.Equal(t, []string{"Viewer", "player.exe"}, res.Skipped)
	assert.Empty(t, res.Failures)
}

func TestApplySelective_FallsBackToReportedName(t *testing.T) {
	k := &fakeKiller{}
	procs := []LockingProcess{{PID: 7, Name: "A.exe"}, {PID: 8}}

	res, err := applySelective(context.Background(), k, procs, []string{"a.exe"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A.exe"}, res.Skipped)
	assert.Equal(t, []int32{8}, k.killed)
}

func TestApplySelective_KillFailureRecorded(t *testing.T) {
	k := &fakeKiller{
		names:   map[int32]string{1: "svc.exe", 2: "b.exe"},
		killErr: map[int32]error{1: errors.New("access denied")},
	}

	res, err := applySelective(context.Background(), k, []LockingProcess{{PID: 1}, {PID: 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Terminated)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "svc.exe")
}

func TestApplySelective_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k := &fakeKiller{names: map[int32]string{1: "b.exe"}}

	_, err := applySelective(ctx, k, []LockingProcess{{PID: 1}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, k.killed)
}

func TestApplyUnconditional(t *testing.T) {
	c := &fakeCoordinator{lockers: []LockingProcess{{PID: 1}, {PID: 2}}}
	s := NewSession(c)
	require.NoError(t, s.Open())
	require.NoError(t, s.Register([]string{"/a/b/c"}))
	procs, err := s.LockingProcesses()
	require.NoError(t, err)

	res, err := applyUnconditional(s, len(procs))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Terminated)
	assert.Equal(t, 1, c.shutdowns)
}
