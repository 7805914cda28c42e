package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

func TestViewFlags_Resolve(t *testing.T) {
	base := config.MonitorConfig{Window: "1hour", Resolution: "medium"}

	tests := []struct {
		name    string
		flags   ViewFlags
		window  monitor.Window
		res     monitor.Resolution
		wantErr bool
	}{
		{name: "config values", flags: ViewFlags{}, window: "1hour", res: "medium"},
		{name: "flags win", flags: ViewFlags{Window: "7day", Resolution: "max"}, window: "7day", res: "max"},
		{name: "bad window", flags: ViewFlags{Window: "2hour"}, wantErr: true},
		{name: "bad resolution", flags: ViewFlags{Resolution: "ultra"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, r, err := tt.flags.Resolve(base)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.window, w)
			assert.Equal(t, tt.res, r)
		})
	}
}

func TestParseRefresh(t *testing.T) {
	tests := []struct {
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{flag: "", want: 30 * time.Second},
		{flag: "off", want: 0},
		{flag: "0", want: 0},
		{flag: "5s", want: 5 * time.Second},
		{flag: "5m", want: 5 * time.Minute},
		{flag: "7s", wantErr: true},
		{flag: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			got, err := ParseRefresh(tt.flag, 30*time.Second)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKinds(t *testing.T) {
	all, err := ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, monitor.AllKinds, all)

	kinds, err := ParseKinds([]string{"memory", "pool", "network", "storageIO"})
	require.NoError(t, err)
	assert.Equal(t, []monitor.Kind{monitor.KindNetwork, monitor.KindStorageIO, monitor.KindMemory}, kinds)

	_, err = ParseKinds([]string{"gpu"})
	assert.Error(t, err)
}
