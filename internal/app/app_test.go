package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/pkg/config"
	"github.com/noah-isme/fleet-mx-api/pkg/jobs"
)

func TestSchedulerConfigMapsLookback(t *testing.T) {
	cfg := SchedulerConfig(config.SchedulerConfig{
		HorizonDays:           90,
		FleetBatchSize:        3,
		ForcedLead:            time.Hour,
		FlightLookbackDays:    14,
		MaxConflictSearchDays: 10,
	})

	assert.Equal(t, 90, cfg.HorizonDays)
	assert.Equal(t, 3, cfg.FleetBatchSize)
	assert.Equal(t, time.Hour, cfg.ForcedLead)
	assert.Equal(t, 14, cfg.FlightLookbackDays)
	assert.Equal(t, 10, cfg.MaxConflictSearchDays)
}

func TestFleetRefreshJobRejectsMalformedPayload(t *testing.T) {
	a := &App{Logger: zap.NewNop()}

	err := a.FleetRefreshJob(context.Background(), jobs.Job{ID: "job-1", Type: jobs.JobTypeFleetRefresh, Payload: json.RawMessage(`"fleet-1"`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode maintenance.fleet_refresh payload")

	err = a.FleetRefreshJob(context.Background(), jobs.Job{ID: "job-2", Type: jobs.JobTypeFleetRefresh, Payload: json.RawMessage(`{"now":"2025-03-10T00:00:00Z"}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fleet id missing")
}

func TestPingCacheWithoutRedis(t *testing.T) {
	assert.NoError(t, (&App{}).PingCache(context.Background()))
}
