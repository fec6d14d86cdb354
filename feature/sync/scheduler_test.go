package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewScheduler(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)

	t.Run("InvalidSchedule", func(t *testing.T) {
		_, err := NewScheduler("every minute", f.service, nil)
		assert.Error(t, err)
	})

	t.Run("NextRun", func(t *testing.T) {
		s, err := NewScheduler("@hourly", f.service, nil)
		require.NoError(t, err)
		s.Start()
		defer func() { assert.NoError(t, s.Stop(context.Background())) }()

		next := s.Next()
		assert.True(t, next.After(time.Now()))
		assert.True(t, next.Before(time.Now().Add(time.Hour+time.Minute)))
	})
}

func TestSchedulerRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newServiceFixture(t, Config{}, nil)

	s, err := NewScheduler("@hourly", f.service, zap.New(core))
	require.NoError(t, err)

	s.run()
	assert.Equal(t, 1, logs.FilterMessage("Scheduled sync completed").Len())
	assert.Equal(t, 2, f.calendars.records["tasks"].len())

	f.records.err = assert.AnError
	s.run()
	assert.Equal(t, 1, logs.FilterMessage("Scheduled sync failed").Len())

	require.NoError(t, s.Stop(context.Background()))
}
