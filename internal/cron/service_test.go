package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	healthy := &testJob{name: "reconcile-holdings"}
	broken := &testJob{name: "broken", err: errors.New("boom")}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(healthy, broken),
		Lock:     &fakeLock{},
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	require.Equal(t, 1, healthy.runs)
	require.Equal(t, 1, broken.runs, "a failing job must not stop the cycle")
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "reconcile-holdings"}
	lock := &fakeLock{acquired: true}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, service.runCycle(context.Background()))
	require.Zero(t, job.runs)
}

func TestNewServiceValidatesDeps(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.ErrorContains(t, err, "logger")

	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})})
	require.ErrorContains(t, err, "lock")
}
