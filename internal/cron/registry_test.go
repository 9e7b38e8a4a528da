package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	first := &stubJob{name: "reconcile-holdings"}
	second := &stubJob{name: "sweep"}
	registry := NewRegistry(first, nil)
	registry.Register(second)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Same(t, first, jobs[0])
	require.Same(t, second, jobs[1])
	require.Equal(t, []string{"reconcile-holdings", "sweep"}, registry.Names())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}
