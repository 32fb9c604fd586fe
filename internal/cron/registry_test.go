package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresEntries(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA, time.Hour)
	registry.Register(jobB, 0)

	entries := registry.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Job != jobA || entries[1].Job != jobB {
		t.Fatalf("entries returned out of order")
	}
	if entries[0].Every != time.Hour {
		t.Fatalf("expected hourly cadence, got %s", entries[0].Every)
	}
	if entries[1].Every != defaultCadence {
		t.Fatalf("expected default cadence, got %s", entries[1].Every)
	}

	// ensure caller cannot mutate internal slice
	entries[0].Job = nil
	if registry.Entries()[0].Job == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(Entry{Job: nil, Every: time.Hour}, Entry{Job: &stubJob{name: "a"}, Every: time.Hour})
	if len(registry.Entries()) != 1 {
		t.Fatalf("expected nil job to be skipped")
	}
}
