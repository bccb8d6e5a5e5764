package otel_test

import (
	"context"
	"testing"

	"voxelspawn.ai/internal/platform/otel"
)

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	t.Setenv("VOXELSPAWN_OTEL_ENDPOINT", "")
	t.Setenv("VOXELSPAWN_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "voxelspawn-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	t.Setenv("VOXELSPAWN_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("VOXELSPAWN_OTEL_ENABLED", "FALSE")

	shutdown, err := otel.Setup(context.Background(), "voxelspawn-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_ProviderShutsDownCleanly(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	t.Setenv("VOXELSPAWN_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("VOXELSPAWN_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "voxelspawn-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
