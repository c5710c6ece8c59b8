package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/api"
	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine/memengine"
	"github.com/byronwasti/florescence/internal/flower"
)

func TestServerHealthAndStatus(t *testing.T) {
	world := memengine.NewWorld()
	eng := memengine.New(world)
	f := flower.New[domain.MemAddr](uuid.New(), eng, nil, flower.DefaultConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	srv := httptest.NewServer(api.NewServer[domain.MemAddr](f).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp2.Body.Close()
	var snap flower.Snapshot
	if err := json.NewDecoder(resp2.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.PeerCount != 1 {
		t.Fatalf("PeerCount = %d, want 1 for a lone bootstrapped node", snap.PeerCount)
	}

	resp3, err := http.Get(srv.URL + "/api/traces")
	if err != nil {
		t.Fatalf("GET /api/traces: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp3.StatusCode)
	}
}
