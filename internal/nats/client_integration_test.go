package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

func setupNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := natscontainer.Run(ctx, "nats:2.10-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server is ready"),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get NATS connection string: %v", err)
	}
	return url
}

func TestNATSClient_Integration_Requests(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client, err := New(setupNATS(t), nil)
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	defer client.Close()

	received := make(chan *types.CheckRequestMessage, 1)
	if _, err := client.SubscribeCheckRequests(func(msg *types.CheckRequestMessage) {
		received <- msg
	}); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	msg := &types.CheckRequestMessage{
		RequestID:   "integration-1",
		Source:      "test",
		SubmittedAt: time.Now().UTC(),
		Payload:     json.RawMessage(`{"primary_mission":{"waypoints":[[0,0],[10,10]]},"other_missions":[]}`),
	}
	if err := client.PublishCheckRequest(msg); err != nil {
		t.Fatalf("Failed to publish request: %v", err)
	}

	select {
	case got := <-received:
		if got.RequestID != msg.RequestID {
			t.Errorf("Expected request %s, got %s", msg.RequestID, got.RequestID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for request")
	}
}

func TestNATSClient_Integration_Reports(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client, err := New(setupNATS(t), nil)
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	defer client.Close()

	const total = 10
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		done = make(chan struct{})
	)
	if _, err := client.SubscribeCheckReports(func(r *types.CheckReport) {
		mu.Lock()
		defer mu.Unlock()
		if seen[r.CheckID] {
			return
		}
		seen[r.CheckID] = true
		if len(seen) == total {
			close(done)
		}
	}); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	for i := 0; i < total; i++ {
		report := &types.CheckReport{CheckID: fmt.Sprintf("check-%d", i), Status: types.StatusClear}
		if err := client.PublishCheckReport(report); err != nil {
			t.Fatalf("Failed to publish report %d: %v", i, err)
		}
	}
	// Same message id again: de-duplicated by the stream
	if err := client.PublishCheckReport(&types.CheckReport{CheckID: "check-0"}); err != nil {
		t.Fatalf("Failed to republish report: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		mu.Lock()
		t.Fatalf("Timeout: received %d of %d reports", len(seen), total)
		mu.Unlock()
	}
}
