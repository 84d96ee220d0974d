package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

// startTestServer starts an in-process NATS server on a random port.
func startTestServer(t *testing.T) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("events:comms_publisher_integration_test - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("events:comms_publisher_integration_test - failed to connect: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func TestCommsPublisher_PublishDispatched_BothSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	granular := make(chan *DispatchEvent, 1)
	global := make(chan *DispatchEvent, 1)

	sub1, err := nc.Subscribe("fred.gateway.dispatched.get_series", func(msg *comms.Msg) {
		var event DispatchEvent
		if err := json.Unmarshal(msg.Data, &event); err == nil {
			granular <- &event
		}
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - subscribe granular failed: %v", err)
	}
	defer sub1.Unsubscribe()

	sub2, err := nc.Subscribe("fred.gateway.dispatched", func(msg *comms.Msg) {
		var event DispatchEvent
		if err := json.Unmarshal(msg.Data, &event); err == nil {
			global <- &event
		}
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - subscribe global failed: %v", err)
	}
	defer sub2.Unsubscribe()

	event := &DispatchEvent{
		RequestID:  "req-9",
		Transport:  "mcp",
		Operation:  "get_series",
		Outcome:    "MissingParameter",
		DurationMs: 0,
		Timestamp:  "2025-01-01T00:00:00Z",
	}
	if err := publisher.PublishDispatched(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishDispatched failed: %v", err)
	}
	nc.Flush()

	for _, tc := range []struct {
		name string
		ch   chan *DispatchEvent
	}{
		{"granular", granular},
		{"global", global},
	} {
		select {
		case got := <-tc.ch:
			if got.RequestID != "req-9" || got.Outcome != "MissingParameter" {
				t.Errorf("events:comms_publisher_integration_test - %s event = %+v", tc.name, got)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("events:comms_publisher_integration_test - timeout waiting for %s event", tc.name)
		}
	}
}

func TestCommsPublisher_CustomGlobalSubject(t *testing.T) {
	nc, cleanup := startTestServer(t)
	defer cleanup()

	customSubject := "custom.gateway.events"
	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{GlobalSubject: customSubject})

	received := make(chan string, 2)
	sub, err := nc.Subscribe(customSubject+".>", func(msg *comms.Msg) {
		received <- msg.Subject
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := publisher.PublishDispatched(context.Background(), &DispatchEvent{Operation: "browse", Outcome: "ok"}); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishDispatched failed: %v", err)
	}
	nc.Flush()

	select {
	case subject := <-received:
		if subject != customSubject+".browse" {
			t.Errorf("events:comms_publisher_integration_test - subject = %q, want %q", subject, customSubject+".browse")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for granular event")
	}
}
