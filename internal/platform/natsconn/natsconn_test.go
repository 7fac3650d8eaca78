package natsconn

import (
	"testing"
	"time"
)

func TestOptions_Defaults(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_MAX_RECONNECTS", "")
	t.Setenv("NATS_RECONNECT_WAIT", "")

	o := Options{}.withDefaults()
	if o.URL != "nats://127.0.0.1:4222" {
		t.Fatalf("unexpected default url %q", o.URL)
	}
	if o.MaxReconnects != 5 {
		t.Fatalf("expected 5 reconnects, got %d", o.MaxReconnects)
	}
	if o.ReconnectWait != 2*time.Second {
		t.Fatalf("expected 2s wait, got %s", o.ReconnectWait)
	}
}

func TestOptions_FromEnv(t *testing.T) {
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("NATS_MAX_RECONNECTS", "7")
	t.Setenv("NATS_RECONNECT_WAIT", "3s")

	o := Options{}.withDefaults()
	if o.URL != "nats://broker:4222" || o.MaxReconnects != 7 || o.ReconnectWait != 3*time.Second {
		t.Fatalf("env not applied: %+v", o)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		MaxReconnects: 1,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to invalid NATS URL")
	}
}
