package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/mycms-backend/pkg/config"
)

func TestTopicName(t *testing.T) {
	cases := map[string]string{
		"orders":                         "projects/demo/topics/orders",
		"  orders  ":                     "projects/demo/topics/orders",
		"projects/other/topics/external": "projects/other/topics/external",
		"":                               "",
	}
	for in, want := range cases {
		if got := TopicName("demo", in); got != want {
			t.Fatalf("TopicName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := TopicName("", "orders"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	if _, err := NewClient(context.Background(), config.PubSubConfig{OrdersTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.PubSubConfig{ProjectID: "p"}, nil); err != errNoTopic {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.OrdersPublisher() != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil close error, got %v", err)
	}
	if err := c.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}
