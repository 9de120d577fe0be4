package embedding

import (
	"context"
	"errors"
	"testing"
)

// countingClient implements Client and counts Embed calls.
type countingClient struct {
	calls int
	fail  bool
}

func (c *countingClient) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("provider down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (c *countingClient) Dimensions() int { return 3 }

func TestCachedClientServesRepeatsFromCache(t *testing.T) {
	inner := &countingClient{}
	c, err := NewCachedClient(inner, 128)
	if err != nil {
		t.Fatalf("NewCachedClient: %v", err)
	}
	defer c.Close()

	if _, err := c.Embed(context.Background(), "same text"); err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	c.Wait()

	if _, err := c.Embed(context.Background(), "same text"); err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}

	if _, err := c.Embed(context.Background(), "different text"); err != nil {
		t.Fatalf("third Embed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
}

func TestCachedClientDoesNotCacheFailures(t *testing.T) {
	inner := &countingClient{fail: true}
	c, err := NewCachedClient(inner, 128)
	if err != nil {
		t.Fatalf("NewCachedClient: %v", err)
	}
	defer c.Close()

	for i := 0; i < 2; i++ {
		if _, err := c.Embed(context.Background(), "text"); err == nil {
			t.Fatal("expected error")
		}
	}
	c.Wait()
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 (failures must not be cached)", inner.calls)
	}
}
