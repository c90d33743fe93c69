package message

import "testing"

func TestCorrelationIDRoundTrip(t *testing.T) {
	id := NewCorrelationID()
	if id == "" {
		t.Fatal("expected non-empty correlation id")
	}

	cm := CustomMeta{Body: map[string]interface{}{"label": "cow"}}
	tagged := WithCorrelationID(cm, id)

	got, ok := CorrelationID(tagged)
	if !ok || got != id {
		t.Fatalf("expected correlation id %q, got %q (ok=%v)", id, got, ok)
	}

	// Original body is untouched.
	if _, ok := CorrelationID(cm); ok {
		t.Fatal("expected original CustomMeta to be unmodified")
	}
	if tagged.Body["label"] != "cow" {
		t.Fatal("expected original fields preserved")
	}
}
