package store

import (
	"encoding/json"
	"testing"
)

// The features column is a JSON array of feature names; this is the
// shape onboarding writes and the row default ('[]') produces.
func TestBusinessFeaturesDecode(t *testing.T) {
	var features []string
	if err := json.Unmarshal([]byte(`["aiReplies"]`), &features); err != nil {
		t.Fatalf("decode onboarded features: %v", err)
	}
	b := Business{Features: features}
	if !b.HasFeature("aiReplies") {
		t.Error("aiReplies should be enabled")
	}
	if b.HasFeature("voice") {
		t.Error("voice should not be enabled")
	}

	if err := json.Unmarshal([]byte(`[]`), &features); err != nil {
		t.Fatalf("decode default features: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("default features = %v, want none", features)
	}
}
