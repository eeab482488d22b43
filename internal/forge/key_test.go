package forge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestKeyStringIsStable(t *testing.T) {
	key := ResourceKey{
		Provider: "github", Owner: "acme", Repo: "widgets",
		Kind: KindPullDetail, ID: "42",
	}
	got := key.String()
	want := "github/acme/widgets/pull/42"
	if got != want {
		t.Fatalf("key string: got %q want %q", got, want)
	}
	if got != key.String() {
		t.Fatalf("key string is not deterministic")
	}
}

func TestKeyEquality(t *testing.T) {
	a := ResourceKey{Provider: "github", Owner: "acme", Repo: "widgets", Kind: KindPullList}
	b := ResourceKey{Provider: "github", Owner: "acme", Repo: "widgets", Kind: KindPullList}
	if a != b {
		t.Fatalf("identical keys must compare equal")
	}
	b.Kind = KindIssueList
	if a == b {
		t.Fatalf("keys with different kinds must differ")
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	original := Paged[PullSummary]{
		Items: []PullSummary{{
			Number: 7, Title: "fix flaky retry", State: PullOpen,
			Author: "mira", UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
		HasMore: true,
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DecodePayload(KindPullList, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePayloadDiff(t *testing.T) {
	data, err := json.Marshal("--- a/f\n+++ b/f\n")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DecodePayload(KindPullDiff, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != "--- a/f\n+++ b/f\n" {
		t.Fatalf("diff payload mangled: %q", decoded)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	if _, err := DecodePayload(KindPullDetail, []byte("{not json")); err == nil {
		t.Fatalf("expected decode error for corrupt payload")
	}
}
