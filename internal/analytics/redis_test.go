package analytics

import (
	"testing"
	"time"
)

func TestBuildKey(t *testing.T) {
	at := time.Date(2024, 4, 5, 14, 30, 0, 0, time.UTC)
	got := buildKey("sms", "delivered", at)
	want := "crm:dlr:sms:delivered:2024040514"
	if got != want {
		t.Errorf("buildKey() = %q, want %q", got, want)
	}
}

func TestBuildKeyNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	at := time.Date(2024, 4, 5, 1, 0, 0, 0, loc) // 23:00 UTC on April 4th
	got := buildKey("whatsapp", "failed", at)
	want := "crm:dlr:whatsapp:failed:2024040423"
	if got != want {
		t.Errorf("buildKey() = %q, want %q", got, want)
	}
}
