package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

func newTestGuard(t *testing.T) *AbuseGuard {
	t.Helper()
	guard := NewAbuseGuard(DefaultAbuseConfig(), utils.NewTextNormalizer(zap.NewNop()), zap.NewNop())
	t.Cleanup(guard.Stop)
	return guard
}

func TestCheckAcceptsNormalMessage(t *testing.T) {
	guard := newTestGuard(t)

	result := guard.Check("1.2.3.4", "Hola, me interesa el BYD Seal", "conv-1")
	if result.IsAbuse {
		t.Errorf("expected normal message to pass, got rejection: %s", result.Reason)
	}
}

func TestCheckAcceptsBarePhoneNumber(t *testing.T) {
	guard := newTestGuard(t)

	// 10 digits is a valid phone number, not junk numeric input
	result := guard.Check("1.2.3.4", "8112345678", "conv-1")
	if result.IsAbuse {
		t.Errorf("expected phone number to pass, got rejection: %s", result.Reason)
	}
}

func TestCheckRejectsSpamPatterns(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"repeated a", "aaaaa"},
		{"keyboard mash", "asdfgh"},
		{"short number", "123"},
		{"test message", "test"},
		{"prueba message", "prueba"},
		{"repeated x", "xxxx"},
		{"repeated punctuation", "?????"},
		{"consonant run", "qwrtypsdfg"},
		{"dots", "....."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(t)
			result := guard.Check("1.2.3.4", tt.message, "conv-1")
			if !result.IsAbuse {
				t.Fatalf("expected %q to be rejected as spam", tt.message)
			}
			if result.Source != AbuseSourceSpam {
				t.Errorf("expected source %s, got %s", AbuseSourceSpam, result.Source)
			}
		})
	}
}

func TestCheckRejectsShortMessage(t *testing.T) {
	guard := newTestGuard(t)

	result := guard.Check("1.2.3.4", "ok", "conv-1")
	if !result.IsAbuse {
		t.Fatal("expected short message to be rejected")
	}
	if result.Source != AbuseSourceLength {
		t.Errorf("expected source %s, got %s", AbuseSourceLength, result.Source)
	}
}

func TestCheckRateLimit(t *testing.T) {
	guard := newTestGuard(t)

	// 5 distinct messages within the window are fine
	for i := 0; i < 5; i++ {
		result := guard.Check("1.2.3.4", fmt.Sprintf("mensaje numero %d sobre el seal", i), "conv-1")
		if result.IsAbuse {
			t.Fatalf("message %d unexpectedly rejected: %s", i, result.Reason)
		}
	}

	result := guard.Check("1.2.3.4", "un sexto mensaje diferente", "conv-1")
	if !result.IsAbuse {
		t.Fatal("expected sixth message within a minute to hit the rate limit")
	}
	if result.Source != AbuseSourceRate {
		t.Errorf("expected source %s, got %s", AbuseSourceRate, result.Source)
	}

	// A different sender is unaffected
	other := guard.Check("5.6.7.8", "hola, me interesa un auto", "conv-2")
	if other.IsAbuse {
		t.Errorf("other sender unexpectedly rejected: %s", other.Reason)
	}
}

func TestCheckRateLimitWindowSlides(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now()
	guard.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		guard.Check("1.2.3.4", fmt.Sprintf("mensaje numero %d del cliente", i), "conv-1")
	}

	// 61 seconds later the window is empty again
	guard.now = func() time.Time { return base.Add(61 * time.Second) }
	result := guard.Check("1.2.3.4", "mensaje despues de esperar", "conv-1")
	if result.IsAbuse {
		t.Errorf("expected message after window to pass, got: %s", result.Reason)
	}
}

func TestCheckRepeatedMessage(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now()
	tick := 0
	// space the sends out so the rate limiter stays quiet
	guard.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	const msg = "me interesa el dolphin mini"
	for i := 0; i < 3; i++ {
		result := guard.Check("1.2.3.4", msg, "conv-1")
		if result.IsAbuse {
			t.Fatalf("repeat %d unexpectedly rejected: %s", i+1, result.Reason)
		}
	}

	result := guard.Check("1.2.3.4", msg, "conv-1")
	if !result.IsAbuse {
		t.Fatal("expected fourth identical message to be rejected")
	}
	if result.Source != AbuseSourceRepeated {
		t.Errorf("expected source %s, got %s", AbuseSourceRepeated, result.Source)
	}
}

func TestRepeatedMessageIgnoresAccentsAndCase(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now()
	tick := 0
	guard.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	variants := []string{
		"¿Cuánto cuesta el Seal?",
		"cuanto cuesta el seal",
		"CUANTO  CUESTA  EL  SEAL",
	}
	for i, msg := range variants {
		result := guard.Check("1.2.3.4", msg, "conv-1")
		if result.IsAbuse {
			t.Fatalf("variant %d unexpectedly rejected: %s", i, result.Reason)
		}
	}

	result := guard.Check("1.2.3.4", "Cuánto cuesta el seal", "conv-1")
	if !result.IsAbuse {
		t.Fatal("expected normalized-identical message to count as repeat")
	}
}

func TestViolationsLeadToBlock(t *testing.T) {
	guard := newTestGuard(t)

	// Each spam message is a violation; the third one triggers the block
	for i := 0; i < 3; i++ {
		guard.Check("1.2.3.4", "aaaaa", "conv-1")
	}

	result := guard.Check("1.2.3.4", "hola, ahora si quiero informacion", "conv-1")
	if !result.IsAbuse {
		t.Fatal("expected sender to be blocked after repeated violations")
	}
	if result.Source != AbuseSourceBlocked {
		t.Errorf("expected source %s, got %s", AbuseSourceBlocked, result.Source)
	}
	if result.BlockMinutesRemaining <= 0 {
		t.Errorf("expected positive minutes remaining, got %d", result.BlockMinutesRemaining)
	}
}

func TestBlockExpires(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now()
	guard.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		guard.Check("1.2.3.4", "aaaaa", "conv-1")
	}
	if blocked, _ := guard.IsBlocked("1.2.3.4"); !blocked {
		t.Fatal("expected sender to be blocked")
	}

	guard.now = func() time.Time { return base.Add(31 * time.Minute) }
	result := guard.Check("1.2.3.4", "hola, vengo en son de paz", "conv-1")
	if result.IsAbuse {
		t.Errorf("expected expired block to clear, got: %s", result.Reason)
	}
}

func TestSweepDropsStaleState(t *testing.T) {
	guard := newTestGuard(t)
	base := time.Now()
	guard.now = func() time.Time { return base }

	guard.Check("1.2.3.4", "hola, me interesa el shark", "conv-1")
	guard.Check("1.2.3.4", "aaaaa", "conv-1")

	stats := guard.Stats()
	if stats.ActiveSenders == 0 {
		t.Fatal("expected sender tracking before sweep")
	}

	guard.now = func() time.Time { return base.Add(25 * time.Hour) }
	guard.Sweep()

	stats = guard.Stats()
	if stats.ActiveSenders != 0 {
		t.Errorf("expected sender entries swept, got %d", stats.ActiveSenders)
	}
	if stats.TrackedFingerprints != 0 {
		t.Errorf("expected fingerprints swept, got %d", stats.TrackedFingerprints)
	}
	if stats.ViolatedSenders != 0 {
		t.Errorf("expected violations swept, got %d", stats.ViolatedSenders)
	}
}
