package core

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// AbuseConfig holds the tunables for the abuse guard
type AbuseConfig struct {
	MaxMessagesPerMinute  int
	MaxRepeatedMessages   int
	MinMessageLength      int
	BlockDuration         time.Duration
	ViolationsBeforeBlock int
	SweepInterval         time.Duration
	SenderRetention       time.Duration
	FingerprintTTL        time.Duration
	ViolationRetention    time.Duration
}

// DefaultAbuseConfig returns the production defaults
func DefaultAbuseConfig() AbuseConfig {
	return AbuseConfig{
		MaxMessagesPerMinute:  5,
		MaxRepeatedMessages:   3,
		MinMessageLength:      3,
		BlockDuration:         30 * time.Minute,
		ViolationsBeforeBlock: 3,
		SweepInterval:         5 * time.Minute,
		SenderRetention:       time.Hour,
		FingerprintTTL:        24 * time.Hour,
		ViolationRetention:    24 * time.Hour,
	}
}

// spamRule is one entry of the ordered spam check table. Declaration order is
// priority: the first matching rule wins. Most rules are regex-backed; the
// repeated-character rule needs a backreference RE2 does not support, so it
// is a plain function.
type spamRule struct {
	description string
	match       func(string) bool
}

func regexRule(description, pattern string) spamRule {
	re := regexp.MustCompile(pattern)
	return spamRule{description: description, match: re.MatchString}
}

// spamRules flags throwaway junk input. Bare numeric strings of 1-5 digits
// are spam, but a 10-digit string is a valid phone number and must pass.
func spamRules() []spamRule {
	return []spamRule{
		regexRule("solo letras 'a' repetidas", `^a+$`),
		regexRule("teclas aleatorias del teclado", `^[asdfgh]+$`),
		regexRule("numeros muy cortos sin contexto", `^[0-9]{1,5}$`),
		regexRule("mensaje de prueba", `^test$`),
		regexRule("mensaje de prueba en espanol", `^prueba$`),
		regexRule("solo letras 'x' repetidas", `^x+$`),
		{
			description: "caracter repetido 5+ veces",
			match: func(s string) bool {
				runes := []rune(s)
				if len(runes) < 5 {
					return false
				}
				for _, r := range runes[1:] {
					if r != runes[0] {
						return false
					}
				}
				return true
			},
		},
		regexRule("consonantes seguidas sin sentido", `^[bcdfghjklmnpqrstvwxyz]{8,}$`),
		regexRule("solo puntos repetidos", `^\.{3,}$`),
		regexRule("solo simbolos sin texto", `^[!@#$%^&*()]+$`),
	}
}

type fingerprint struct {
	count    int
	lastSeen time.Time
}

type violationRecord struct {
	count  int
	stamps []time.Time
}

// AbuseGuard rate-limits and blocks abusive senders before any other layer
// runs. All state is process-local; the guard fails open on anything
// unexpected so it can never take the chat down.
type AbuseGuard struct {
	cfg        AbuseConfig
	rules      []spamRule
	normalizer *utils.TextNormalizer
	logger     *zap.Logger

	mu           sync.Mutex
	senders      map[string][]time.Time
	fingerprints map[string]*fingerprint
	violations   map[string]*violationRecord
	blocks       map[string]time.Time

	now    func() time.Time
	stopCh chan struct{}
}

// NewAbuseGuard creates a guard and starts its background sweep
func NewAbuseGuard(cfg AbuseConfig, normalizer *utils.TextNormalizer, logger *zap.Logger) *AbuseGuard {
	g := &AbuseGuard{
		cfg:          cfg,
		rules:        spamRules(),
		normalizer:   normalizer,
		logger:       logger,
		senders:      make(map[string][]time.Time),
		fingerprints: make(map[string]*fingerprint),
		violations:   make(map[string]*violationRecord),
		blocks:       make(map[string]time.Time),
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}

	// Start background sweep
	go g.startSweepTask()

	return g
}

// Check runs every abuse check in order and returns the first rejection, or
// an accepting result after recording the message for rate accounting
func (g *AbuseGuard) Check(senderID, message, conversationID string) AbuseResult {
	now := g.now()

	// 1. Blocked sender
	if blocked, minutes := g.isBlocked(senderID, now); blocked {
		return AbuseResult{
			IsAbuse:               true,
			Reason:                fmt.Sprintf("IP bloqueada temporalmente. Tiempo restante: %d minutos", minutes),
			Action:                "block",
			Source:                AbuseSourceBlocked,
			BlockMinutesRemaining: minutes,
		}
	}

	// 2. Minimum length
	if len(strings.TrimSpace(message)) < g.cfg.MinMessageLength {
		g.recordViolation(senderID, "mensaje_muy_corto", now)
		return AbuseResult{
			IsAbuse: true,
			Reason:  fmt.Sprintf("Mensaje demasiado corto (minimo %d caracteres)", g.cfg.MinMessageLength),
			Action:  "warn",
			Source:  AbuseSourceLength,
		}
	}

	// 3. Spam patterns
	if desc := g.detectSpam(message); desc != "" {
		g.recordViolation(senderID, "patron_spam", now)
		return AbuseResult{
			IsAbuse: true,
			Reason:  fmt.Sprintf("Patron de spam detectado: %s", desc),
			Action:  "warn",
			Source:  AbuseSourceSpam,
		}
	}

	// 4. Rate limit over the trailing minute
	if count := g.recentCount(senderID, now); count >= g.cfg.MaxMessagesPerMinute {
		g.logger.Warn("Rate limit exceeded",
			zap.String("sender", senderID),
			zap.Int("count", count),
			zap.Int("limit", g.cfg.MaxMessagesPerMinute))
		g.recordViolation(senderID, "rate_limit", now)
		return AbuseResult{
			IsAbuse: true,
			Reason:  fmt.Sprintf("Demasiados mensajes por minuto (maximo %d)", g.cfg.MaxMessagesPerMinute),
			Action:  "warn",
			Source:  AbuseSourceRate,
		}
	}

	// 5. Repeated message within the conversation
	if count := g.bumpFingerprint(conversationID, message, now); count > g.cfg.MaxRepeatedMessages {
		g.recordViolation(senderID, "mensaje_repetido", now)
		return AbuseResult{
			IsAbuse: true,
			Reason:  fmt.Sprintf("Mensaje repetido demasiadas veces (%d/%d)", count, g.cfg.MaxRepeatedMessages),
			Action:  "warn",
			Source:  AbuseSourceRepeated,
		}
	}

	// 6. Accept and record for rate accounting
	g.recordAccepted(senderID, now)
	return AbuseResult{IsAbuse: false}
}

// IsBlocked reports whether a sender is currently blocked and for how long
func (g *AbuseGuard) IsBlocked(senderID string) (bool, int) {
	return g.isBlocked(senderID, g.now())
}

func (g *AbuseGuard) isBlocked(senderID string, now time.Time) (bool, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.blocks[senderID]
	if !ok {
		return false, 0
	}
	if !now.Before(until) {
		// Block expired; clear it along with the violations that caused it
		delete(g.blocks, senderID)
		delete(g.violations, senderID)
		g.logger.Info("Sender block expired", zap.String("sender", senderID))
		return false, 0
	}
	minutes := int(until.Sub(now).Minutes())
	if until.Sub(now)%time.Minute > 0 {
		minutes++
	}
	return true, minutes
}

func (g *AbuseGuard) detectSpam(message string) string {
	normalized := g.normalizer.Normalize(message)
	for _, rule := range g.rules {
		if rule.match(normalized) {
			g.logger.Debug("Spam pattern detected",
				zap.String("message", normalized),
				zap.String("pattern", rule.description))
			return rule.description
		}
	}
	return ""
}

// recentCount prunes the sender's timestamps to the trailing minute and
// returns how many remain
func (g *AbuseGuard) recentCount(senderID string, now time.Time) int {
	cutoff := now.Add(-time.Minute)

	g.mu.Lock()
	defer g.mu.Unlock()

	recent := g.senders[senderID][:0:0]
	for _, ts := range g.senders[senderID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	g.senders[senderID] = recent
	return len(recent)
}

func (g *AbuseGuard) bumpFingerprint(conversationID, message string, now time.Time) int {
	key := conversationID + "_" + g.hashMessage(message)

	g.mu.Lock()
	defer g.mu.Unlock()

	fp, ok := g.fingerprints[key]
	if !ok {
		fp = &fingerprint{}
		g.fingerprints[key] = fp
	}
	fp.count++
	fp.lastSeen = now
	return fp.count
}

func (g *AbuseGuard) recordAccepted(senderID string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.senders[senderID] = append(g.senders[senderID], now)
}

func (g *AbuseGuard) recordViolation(senderID, kind string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.violations[senderID]
	if !ok {
		rec = &violationRecord{}
		g.violations[senderID] = rec
	}
	rec.count++
	rec.stamps = append(rec.stamps, now)

	g.logger.Warn("Violation recorded",
		zap.String("sender", senderID),
		zap.String("kind", kind),
		zap.Int("total", rec.count))

	if rec.count >= g.cfg.ViolationsBeforeBlock {
		until := now.Add(g.cfg.BlockDuration)
		g.blocks[senderID] = until
		g.logger.Warn("Sender blocked",
			zap.String("sender", senderID),
			zap.Time("until", until))
	}
}

// hashMessage fingerprints the normalized message for repeat detection
func (g *AbuseGuard) hashMessage(message string) string {
	normalized := g.normalizer.Normalize(message)
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Sweep prunes stale entries from every map. Each map is rebuilt into a fresh
// snapshot and swapped in, so the lock is held only for in-memory work.
func (g *AbuseGuard) Sweep() {
	now := g.now()
	senderCutoff := now.Add(-g.cfg.SenderRetention)
	fingerprintCutoff := now.Add(-g.cfg.FingerprintTTL)
	violationCutoff := now.Add(-g.cfg.ViolationRetention)

	g.mu.Lock()
	defer g.mu.Unlock()

	senders := make(map[string][]time.Time, len(g.senders))
	for id, stamps := range g.senders {
		var recent []time.Time
		for _, ts := range stamps {
			if ts.After(senderCutoff) {
				recent = append(recent, ts)
			}
		}
		if len(recent) > 0 {
			senders[id] = recent
		}
	}
	g.senders = senders

	// Fingerprints expire on a timestamp rather than the probabilistic
	// pruning the rate limiter used to do, so genuine repeats are never
	// forgotten early.
	fingerprints := make(map[string]*fingerprint, len(g.fingerprints))
	for key, fp := range g.fingerprints {
		if fp.lastSeen.After(fingerprintCutoff) {
			fingerprints[key] = fp
		}
	}
	g.fingerprints = fingerprints

	violations := make(map[string]*violationRecord, len(g.violations))
	for id, rec := range g.violations {
		var recent []time.Time
		for _, ts := range rec.stamps {
			if ts.After(violationCutoff) {
				recent = append(recent, ts)
			}
		}
		if len(recent) > 0 {
			violations[id] = &violationRecord{count: len(recent), stamps: recent}
		}
	}
	g.violations = violations

	blocks := make(map[string]time.Time, len(g.blocks))
	for id, until := range g.blocks {
		if now.Before(until) {
			blocks[id] = until
		}
	}
	g.blocks = blocks

	g.logger.Debug("Abuse guard sweep completed",
		zap.Int("senders", len(g.senders)),
		zap.Int("fingerprints", len(g.fingerprints)),
		zap.Int("violations", len(g.violations)),
		zap.Int("blocks", len(g.blocks)))
}

// startSweepTask runs Sweep on the configured interval until Stop is called
func (g *AbuseGuard) startSweepTask() {
	ticker := time.NewTicker(g.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-g.stopCh:
			return
		}
	}
}

// Stop stops the background sweep task
func (g *AbuseGuard) Stop() {
	close(g.stopCh)
}

// AbuseStats is a point-in-time snapshot of the guard's tracking state
type AbuseStats struct {
	ActiveSenders       int `json:"active_senders"`
	BlockedSenders      int `json:"blocked_senders"`
	TrackedFingerprints int `json:"tracked_fingerprints"`
	ViolatedSenders     int `json:"violated_senders"`
}

// Stats returns current tracking counts
func (g *AbuseGuard) Stats() AbuseStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return AbuseStats{
		ActiveSenders:       len(g.senders),
		BlockedSenders:      len(g.blocks),
		TrackedFingerprints: len(g.fingerprints),
		ViolatedSenders:     len(g.violations),
	}
}
