package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sightline/sightline/pkg/sightline/schema"
)

// Completer issues a single chat-completion request.
type Completer interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

const resolverSystemPrompt = "You are an expert in energy storage project analysis and regulatory document processing. Extract structured data from LDES project announcements and regulatory filings."

const (
	defaultMaxAttempts = 8
	defaultBackoffBase = 500 * time.Millisecond
	defaultCacheSize   = 100
)

// Resolver fills fields the model and rule extractors missed and
// disambiguates energy-storage terminology via an LLM completion endpoint.
// Identical (text, existing, sector) inputs short-circuit to a cached
// result; the cache is bounded with LRU eviction and safe for concurrent
// use across worker goroutines.
type Resolver struct {
	completer Completer
	schema    *schema.Schema
	cache     *lru.Cache[string, Fields]

	maxAttempts int
	backoffBase time.Duration
}

// ResolverOption adjusts resolver behavior.
type ResolverOption func(*Resolver)

// WithBackoff overrides the retry schedule. Meant for tests and for callers
// with stricter latency budgets.
func WithBackoff(attempts int, base time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.maxAttempts = attempts
		r.backoffBase = base
	}
}

// WithCacheSize bounds the memoization cache.
func WithCacheSize(n int) ResolverOption {
	return func(r *Resolver) {
		cache, err := lru.New[string, Fields](n)
		if err == nil {
			r.cache = cache
		}
	}
}

// NewResolver builds an LLM-assisted extractor.
func NewResolver(completer Completer, s *schema.Schema, opts ...ResolverOption) (*Resolver, error) {
	if completer == nil {
		return nil, fmt.Errorf("llm resolver: nil completer")
	}
	cache, err := lru.New[string, Fields](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("llm resolver: %w", err)
	}
	r := &Resolver{
		completer:   completer,
		schema:      s,
		cache:       cache,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve asks the LLM for fields missing from existing and returns the
// parsed field map. All failure modes degrade to an empty result: malformed
// responses are logged and skipped, transient service errors are retried
// with exponential backoff and jitter, anything else is logged once.
func (r *Resolver) Resolve(ctx context.Context, text string, existing map[string]string, sector string) Fields {
	key := cacheKey(text, existing, sector)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	content, err := r.chatWithRetry(ctx, r.prompt(text, existing, sector))
	if err != nil {
		log.Printf("llm extraction failed (sector %s): %v", sector, err)
		return Fields{}
	}

	fields, err := parseResolverResponse(content, r.schema)
	if err != nil {
		log.Printf("llm returned malformed extraction payload: %v", err)
		return Fields{}
	}

	r.cache.Add(key, fields)
	return fields
}

func (r *Resolver) chatWithRetry(ctx context.Context, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(r.backoffBase, attempt)); err != nil {
				return "", err
			}
		}
		content, err := r.completer.Chat(ctx, resolverSystemPrompt, user)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !isTemporary(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("retries exhausted: %w", lastErr)
}

// isTemporary reports whether err advertises itself as transient
// (rate limits, 5xx, network timeouts).
func isTemporary(err error) bool {
	var tmp interface{ Temporary() bool }
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	return false
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(base)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Resolver) prompt(text string, existing map[string]string, sector string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract LDES project specifications from this energy storage regulatory text.\n")
	fmt.Fprintf(&b, "Focus on these fields if missing from existing data: %s\n\n", strings.Join(r.schema.Fields(), ", "))
	fmt.Fprintf(&b, "Energy sector context: %s\n", sector)
	fmt.Fprintf(&b, "Already extracted: %s\n\n", canonicalExisting(existing))
	b.WriteString(`Key energy storage extraction rules:
1. Capacity: Look for MW (power) and MWh (energy) - may be separate or combined
2. Duration: Hours of storage (sometimes calculated from MW/MWh ratio)
3. Technology: Map variations to standard LDES categories
4. Location: Include state/country for regulatory jurisdiction
5. Timeline: Distinguish announced vs permitted vs construction vs operational dates

`)
	fmt.Fprintf(&b, "Regulatory text: %s\n\n", text)
	b.WriteString(`Return a JSON object mapping each extracted field name to {"value": ..., "confidence": ...} with confidence scores (0-1) based on text clarity and energy storage domain certainty. Return JSON only.`)
	return b.String()
}

// cacheKey is an order-independent serialization of the resolver inputs.
func cacheKey(text string, existing map[string]string, sector string) string {
	return sector + "\x1f" + canonicalExisting(existing) + "\x1f" + text
}

func canonicalExisting(existing map[string]string) string {
	keys := make([]string, 0, len(existing))
	for k := range existing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + existing[k]
	}
	return strings.Join(pairs, "; ")
}

type resolverField struct {
	Value      json.RawMessage `json:"value"`
	Confidence *float64        `json:"confidence"`
}

// parseResolverResponse decodes the {field: {value, confidence}} payload.
// Fields not declared in the schema are dropped; a confidence the model did
// not report defaults to 1.0.
func parseResolverResponse(content string, s *schema.Schema) (Fields, error) {
	content = stripCodeFence(content)

	var payload map[string]resolverField
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, err
	}

	out := make(Fields, len(payload))
	for field, rf := range payload {
		if !s.Has(field) {
			continue
		}
		value := rawToString(rf.Value)
		if value == "" {
			continue
		}
		confidence := 1.0
		if rf.Confidence != nil {
			confidence = *rf.Confidence
		}
		out[field] = Field{Value: value, Confidence: confidence}
	}
	return out, nil
}

// rawToString renders a JSON scalar as its plain string form.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
