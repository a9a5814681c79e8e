package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// noMatchToken is the verbatim answer the model must give when no listed
// group describes the bill line.
const noMatchToken = "NO_MATCH"

const suggestSystemPrompt = `You are a construction estimator matching bill-of-quantities line items to work groups from a BIM model. Line items are in Russian or English. Respond with exactly one group name from the provided list, copied verbatim, or NO_MATCH if none of the groups describes the same work. No explanations.`

const querySystemPrompt = `You are a BIM assistant extracting structured search specs from natural-language queries about building elements, in Russian or English. Respond ONLY with a JSON object of this shape:
{"category": "...", "level": "...", "filters": [{"param": "...", "op": "...", "value": "..."}], "limit": 0}
Categories (use the exact name, or omit if unclear): Walls, Floors, Roofs, Ceilings, Columns, StructuralFraming, StructuralFoundation, Doors, Windows, Stairs, Ramps, Pipes, Ducts, CableTray, Furniture, MechanicalEquipment, LightingFixtures, ElectricalEquipment, Rooms.
Filter operators: eq, ne, gt, ge, lt, le, contains. Omit any field you cannot determine.`

// Matcher resolves bill-of-quantities line names to semantic-group labels
// and extracts structured element queries, both through an OpenAI-compatible
// chat API.
type Matcher struct {
	client      Client
	cache       *responseCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewMatcher creates an LLM-backed match service.
func NewMatcher(cfg Config, logger *slog.Logger) (*Matcher, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Matcher{
		client:      client,
		cache:       newResponseCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// SuggestGroup asks the model which of the given labels describes the bill
// line. It returns ("", nil) when the model declines or answers with a label
// that was not offered; callers treat that as "no result", not an error.
func (m *Matcher) SuggestGroup(ctx context.Context, name string, labels []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(labels) == 0 {
		return "", nil
	}

	key := suggestCacheKey(name, labels)
	if cached, found := m.cache.get(key); found {
		m.logger.Debug("cache hit for group suggestion", "name", name)
		return cached, nil
	}

	// Rate limiting
	if err := m.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	var raw string

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		response, err := m.client.Complete(ctx, suggestSystemPrompt, buildSuggestPrompt(name, labels))
		if err != nil {
			m.logger.Warn("group suggestion attempt failed",
				"error", err,
				"name", name)
			return err
		}
		raw = response
		return nil
	}, m.retryOpts)

	if err != nil {
		return "", fmt.Errorf("group suggestion failed: %w", err)
	}

	answer := sanitizeLabel(raw)
	if strings.EqualFold(answer, noMatchToken) {
		m.cache.set(key, "")
		return "", nil
	}

	// The answer must be one of the offered labels. A case-insensitive hit
	// is canonicalized; anything else counts as a decline.
	resolved := ""
	for _, label := range labels {
		if answer == label {
			resolved = label
			break
		}
		if strings.EqualFold(answer, label) {
			resolved = label
		}
	}

	if resolved == "" {
		m.logger.Debug("model answered with unlisted label",
			"name", name,
			"answer", answer)
		m.cache.set(key, "")
		return "", nil
	}

	m.logger.Info("group suggested",
		"name", name,
		"label", resolved)

	m.cache.set(key, resolved)
	return resolved, nil
}

// ExtractQuery turns a natural-language element query into a QuerySpec.
func (m *Matcher) ExtractQuery(ctx context.Context, text string) (model.QuerySpec, error) {
	var spec model.QuerySpec

	text = strings.TrimSpace(text)
	if text == "" {
		return spec, fmt.Errorf("empty query text")
	}

	key := "query\x1f" + strings.ToLower(text)
	if cached, found := m.cache.get(key); found {
		if err := json.Unmarshal([]byte(cached), &spec); err == nil {
			return spec, nil
		}
	}

	// Rate limiting
	if err := m.rateLimiter.wait(ctx); err != nil {
		return spec, fmt.Errorf("rate limit error: %w", err)
	}

	var raw string

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		response, err := m.client.Complete(ctx, querySystemPrompt, "Query: "+text)
		if err != nil {
			m.logger.Warn("query extraction attempt failed", "error", err)
			return err
		}
		raw = response
		return nil
	}, m.retryOpts)

	if err != nil {
		return spec, fmt.Errorf("query extraction failed: %w", err)
	}

	cleaned := cleanMarkdownWrapper(raw)
	if err := json.Unmarshal([]byte(cleaned), &spec); err != nil {
		return model.QuerySpec{}, fmt.Errorf("failed to parse extracted query: %w", err)
	}

	m.cache.set(key, cleaned)
	return spec, nil
}

// Close stops background goroutines and cleans up resources.
func (m *Matcher) Close() error {
	if m.cache != nil {
		m.cache.Close()
	}
	if m.rateLimiter != nil {
		m.rateLimiter.Close()
	}
	return nil
}

func suggestCacheKey(name string, labels []string) string {
	return strings.ToLower(name) + "\x1f" + strings.Join(labels, "\x1f")
}

func buildSuggestPrompt(name string, labels []string) string {
	var b strings.Builder
	b.WriteString("Work groups:\n")
	for _, label := range labels {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nBill line: %s\n\nAnswer with one group name from the list or %s.", name, noMatchToken)
	return b.String()
}

// sanitizeLabel reduces a chat answer to a bare label: first line only,
// stripped of wrapping quotes and a trailing period.
func sanitizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
