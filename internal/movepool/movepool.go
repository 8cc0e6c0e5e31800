// Package movepool resolves a candidate's legal moves from a PokeAPI
// compatible data service. Results are cached for a TTL.
package movepool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rosterlab/rosterlab/internal/metrics"
)

const (
	DefaultBaseURL     = "https://pokeapi.co/api/v2"
	DefaultConcurrency = 20
	DefaultCacheTTL    = 24 * time.Hour
)

// Resolver implements contracts.MovepoolResolver.
type Resolver struct {
	baseURL     string
	concurrency int
	ttl         time.Duration
	client      *http.Client
	metrics     *metrics.Recorder
	now         func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

type entry struct {
	moves   []string
	expires time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithConcurrency bounds concurrent move detail requests.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

func WithCacheTTL(d time.Duration) Option {
	return func(r *Resolver) { r.ttl = d }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a resolver against baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	r := &Resolver{
		baseURL:     strings.TrimRight(baseURL, "/"),
		concurrency: DefaultConcurrency,
		ttl:         DefaultCacheTTL,
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
		cache:       make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type pokemonResponse struct {
	Moves []struct {
		Move namedResource `json:"move"`
	} `json:"moves"`
}

type moveResponse struct {
	Name  string `json:"name"`
	Names []struct {
		Name     string        `json:"name"`
		Language namedResource `json:"language"`
	} `json:"names"`
}

// LegalMoves returns the sorted English move names the candidate can learn.
// Move details are fetched with at most the configured concurrency; a
// move whose detail lookup fails is named from its slug instead.
func (r *Resolver) LegalMoves(ctx context.Context, name string) ([]string, error) {
	slug := Slug(name)
	if slug == "" {
		return nil, fmt.Errorf("movepool: empty name")
	}
	if moves, ok := r.cached(slug); ok {
		r.metrics.MovepoolLookup("hit")
		return moves, nil
	}

	var p pokemonResponse
	if err := r.getJSON(ctx, r.baseURL+"/pokemon/"+slug, &p); err != nil {
		r.metrics.MovepoolLookup("error")
		return nil, fmt.Errorf("movepool %s: %w", slug, err)
	}

	names := make([]string, len(p.Moves))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, m := range p.Moves {
		g.Go(func() error {
			names[i] = r.moveName(gctx, m.Move)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		r.metrics.MovepoolLookup("error")
		return nil, ctx.Err()
	}

	moves := dedupeSorted(names)
	r.mu.Lock()
	r.cache[slug] = entry{moves: moves, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()

	r.metrics.MovepoolLookup("miss")
	log.Debug().Str("candidate", slug).Int("moves", len(moves)).Msg("Movepool resolved")
	return moves, nil
}

func (r *Resolver) cached(slug string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[slug]
	if !ok {
		return nil, false
	}
	if r.now().After(e.expires) {
		delete(r.cache, slug)
		return nil, false
	}
	return e.moves, true
}

func (r *Resolver) moveName(ctx context.Context, m namedResource) string {
	if m.URL != "" {
		var mv moveResponse
		if err := r.getJSON(ctx, m.URL, &mv); err == nil {
			for _, n := range mv.Names {
				if n.Language.Name == "en" && n.Name != "" {
					return n.Name
				}
			}
		} else if ctx.Err() == nil {
			log.Debug().Err(err).Str("move", m.Name).Msg("Move detail lookup failed, using slug")
		}
	}
	return titleFromSlug(m.Name)
}

func (r *Resolver) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// Slug converts a display name into the data service's resource key:
// "Great Tusk" -> "great-tusk", "Mr. Mime" -> "mr-mime", "Farfetch'd" -> "farfetchd".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '\'' || r == '’':
		case r == 'é':
			b.WriteRune('e')
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func titleFromSlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func dedupeSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
