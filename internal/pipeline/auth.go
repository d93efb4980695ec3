package pipeline

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource supplies the current bearer token.
type TokenSource interface {
	AccessToken() (string, bool)
}

// PublicEndpoints is the allow-list of URLs that never carry credentials.
type PublicEndpoints struct {
	entries []*url.URL
}

// DefaultPublicEndpoints returns the login, register, branch listing and
// available time slot endpoints for the given base URLs.
func DefaultPublicEndpoints(authURL, apiURL string) (*PublicEndpoints, error) {
	return NewPublicEndpoints(
		authURL+"/login",
		authURL+"/register",
		apiURL+"/branches",
		apiURL+"/timeslots/available",
	)
}

// NewPublicEndpoints parses every raw URL into the allow-list.
func NewPublicEndpoints(raw ...string) (*PublicEndpoints, error) {
	p := &PublicEndpoints{}
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("pipeline: parse public endpoint %q: %w", r, err)
		}
		u.Path = strings.TrimSuffix(u.Path, "/")
		p.entries = append(p.entries, u)
	}
	return p, nil
}

// Match reports whether u is covered by an entry: same host and a path equal
// to the entry or nested below it.
func (p *PublicEndpoints) Match(u *url.URL) bool {
	if p == nil || u == nil {
		return false
	}
	for _, e := range p.entries {
		if e.Host != "" && !strings.EqualFold(e.Host, u.Host) {
			continue
		}
		if u.Path == e.Path || strings.HasPrefix(u.Path, e.Path+"/") {
			return true
		}
	}
	return false
}

// Auth attaches "Authorization: Bearer <token>" to every non-public request
// when a token is held. The caller's request is never mutated.
func Auth(tokens TokenSource, public *PublicEndpoints) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if tokens == nil || public.Match(req.URL) {
				return next.Do(req)
			}
			token, ok := tokens.AccessToken()
			if !ok {
				return next.Do(req)
			}
			authed := req.Clone(req.Context())
			authed.Header.Set("Authorization", "Bearer "+token)
			return next.Do(authed)
		})
	}
}
