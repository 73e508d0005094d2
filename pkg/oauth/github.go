package oauth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/bizhub/socialauth/pkg/auth"
)

const githubAPIURL = "https://api.github.com"

// GitHubResolver reads /user and /user/emails. Only verified addresses are
// used: the primary one if verified, otherwise the first verified address.
// An account without a verified address yields an identity with no email.
type GitHubResolver struct {
	endpoint oauth2.Endpoint
	apiURL   string
}

// GitHubOption configures a GitHubResolver.
type GitHubOption func(*GitHubResolver)

// WithGitHubEndpoint overrides the OAuth endpoints.
func WithGitHubEndpoint(e oauth2.Endpoint) GitHubOption {
	return func(r *GitHubResolver) { r.endpoint = e }
}

// WithGitHubAPIURL points the resolver at a GitHub Enterprise or test API.
func WithGitHubAPIURL(u string) GitHubOption {
	return func(r *GitHubResolver) { r.apiURL = strings.TrimRight(u, "/") }
}

// NewGitHubResolver builds a resolver for github.com.
func NewGitHubResolver(opts ...GitHubOption) *GitHubResolver {
	r := &GitHubResolver{endpoint: github.Endpoint, apiURL: githubAPIURL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GitHubResolver) Endpoint() oauth2.Endpoint { return r.endpoint }

func (r *GitHubResolver) DefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

var githubHeaders = map[string]string{
	"Accept":               "application/vnd.github+json",
	"X-GitHub-Api-Version": "2022-11-28",
}

func (r *GitHubResolver) Resolve(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (auth.SocialIdentity, error) {
	hc := conf.Client(ctx, tok)

	var u githubUser
	if err := getJSON(ctx, hc, r.apiURL+"/user", githubHeaders, &u); err != nil {
		return auth.SocialIdentity{}, fmt.Errorf("%w: github user: %w", ErrProfileFailed, err)
	}
	if u.ID == 0 {
		return auth.SocialIdentity{}, fmt.Errorf("%w: github user without id", ErrProfileFailed)
	}

	var emails []githubEmail
	if err := getJSON(ctx, hc, r.apiURL+"/user/emails", githubHeaders, &emails); err != nil {
		return auth.SocialIdentity{}, fmt.Errorf("%w: github emails: %w", ErrProfileFailed, err)
	}

	email := pickGitHubEmail(emails)
	return auth.SocialIdentity{
		ExternalID:    strconv.FormatInt(u.ID, 10),
		Email:         email,
		EmailVerified: email != "",
		Name:          u.Name,
		Nickname:      u.Login,
		AvatarURL:     u.AvatarURL,
	}, nil
}

func pickGitHubEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

var _ ProfileResolver = (*GitHubResolver)(nil)
