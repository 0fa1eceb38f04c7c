package release

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/flanksource/commons/logger"
	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/auth"
	pkghttp "github.com/cyber-syntax/my-unicorn/pkg/http"
	"github.com/cyber-syntax/my-unicorn/pkg/types"
	"github.com/cyber-syntax/my-unicorn/pkg/utils"
)

// Client is the shared GitHub release client: one underlying *http.Client
// with connection pooling for the lifetime of a process invocation,
// following the teacher's pkg/manager/github client-singleton idiom but
// scoped to a single composition root rather than a package-level
// sync.Once (spec 9's explicit instruction to avoid module singletons).
type Client struct {
	gh         *github.Client
	http       *http.Client
	authMgr    *auth.Manager
	retries    int
	userAgent  string
}

// NewClient builds a Client on top of the teacher's pkg/http.GetHttpClient
// (commons/http with request/response logging), layering the auth
// manager's header/rate-limit hooks in front of it via a RoundTripper.
func NewClient(timeout time.Duration, retries int, authMgr *auth.Manager, userAgent string) *Client {
	base := pkghttp.GetHttpClient(pkghttp.WithTimeout(timeout))
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &authRoundTripper{authMgr: authMgr, userAgent: userAgent, inner: base.Transport},
	}
	return &Client{
		gh:        github.NewClient(httpClient),
		http:      httpClient,
		authMgr:   authMgr,
		retries:   retries,
		userAgent: userAgent,
	}
}

type authRoundTripper struct {
	authMgr   *auth.Manager
	userAgent string
	inner     http.RoundTripper
}

func (r *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	r.authMgr.ApplyHeaders(req, r.userAgent)
	resp, err := r.inner.RoundTrip(req)
	if err == nil && resp != nil {
		r.authMgr.ObserveResponse(resp.Header)
	}
	return resp, err
}

// withRetry retries op on 5xx/429/network errors with exponential
// backoff (initial 1s, factor 2, max 30s), honoring Retry-After when the
// failure carries one, per spec 4.5.
func (c *Client) withRetry(ctx context.Context, owner, repo string, op func() (*github.Response, error)) error {
	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt <= c.retries; attempt++ {
		resp, err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		retryable, retryAfter := classifyError(resp, err)
		if !retryable || attempt == c.retries {
			break
		}
		wait := backoff
		if retryAfter > 0 {
			wait = retryAfter
		}
		logger.Debugf("retrying %s/%s after %s (attempt %d/%d): %v", owner, repo, wait, attempt+1, c.retries, err)
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.KindNetwork, owner+"/"+repo, ctx.Err())
		case <-time.After(wait):
		}
		backoff = time.Duration(math.Min(float64(backoff*2), float64(30*time.Second)))
	}
	return classifyFinal(owner, repo, lastErr)
}

func classifyError(resp *github.Response, err error) (retryable bool, retryAfter time.Duration) {
	if resp != nil && resp.Response != nil {
		sc := resp.Response.StatusCode
		if sc == http.StatusTooManyRequests {
			if ra := resp.Response.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			return true, retryAfter
		}
		if sc >= 500 {
			return true, 0
		}
		return false, 0
	}
	// No HTTP response at all: treat as a network error, retryable.
	return true, 0
}

func classifyFinal(owner, repo string, err error) error {
	if err == nil {
		return nil
	}
	if ghErr, ok := err.(*github.ErrorResponse); ok && ghErr.Response != nil {
		if ghErr.Response.StatusCode == http.StatusNotFound {
			return apperrors.New(apperrors.KindHTTP, owner+"/"+repo, "404 not found")
		}
		if ghErr.Response.StatusCode == http.StatusTooManyRequests {
			return apperrors.Wrap(apperrors.KindRateLimited, owner+"/"+repo, err)
		}
		return apperrors.Wrap(apperrors.KindHTTP, owner+"/"+repo, err)
	}
	return apperrors.Wrap(apperrors.KindNetwork, owner+"/"+repo, err)
}

// FetchLatest calls GET /repos/{owner}/{repo}/releases/latest.
func (c *Client) FetchLatest(ctx context.Context, owner, repo string) (*github.RepositoryRelease, error) {
	var rel *github.RepositoryRelease
	err := c.withRetry(ctx, owner, repo, func() (*github.Response, error) {
		r, resp, err := c.gh.Repositories.GetLatestRelease(ctx, owner, repo)
		rel = r
		return resp, err
	})
	return rel, err
}

// FetchAll calls GET /repos/{owner}/{repo}/releases and returns the
// first page, newest-first as GitHub already orders it.
func (c *Client) FetchAll(ctx context.Context, owner, repo string) ([]*github.RepositoryRelease, error) {
	var rels []*github.RepositoryRelease
	err := c.withRetry(ctx, owner, repo, func() (*github.Response, error) {
		r, resp, err := c.gh.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 30})
		rels = r
		return resp, err
	})
	return rels, err
}

// FetchRelease implements the fetch strategy of spec 4.5: prerelease
// catalogs list all releases and pick the newest by PublishedAt (1 API
// call); stable catalogs hit /releases/latest and fall back to the full
// list on 404 (up to 2 API calls, the documented open question in spec 9).
func (c *Client) FetchRelease(ctx context.Context, owner, repo string, prerelease bool) (*github.RepositoryRelease, error) {
	if prerelease {
		rels, err := c.FetchAll(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		return newestByPublished(rels, owner, repo)
	}

	rel, err := c.FetchLatest(ctx, owner, repo)
	if err == nil {
		return rel, nil
	}
	if !apperrors.OfKind(err, apperrors.KindHTTP) {
		return nil, err
	}
	// Fallback path: /releases/latest 404'd (prerelease-only repo
	// accessed as stable). Try the full list and take index 0.
	rels, ferr := c.FetchAll(ctx, owner, repo)
	if ferr != nil {
		return nil, ferr
	}
	if len(rels) == 0 {
		return nil, apperrors.New(apperrors.KindHTTP, owner+"/"+repo, "no releases found")
	}
	return rels[0], nil
}

func newestByPublished(rels []*github.RepositoryRelease, owner, repo string) (*github.RepositoryRelease, error) {
	if len(rels) == 0 {
		return nil, apperrors.New(apperrors.KindHTTP, owner+"/"+repo, "no releases found")
	}
	best := rels[0]
	for _, r := range rels[1:] {
		if r.GetPublishedAt().After(best.GetPublishedAt().Time) {
			best = r
		}
	}
	return best, nil
}

// ToReleaseData converts a go-github release into this system's
// persisted shape, BEFORE asset filtering (the caller is responsible
// for calling asset.Filter and replacing Assets with the filtered slice
// before handing this to the cache, per spec 4.5's "cache writes occur
// after successful asset-filtering").
func ToReleaseData(owner, repo string, rel *github.RepositoryRelease) types.ReleaseData {
	data := types.ReleaseData{
		Owner:           owner,
		Repo:            repo,
		Version:         utils.Normalize(rel.GetTagName()),
		Prerelease:      rel.GetPrerelease(),
		OriginalTagName: rel.GetTagName(),
	}
	for _, a := range rel.Assets {
		data.Assets = append(data.Assets, types.ReleaseAsset{
			Name:               a.GetName(),
			Digest:             a.GetDigest(),
			Size:               int64(a.GetSize()),
			BrowserDownloadURL: a.GetBrowserDownloadURL(),
			ContentType:        a.GetContentType(),
		})
	}
	return data
}
