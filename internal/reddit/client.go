package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.reddit.com"

// StatusError is a non-404 HTTP failure; callers treat it as transient.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit: http %d", e.Code)
}

// Client talks to the Reddit JSON API.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a client. An empty baseURL selects the public API.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Newest returns the user's single most recent comment, or nil when the
// account exists but has no comments. ErrNotFound means the account cannot
// be resolved.
func (c *Client) Newest(ctx context.Context, user string) (*Post, error) {
	body, err := c.get(ctx, "/user/"+url.PathEscape(user)+"/comments.json", url.Values{
		"limit": {"1"},
	})
	if err != nil {
		return nil, err
	}

	posts, _, err := decodeListing(body, 0)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// Before returns up to limit comments newer than the cursor, newest first.
func (c *Client) Before(ctx context.Context, user, cursor string, limit int) ([]Post, error) {
	return c.listing(ctx, user, url.Values{
		"before": {"t1_" + cursor},
	}, limit)
}

// After returns up to limit comments older than the cursor, newest first.
func (c *Client) After(ctx context.Context, user, cursor string, limit int) ([]Post, error) {
	return c.listing(ctx, user, url.Values{
		"after": {"t1_" + cursor},
	}, limit)
}

func (c *Client) listing(ctx context.Context, user string, params url.Values, limit int) ([]Post, error) {
	if limit < 1 || limit > MaxBatch {
		return nil, fmt.Errorf("reddit: batch size %d out of range 1..%d", limit, MaxBatch)
	}
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/user/"+url.PathEscape(user)+"/comments.json", params)
	if err != nil {
		return nil, err
	}

	posts, _, err := decodeListing(body, 0)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Detail fetches one comment with its direct replies, resolving "load more"
// stubs. ErrNotFound means the comment is gone.
func (c *Client) Detail(ctx context.Context, id string) (*Post, error) {
	body, err := c.get(ctx, "/api/info.json", url.Values{
		"id": {"t1_" + id},
	})
	if err != nil {
		return nil, err
	}

	posts, _, err := decodeListing(body, 0)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	post := posts[0]

	if post.Permalink == "" {
		return &post, nil
	}

	replies, moreIDs, err := c.commentTree(ctx, post.Permalink, post.ID)
	if err != nil {
		return nil, err
	}

	if len(moreIDs) > 0 {
		extra, err := c.moreChildren(ctx, post.LinkID, moreIDs)
		if err != nil {
			return nil, err
		}
		replies = append(replies, extra...)
	}

	post.Replies = replies
	return &post, nil
}

// commentTree fetches the permalink page for a comment and returns its
// direct replies plus any unresolved "load more" ids.
func (c *Client) commentTree(ctx context.Context, permalink, id string) ([]Post, []string, error) {
	body, err := c.get(ctx, strings.TrimSuffix(permalink, "/")+".json", url.Values{
		"limit": {"500"},
	})
	if err != nil {
		return nil, nil, err
	}

	// The permalink page is a two-element array: the link listing and the
	// comment listing rooted at our comment.
	var page []json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, nil, fmt.Errorf("decoding comment page: %w", err)
	}
	if len(page) < 2 {
		return nil, nil, fmt.Errorf("comment page has %d listings, want 2", len(page))
	}

	var envelope thing
	if err := json.Unmarshal(page[1], &envelope); err != nil {
		return nil, nil, fmt.Errorf("decoding comment listing: %w", err)
	}
	var l listingData
	if err := json.Unmarshal(envelope.Data, &l); err != nil {
		return nil, nil, fmt.Errorf("decoding comment listing data: %w", err)
	}

	for _, child := range l.Children {
		if child.Kind != "t1" {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			return nil, nil, fmt.Errorf("decoding comment node: %w", err)
		}
		if cd.ID != id {
			continue
		}
		if len(cd.Replies) == 0 || cd.Replies[0] != '{' {
			return nil, nil, nil
		}
		return decodeListingRaw(cd.Replies)
	}
	return nil, nil, ErrNotFound
}

func decodeListingRaw(raw json.RawMessage) ([]Post, []string, error) {
	return decodeListing(raw, maxReplyDepth)
}

// moreChildren resolves "load more" stubs into flat comments.
func (c *Client) moreChildren(ctx context.Context, linkID string, ids []string) ([]Post, error) {
	body, err := c.get(ctx, "/api/morechildren.json", url.Values{
		"api_type": {"json"},
		"link_id":  {linkID},
		"children": {strings.Join(ids, ",")},
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		JSON struct {
			Data struct {
				Things []thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding morechildren: %w", err)
	}

	posts, _, err := decodeChildren(result.JSON.Data.Things, 0)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("raw_json", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}
