package reddit

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxReplyDepth bounds nested reply decoding so a pathological tree cannot
// recurse without limit.
const maxReplyDepth = 8

// thing is the kind/data envelope Reddit wraps every object in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
}

type commentData struct {
	ID              string          `json:"id"`
	Author          string          `json:"author"`
	Body            string          `json:"body"`
	CreatedUTC      float64         `json:"created_utc"`
	Subreddit       string          `json:"subreddit"`
	SubredditID     string          `json:"subreddit_id"`
	AuthorFlairText *string         `json:"author_flair_text"`
	Score           int             `json:"score"`
	Permalink       string          `json:"permalink"`
	LinkID          string          `json:"link_id"`
	Replies         json.RawMessage `json:"replies"`
}

type moreData struct {
	Children []string `json:"children"`
}

// decodeListing decodes a Listing envelope into posts plus the ids of any
// "load more" stubs found among the children.
func decodeListing(raw []byte, depth int) ([]Post, []string, error) {
	var t thing
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, nil, fmt.Errorf("decoding listing envelope: %w", err)
	}
	if t.Kind != "Listing" {
		return nil, nil, fmt.Errorf("expected Listing, got kind %q", t.Kind)
	}

	var l listingData
	if err := json.Unmarshal(t.Data, &l); err != nil {
		return nil, nil, fmt.Errorf("decoding listing data: %w", err)
	}
	return decodeChildren(l.Children, depth)
}

func decodeChildren(children []thing, depth int) ([]Post, []string, error) {
	var posts []Post
	var more []string
	for _, c := range children {
		switch c.Kind {
		case "t1":
			p, err := decodeComment(c.Data, depth)
			if err != nil {
				return nil, nil, err
			}
			posts = append(posts, p)
		case "more":
			var m moreData
			if err := json.Unmarshal(c.Data, &m); err != nil {
				return nil, nil, fmt.Errorf("decoding more stub: %w", err)
			}
			more = append(more, m.Children...)
		}
	}
	return posts, more, nil
}

func decodeComment(raw json.RawMessage, depth int) (Post, error) {
	var c commentData
	if err := json.Unmarshal(raw, &c); err != nil {
		return Post{}, fmt.Errorf("decoding comment: %w", err)
	}

	p := Post{
		ID:          c.ID,
		Author:      c.Author,
		Body:        c.Body,
		Created:     time.Unix(int64(c.CreatedUTC), 0).UTC(),
		Subreddit:   c.Subreddit,
		SubredditID: c.SubredditID,
		FlairText:   c.AuthorFlairText,
		Score:       c.Score,
		Permalink:   c.Permalink,
		LinkID:      c.LinkID,
	}

	// Replies is "" for leaf comments and a Listing envelope otherwise.
	if depth > 0 && len(c.Replies) > 0 && c.Replies[0] == '{' {
		replies, _, err := decodeListing(c.Replies, depth-1)
		if err != nil {
			return Post{}, fmt.Errorf("decoding replies of %s: %w", c.ID, err)
		}
		p.Replies = replies
	}
	return p, nil
}
