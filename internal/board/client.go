// Package board is a client for the Ed Discussion REST API. It exposes the
// few endpoints the search layer needs: the authenticated user with their
// enrolled courses, thread listing and search per course, thread creation,
// and a category tree derived from a thread scan.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
)

// Status is a high level thread filter. It is mapped to the exact query
// parameter the board API expects at request time.
type Status string

const (
	StatusAll         Status = "all"
	StatusUnanswered  Status = "unanswered"
	StatusUnread      Status = "unread"
	StatusResolved    Status = "resolved"
	StatusNewReplies  Status = "new_replies"
	StatusApproved    Status = "approved"
	StatusFavorites   Status = "favorites"
	StatusInstructors Status = "instructors"
)

// statusParam maps a Status to the board API filter parameter.
var statusParam = map[Status]string{
	StatusUnanswered:  "unanswered",
	StatusUnread:      "unread",
	StatusResolved:    "resolved",
	StatusNewReplies:  "new",
	StatusApproved:    "endorsed",
	StatusFavorites:   "starred",
	StatusInstructors: "staff",
}

// ValidStatus reports whether s is one of the known filter values.
func ValidStatus(s Status) bool {
	if s == StatusAll {
		return true
	}
	_, ok := statusParam[s]
	return ok
}

// Course is one course the user is enrolled in.
type Course struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// UserInfo is the authenticated user with their enrolled courses.
type UserInfo struct {
	Name    string
	Email   string
	Courses []Course
}

// Thread is one discussion thread as returned by the board API.
type Thread struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	IsUnread    bool     `json:"is_unread"`
	IsAnswered  bool     `json:"is_answered"`
	IsResolved  bool     `json:"is_resolved"`
	Tags        []string `json:"tags"`
}

// FetchOptions selects which threads of a course to fetch. A non-empty Query
// or Category switches the request to the search endpoint, which sorts by
// relevance the way the board UI does.
type FetchOptions struct {
	CourseID    int
	Limit       int
	Status      Status
	Query       string
	Category    string
	Subcategory string
}

// CategoryTree holds the category names seen in a course and the
// subcategories observed under each.
type CategoryTree struct {
	Categories    []string            `json:"categories"`
	Subcategories map[string][]string `json:"subcategories"`
}

// NewThread is the payload for creating a thread.
type NewThread struct {
	Title       string
	Content     string
	Type        string
	Category    string
	Subcategory string
	IsPrivate   bool
	IsAnonymous bool
}

// CreatedThread is the board's acknowledgement of a created thread.
type CreatedThread struct {
	ID     int    `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// treeCache stores a serialized category tree per course with a TTL.
type treeCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error
}

const (
	deepLinkBase    = "https://edstem.org/eu"
	defaultSearchN  = 5
	treeScanLimit   = 200
	defaultTreeTTL  = 10 * time.Minute
	defaultHTTPWait = 15 * time.Second
)

// Config configures the board client.
type Config struct {
	BaseURL  string
	APIToken string
	// Cache is optional. When set, category trees are cached per course.
	Cache    treeCache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Client talks to the board REST API.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cache    treeCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient creates a board client.
func NewClient(cfg Config) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultTreeTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.APIToken,
		http:     &http.Client{Timeout: defaultHTTPWait},
		cache:    cfg.Cache,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// User fetches the authenticated user and their enrolled courses.
func (c *Client) User(ctx context.Context) (UserInfo, error) {
	var resp struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
		Courses []struct {
			Course Course `json:"course"`
			Role   string `json:"role"`
		} `json:"courses"`
	}
	if err := c.getJSON(ctx, "user", &resp); err != nil {
		return UserInfo{}, err
	}

	info := UserInfo{
		Name:    resp.User.Name,
		Email:   resp.User.Email,
		Courses: make([]Course, 0, len(resp.Courses)),
	}
	for _, e := range resp.Courses {
		info.Courses = append(info.Courses, e.Course)
	}
	return info, nil
}

// FetchThreads fetches threads for a course. Query and category parameters
// route through the search endpoint with relevance sorting.
func (c *Client) FetchThreads(ctx context.Context, opts FetchOptions) ([]Thread, error) {
	if opts.CourseID <= 0 {
		return nil, fmt.Errorf("%w: course id is required", domain.ErrInvalidArgument)
	}

	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if p, ok := statusParam[opts.Status]; ok {
		params.Set("filter", p)
	}

	search := opts.Query != "" || opts.Category != ""
	if opts.Query != "" {
		params.Set("query", opts.Query)
	}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	if opts.Subcategory != "" {
		params.Set("subcategory", opts.Subcategory)
	}
	if search {
		if !params.Has("limit") {
			params.Set("limit", strconv.Itoa(defaultSearchN))
		}
		params.Set("sort", "relevance")
	}

	path := fmt.Sprintf("courses/%d/threads", opts.CourseID)
	if search {
		path += "/search"
	}
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp struct {
		Threads []Thread `json:"threads"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// CategoryTree derives the category tree of a course from a thread scan.
// The board API has no tree endpoint, so the tree is assembled from the
// categories observed on recent threads and cached when a cache is set.
func (c *Client) CategoryTree(ctx context.Context, courseID int) (CategoryTree, error) {
	key := fmt.Sprintf("board:tree:%d", courseID)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var tree CategoryTree
			if err := json.Unmarshal([]byte(raw), &tree); err == nil {
				return tree, nil
			}
		}
	}

	threads, err := c.FetchThreads(ctx, FetchOptions{
		CourseID: courseID,
		Limit:    treeScanLimit,
		Status:   StatusAll,
	})
	if err != nil {
		return CategoryTree{}, err
	}

	tree := CategoryTree{Subcategories: map[string][]string{}}
	seenCat := map[string]bool{}
	seenSub := map[string]bool{}
	for _, t := range threads {
		cat := strings.TrimSpace(t.Category)
		if cat == "" {
			continue
		}
		if !seenCat[cat] {
			seenCat[cat] = true
			tree.Categories = append(tree.Categories, cat)
		}
		sub := strings.TrimSpace(t.Subcategory)
		if sub == "" {
			continue
		}
		subKey := cat + "\x00" + sub
		if !seenSub[subKey] {
			seenSub[subKey] = true
			tree.Subcategories[cat] = append(tree.Subcategories[cat], sub)
		}
	}

	if c.cache != nil {
		if raw, err := json.Marshal(tree); err == nil {
			if err := c.cache.SetWithTTL(ctx, key, string(raw), c.cacheTTL); err != nil {
				c.logger.Warn("category tree cache write failed",
					zap.Int("course_id", courseID), zap.Error(err))
			}
		}
	}
	return tree, nil
}

// PostThread creates a thread in a course.
func (c *Client) PostThread(ctx context.Context, courseID int, t NewThread) (CreatedThread, error) {
	if courseID <= 0 || strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Content) == "" {
		return CreatedThread{}, fmt.Errorf("%w: course id, title and content are required", domain.ErrInvalidArgument)
	}

	typ := t.Type
	if typ == "" {
		typ = "question"
	}
	category := t.Category
	if category == "" {
		category = "General"
	}

	body := map[string]any{
		"thread": map[string]any{
			"type":         typ,
			"title":        t.Title,
			"content":      t.Content,
			"category":     category,
			"subcategory":  t.Subcategory,
			"is_private":   t.IsPrivate,
			"is_anonymous": t.IsAnonymous,
		},
	}

	var resp struct {
		Thread CreatedThread `json:"thread"`
	}
	if err := c.postJSON(ctx, fmt.Sprintf("courses/%d/threads", courseID), body, &resp); err != nil {
		return CreatedThread{}, err
	}
	return resp.Thread, nil
}

// ThreadURL builds the user-facing deep link to a thread.
func ThreadURL(courseID, threadID int) string {
	if courseID <= 0 || threadID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/courses/%d/discussion/%d", deepLinkBase, courseID, threadID)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBoardUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return statusErr(req, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrBoardUnavailable, req.URL.Path, err)
	}
	return nil
}

func statusErr(req *http.Request, status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrUnauthorized, req.Method, req.URL.Path, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrRateLimited, req.Method, req.URL.Path, status)
	default:
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrBoardUnavailable, req.Method, req.URL.Path, status)
	}
}
