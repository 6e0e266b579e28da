package search

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/board"
)

const (
	snippetLimit = 200
	defaultLimit = 5
)

// NormalizedPost is the stable post shape exposed to callers regardless of
// the board's native schema.
type NormalizedPost struct {
	PostID          string   `json:"postId"`
	Title           string   `json:"title"`
	Snippet         string   `json:"snippet"`
	ContentMarkdown string   `json:"contentMarkdown"`
	Author          string   `json:"author"`
	CreatedAt       string   `json:"createdAt"`
	Status          string   `json:"status"`
	Course          string   `json:"course"`
	Tags            []string `json:"tags"`
	URL             string   `json:"url"`
}

// Filters echoes the filters that were actually applied to a search.
type Filters struct {
	Course string `json:"course,omitempty"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Result is the outcome of one search. Err carries expected, user-facing
// failures as data; infrastructure faults never reach this shape.
type Result struct {
	OK      bool             `json:"ok"`
	Posts   []NormalizedPost `json:"posts"`
	Filters Filters          `json:"filters"`
	Err     *Error           `json:"error,omitempty"`
}

// boardAPI is the slice of the board client the service needs.
type boardAPI interface {
	User(ctx context.Context) (board.UserInfo, error)
	FetchThreads(ctx context.Context, opts board.FetchOptions) ([]board.Thread, error)
}

// Service runs the full natural-language search flow: parse, resolve,
// refine, fetch, normalize.
type Service struct {
	board   boardAPI
	builder *Builder
	logger  *zap.Logger
}

// NewService creates a search service.
func NewService(b boardAPI, builder *Builder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{board: b, builder: builder, logger: logger}
}

// Search answers a free-text board search. A limit > 0 overrides whatever
// the refinement decided. All expected failures come back tagged in the
// result rather than as an error.
func (s *Service) Search(ctx context.Context, query string, limit int) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return failed(&Error{Code: CodeInvalidQuery, Message: "missing query"}, Filters{})
	}

	user, err := s.board.User(ctx)
	if err != nil {
		s.logger.Warn("board user fetch failed", zap.Error(err))
		return failed(classify(err), Filters{})
	}

	parsed := Parse(query)

	req, err := s.builder.Build(ctx, parsed, user.Courses)
	if err != nil {
		tagged, ok := err.(*Error)
		if !ok {
			tagged = classify(err)
		}
		return failed(tagged, Filters{Status: string(board.StatusAll), Limit: orDefault(limit)})
	}

	if limit > 0 {
		req.FetchOptions.Limit = limit
	}

	filters := Filters{
		Course: courseLabel(req.ResolvedCourse),
		Status: string(req.FetchOptions.Status),
		Limit:  orDefault(req.FetchOptions.Limit),
	}

	threads, err := s.board.FetchThreads(ctx, req.FetchOptions)
	if err != nil {
		s.logger.Warn("board thread fetch failed",
			zap.Int("course_id", req.CourseID), zap.Error(err))
		return failed(classify(err), filters)
	}

	if len(threads) == 0 {
		return failed(&Error{Code: CodeNoResults, Message: "no posts found for these filters"}, filters)
	}

	s.logger.Info("board search completed",
		zap.Int("course_id", req.CourseID),
		zap.Int("posts", len(threads)),
	)
	return Result{
		OK:      true,
		Posts:   NormalizePosts(threads, req.ResolvedCourse),
		Filters: filters,
	}
}

// NormalizePosts converts board threads into the stable post shape, with a
// bounded snippet and a user-facing deep link.
func NormalizePosts(threads []board.Thread, course board.Course) []NormalizedPost {
	posts := make([]NormalizedPost, 0, len(threads))
	for _, t := range threads {
		base := t.Content
		if base == "" {
			base = t.Title
		}
		snippet := base
		if r := []rune(base); len(r) > snippetLimit {
			snippet = string(r[:snippetLimit]) + "…"
		}

		var statusPieces []string
		if t.IsUnread {
			statusPieces = append(statusPieces, "unread")
		}
		if t.IsAnswered {
			statusPieces = append(statusPieces, "answered")
		}
		if t.IsResolved {
			statusPieces = append(statusPieces, "resolved")
		}
		status := strings.Join(statusPieces, ", ")
		if status == "" {
			status = "unknown"
		}

		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}

		posts = append(posts, NormalizedPost{
			PostID:          strconv.Itoa(t.ID),
			Title:           t.Title,
			Snippet:         snippet,
			ContentMarkdown: t.Content,
			CreatedAt:       t.CreatedAt,
			Status:          status,
			Course:          courseLabel(course),
			Tags:            tags,
			URL:             board.ThreadURL(course.ID, t.ID),
		})
	}
	return posts
}

func courseLabel(c board.Course) string {
	if c.Code != "" {
		return c.Code
	}
	if c.Name != "" {
		return c.Name
	}
	return strconv.Itoa(c.ID)
}

func failed(e *Error, f Filters) Result {
	return Result{Posts: []NormalizedPost{}, Filters: f, Err: e}
}

func orDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	return defaultLimit
}
