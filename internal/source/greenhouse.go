package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"jobmate/ghostjob-service/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1"

// Greenhouse fetches every open job of a set of Greenhouse job boards.
type Greenhouse struct {
	Boards  []string // board tokens, e.g. "supercell"
	BaseURL string   // overridable in tests

	client *http.Client
	log    *slog.Logger
}

// NewGreenhouse constructs a Greenhouse source for boards.
func NewGreenhouse(boards []string, log *slog.Logger) *Greenhouse {
	if log == nil {
		log = slog.Default()
	}
	return &Greenhouse{
		Boards:  boards,
		BaseURL: greenhouseBaseURL,
		client:  newHTTPClient(),
		log:     log,
	}
}

func (g *Greenhouse) Name() string { return "greenhouse" }

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	CompanyName    string             `json:"company_name"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	Content        string             `json:"content"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// Fetch reads every board. A failing board is logged and skipped; Fetch
// only errors when every board failed.
func (g *Greenhouse) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	var (
		records []model.RawRecord
		lastErr error
		failed  int
	)
	for _, board := range g.Boards {
		recs, err := g.fetchBoard(ctx, board)
		if err != nil {
			g.log.Warn("greenhouse board failed", "board", board, "err", err)
			lastErr = err
			failed++
			continue
		}
		records = append(records, recs...)
	}
	if failed > 0 && failed == len(g.Boards) {
		return nil, fmt.Errorf("all %d greenhouse boards failed, last: %w", failed, lastErr)
	}
	return records, nil
}

func (g *Greenhouse) fetchBoard(ctx context.Context, board string) ([]model.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/boards/%s/jobs?content=true", g.BaseURL, url.PathEscape(board))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("greenhouse returned %d: %s", resp.StatusCode, truncateBody(body))
	}

	var apiResp greenhouseResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	records := make([]model.RawRecord, 0, len(apiResp.Jobs))
	for _, j := range apiResp.Jobs {
		company := j.CompanyName
		if company == "" {
			company = board
		}
		rec := model.RawRecord{
			"job_id":         "greenhouse-" + strconv.FormatInt(j.ID, 10),
			"source":         string(model.SourceGreenhouse),
			"source_company": board,
			"company":        company,
			"title":          j.Title,
			"location":       j.Location.Name,
			"description":    HTMLText(j.Content),
			"job_url":        j.AbsoluteURL,
			"active":         true,
		}
		if j.FirstPublished != "" {
			rec["posted_date"] = j.FirstPublished
			rec["created_at"] = j.FirstPublished
		}
		if j.UpdatedAt != "" {
			rec["updated_at"] = j.UpdatedAt
		}
		records = append(records, rec)
	}
	return records, nil
}

// HTMLText returns the visible text of an HTML fragment. Greenhouse sends
// job content entity-escaped, so it is unescaped once before tokenizing.
func HTMLText(fragment string) string {
	if fragment == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(html.UnescapeString(fragment)))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isInvisible(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isInvisible(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isInvisible(tag []byte) bool {
	switch string(tag) {
	case "script", "style":
		return true
	}
	return false
}
