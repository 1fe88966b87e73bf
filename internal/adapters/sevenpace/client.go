// Package sevenpace reads users and worklogs from 7pace Timetracker.
package sevenpace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/adapters/upstream"
	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	DefaultPageSize = 500
	DefaultMaxPages = 50
)

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05"}

type Client struct {
	baseURL    string
	apiVersion string
	pageSize   int
	maxPages   int
	call       *upstream.Caller
	log        zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	token := cfg.SevenPaceToken
	auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	c := &Client{
		baseURL:    strings.TrimRight(cfg.SevenPaceBaseURL, "/"),
		apiVersion: cfg.SevenPaceAPIVersion,
		pageSize:   cfg.SevenPacePageSize,
		maxPages:   cfg.SevenPaceMaxPages,
		call:       upstream.New("7pace", cfg.HTTPTimeout, auth, log),
		log:        log,
	}
	if token == "" {
		c.baseURL = ""
	}
	if c.apiVersion == "" {
		c.apiVersion = "3.2"
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	return c
}

func (c *Client) configured() error {
	if c.baseURL == "" {
		return &domain.UpstreamError{Source: "7pace", Op: "config", Kind: domain.KindNotConfigured, Err: errors.New("empty base url or token")}
	}
	return nil
}

type usersResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		UniqueName string `json:"uniqueName"`
	} `json:"data"`
}

// Users returns the tracker's user directory.
func (c *Client) Users(ctx context.Context) ([]domain.TrackerUser, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/api/rest/users?api-version=%s", c.baseURL, url.QueryEscape(c.apiVersion))
	var resp usersResponse
	if err := c.call.DoJSON(ctx, "users", http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.TrackerUser, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, domain.TrackerUser{ID: d.ID, UniqueName: d.UniqueName, DisplayName: d.Name})
	}
	return out, nil
}

type worklogRow struct {
	ID           string  `json:"Id"`
	Timestamp    string  `json:"Timestamp"`
	PeriodLength float64 `json:"PeriodLength"`
	WorkItemID   *int    `json:"WorkItemId"`
	User         struct {
		ID         string `json:"Id"`
		Name       string `json:"Name"`
		UniqueName string `json:"UniqueName"`
	} `json:"User"`
}

type worklogPage struct {
	Value    []worklogRow `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// Worklogs pages through one user's worklogs in [from, to). It stops after
// maxPages pages and reports HitSafetyCap when more data remained.
func (c *Client) Worklogs(ctx context.Context, userID string, from, to time.Time) (domain.WorklogBatch, error) {
	var out domain.WorklogBatch
	if err := c.configured(); err != nil {
		return out, err
	}
	next := c.worklogsURL(userID, from, to, 0)
	for next != "" {
		if out.Pages == c.maxPages {
			out.HitSafetyCap = true
			c.log.Debug().Str("user", userID).Int("pages", out.Pages).Msg("7pace pagination stopped at cap")
			break
		}
		var page worklogPage
		if err := c.call.DoJSON(ctx, "worklogs", http.MethodGet, next, nil, &page); err != nil {
			return domain.WorklogBatch{}, err
		}
		out.Pages++
		for _, row := range page.Value {
			e, err := toEntry(row)
			if err != nil {
				return domain.WorklogBatch{}, &domain.UpstreamError{Source: "7pace", Op: "worklogs", Kind: domain.KindGeneric, Err: err}
			}
			out.Entries = append(out.Entries, e)
		}
		switch {
		case page.NextLink != "":
			next = page.NextLink
		case len(page.Value) >= c.pageSize:
			next = c.worklogsURL(userID, from, to, out.Pages*c.pageSize)
		default:
			next = ""
		}
	}
	return out, nil
}

func (c *Client) worklogsURL(userID string, from, to time.Time, skip int) string {
	filter := fmt.Sprintf("User/Id eq %s and Timestamp ge %s and Timestamp lt %s",
		userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	q := url.Values{}
	q.Set("$filter", filter)
	q.Set("$top", strconv.Itoa(c.pageSize))
	if skip > 0 {
		q.Set("$skip", strconv.Itoa(skip))
	}
	return fmt.Sprintf("%s/api/odata/v%s/workLogsOnly?%s", c.baseURL, c.apiVersion, q.Encode())
}

func toEntry(row worklogRow) (domain.TimeEntry, error) {
	ts, err := parseTimestamp(row.Timestamp)
	if err != nil {
		return domain.TimeEntry{}, fmt.Errorf("worklog %s: %w", row.ID, err)
	}
	return domain.TimeEntry{
		ID:         row.ID,
		UserID:     row.User.ID,
		UniqueName: row.User.UniqueName,
		WorkItemID: row.WorkItemID,
		Hours:      row.PeriodLength / 3600,
		Timestamp:  ts,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
