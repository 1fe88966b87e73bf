/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package ado

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/adapters/upstream"
	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	apiVersion = "7.1"
	membersTop = 100

	fieldTitle  = "System.Title"
	fieldType   = "System.WorkItemType"
	fieldParent = "System.Parent"
)

// Client talks to the Azure DevOps REST API for team rosters and work items.
type Client struct {
	orgURL       string
	project      string
	expenseField string
	call         *upstream.Caller
	log          zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	pat := cfg.ADOPAT
	auth := func(r *http.Request) { r.SetBasicAuth("", pat) }
	return &Client{
		orgURL:       strings.TrimRight(cfg.ADOOrgURL, "/"),
		project:      cfg.ADOProject,
		expenseField: cfg.ExpenseField,
		call:         upstream.New("ado", cfg.HTTPTimeout, auth, log),
		log:          log,
	}
}

func (c *Client) fields() []string {
	f := []string{fieldTitle, fieldType, fieldParent}
	if c.expenseField != "" {
		f = append(f, c.expenseField)
	}
	return f
}

func (c *Client) apiURL(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-version", apiVersion)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.orgURL + path + "?" + q.Encode()
}

func (c *Client) configured() error {
	if c.orgURL == "" || c.project == "" {
		return &domain.UpstreamError{Source: "ado", Op: "config", Kind: domain.KindNotConfigured, Err: errors.New("empty org url or project")}
	}
	return nil
}

type teamMembersPage struct {
	Value []struct {
		Identity struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			UniqueName  string `json:"uniqueName"`
		} `json:"identity"`
	} `json:"value"`
}

// TeamMembers lists the roster of team, following $top/$skip paging.
func (c *Client) TeamMembers(ctx context.Context, team string) ([]domain.Member, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(team) == "" {
		return nil, errors.New("ado: empty team")
	}
	path := "/_apis/projects/" + url.PathEscape(c.project) + "/teams/" + url.PathEscape(team) + "/members"
	var out []domain.Member
	for skip := 0; ; skip += membersTop {
		q := url.Values{}
		q.Set("$top", strconv.Itoa(membersTop))
		q.Set("$skip", strconv.Itoa(skip))
		var page teamMembersPage
		if err := c.call.DoJSON(ctx, "team members", http.MethodGet, c.apiURL(path, q), nil, &page); err != nil {
			return nil, err
		}
		for _, v := range page.Value {
			out = append(out, domain.Member{ID: v.Identity.ID, DisplayName: v.Identity.DisplayName, UniqueName: v.Identity.UniqueName})
		}
		if len(page.Value) < membersTop {
			break
		}
	}
	c.log.Debug().Str("team", team).Int("members", len(out)).Msg("ado roster fetched")
	return out, nil
}

type workItemDTO struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

type workItemsBatch struct {
	Value []*workItemDTO `json:"value"`
}

// WorkItems fetches ids in one batch request. Ids that do not exist are
// omitted from the result.
func (c *Client) WorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	body := map[string]any{"ids": ids, "fields": c.fields(), "errorPolicy": "omit"}
	var resp workItemsBatch
	u := c.apiURL("/"+url.PathEscape(c.project)+"/_apis/wit/workitemsbatch", nil)
	if err := c.call.DoJSON(ctx, "work items batch", http.MethodPost, u, body, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.WorkItem, 0, len(resp.Value))
	for _, dto := range resp.Value {
		if dto == nil || dto.ID == 0 {
			continue
		}
		out = append(out, c.toWorkItem(*dto))
	}
	return out, nil
}

// WorkItem fetches one item; a missing item is (nil, nil).
func (c *Client) WorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("fields", strings.Join(c.fields(), ","))
	u := c.apiURL(fmt.Sprintf("/%s/_apis/wit/workitems/%d", url.PathEscape(c.project), id), q)
	var dto workItemDTO
	if err := c.call.DoJSON(ctx, "work item", http.MethodGet, u, nil, &dto); err != nil {
		if upstream.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	wi := c.toWorkItem(dto)
	return &wi, nil
}

func (c *Client) toWorkItem(dto workItemDTO) domain.WorkItem {
	wi := domain.WorkItem{ID: dto.ID, Title: str(dto.Fields[fieldTitle]), Type: str(dto.Fields[fieldType])}
	if p, ok := dto.Fields[fieldParent].(float64); ok && p > 0 {
		pid := int(p)
		wi.ParentID = &pid
	}
	if c.expenseField != "" {
		wi.Expense = str(dto.Fields[c.expenseField])
	}
	return wi
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
