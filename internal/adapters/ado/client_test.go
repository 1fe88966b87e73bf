package ado

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Config{ADOOrgURL: srv.URL, ADOProject: "Platform", ADOPAT: "pat", ExpenseField: "Custom.ExpenseType", HTTPTimeout: 2 * time.Second}
	c := NewClient(cfg, zerolog.Nop())
	c.call.Backoff = time.Millisecond
	return c
}

func TestTeamMembers_Pages(t *testing.T) {
	var skips []string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_apis/projects/Platform/teams/Core Team/members", r.URL.Path)
		assert.Equal(t, "7.1", r.URL.Query().Get("api-version"))
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(":pat")), r.Header.Get("Authorization"))
		skip := r.URL.Query().Get("$skip")
		skips = append(skips, skip)
		n := membersTop
		if skip != "0" {
			n = 2
		}
		var vals []map[string]any
		for i := 0; i < n; i++ {
			vals = append(vals, map[string]any{"identity": map[string]any{
				"id": fmt.Sprintf("id-%s-%d", skip, i), "displayName": "M", "uniqueName": fmt.Sprintf("m%s-%d@corp.com", skip, i),
			}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": vals, "count": n})
	}))

	members, err := c.TeamMembers(context.Background(), "Core Team")
	require.NoError(t, err)
	assert.Len(t, members, membersTop+2)
	assert.Equal(t, []string{"0", strconv.Itoa(membersTop)}, skips)
	assert.Equal(t, "id-0-0", members[0].ID)
}

func TestWorkItems_BatchSkipsOmitted(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Platform/_apis/wit/workitemsbatch", r.URL.Path)
		var body struct {
			IDs         []int    `json:"ids"`
			Fields      []string `json:"fields"`
			ErrorPolicy string   `json:"errorPolicy"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int{101, 404, 100}, body.IDs)
		assert.Contains(t, body.Fields, "Custom.ExpenseType")
		assert.Equal(t, "omit", body.ErrorPolicy)
		_, _ = io.WriteString(w, `{"count":3,"value":[
			{"id":101,"fields":{"System.Title":"Build cart","System.WorkItemType":"Task","System.Parent":100}},
			null,
			{"id":100,"fields":{"System.Title":"Checkout","System.WorkItemType":"Feature","Custom.ExpenseType":"CapEx"}}]}`)
	}))

	items, err := c.WorkItems(context.Background(), []int{101, 404, 100})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].ParentID)
	assert.Equal(t, 100, *items[0].ParentID)
	assert.Equal(t, "Task", items[0].Type)
	assert.Nil(t, items[1].ParentID)
	assert.Equal(t, "CapEx", items[1].Expense)
	assert.Equal(t, domain.CapEx, domain.ParseExpenseType(items[1].Expense))
}

func TestWorkItem_NotFoundIsNil(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Platform/_apis/wit/workitems/7" {
			assert.Contains(t, r.URL.Query().Get("fields"), "System.Parent")
			_, _ = io.WriteString(w, `{"id":7,"fields":{"System.Title":"Story","System.WorkItemType":"User Story","System.Parent":3}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	wi, err := c.WorkItem(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, wi)
	assert.Equal(t, "User Story", wi.Type)

	wi, err = c.WorkItem(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, wi)
}

func TestWorkItems_Forbidden(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.WorkItems(context.Background(), []int{1})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(config.Config{}, zerolog.Nop())
	_, err := c.TeamMembers(context.Background(), "Core")
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}
