/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package azdo

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/config"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// MaxBatchIDs is the service-side cap on ids per workitemsbatch call.
const MaxBatchIDs = 200

type Client struct {
    orgURL  string
    project string
    pat     string
    apiVer  string
    wiql    string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        orgURL:  strings.TrimRight(cfg.AzdoOrgURL, "/"),
        project: cfg.AzdoProject,
        pat:     cfg.AzdoPAT,
        apiVer:  cfg.AzdoAPIVersion,
        wiql:    cfg.AzdoWIQL,
        http:    &http.Client{Timeout: cfg.HTTPTimeout},
        log:     log,
    }
}

type WorkItem struct {
    ID        int               `json:"id"`
    Fields    map[string]any    `json:"fields"`
    Relations []domain.Relation `json:"relations"`
}

type wiqlRequest struct {
    Query string `json:"query"`
}

type wiqlResponse struct {
    WorkItems []struct {
        ID  int    `json:"id"`
        URL string `json:"url"`
    } `json:"workItems"`
}

type batchRequest struct {
    IDs    []int    `json:"ids"`
    Fields []string `json:"fields,omitempty"`
    Expand string   `json:"$expand,omitempty"`
}

type batchResponse struct {
    Count int        `json:"count"`
    Value []WorkItem `json:"value"`
}

// QueryWorkItemIDs runs the configured WIQL query (or a project-wide
// default) and returns the matching ids.
func (c *Client) QueryWorkItemIDs(ctx context.Context) ([]int, error) {
    if c.project == "" { return nil, errors.New("azdo: empty project") }
    q := c.wiql
    if strings.TrimSpace(q) == "" {
        q = "SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project ORDER BY [System.ChangedDate] DESC"
    }
    u := c.apiURL("/_apis/wit/wiql")
    var out wiqlResponse
    if err := c.doJSON(ctx, http.MethodPost, u, wiqlRequest{Query: q}, &out); err != nil { return nil, err }
    ids := make([]int, 0, len(out.WorkItems))
    for _, w := range out.WorkItems {
        if w.ID > 0 { ids = append(ids, w.ID) }
    }
    return ids, nil
}

// WorkItems fetches full field payloads for up to MaxBatchIDs ids.
func (c *Client) WorkItems(ctx context.Context, ids []int) ([]WorkItem, error) {
    if len(ids) == 0 { return nil, nil }
    if len(ids) > MaxBatchIDs { return nil, fmt.Errorf("azdo: batch of %d exceeds %d ids", len(ids), MaxBatchIDs) }
    u := c.apiURL("/_apis/wit/workitemsbatch")
    var out batchResponse
    if err := c.doJSON(ctx, http.MethodPost, u, batchRequest{IDs: ids}, &out); err != nil { return nil, err }
    return out.Value, nil
}

// WorkItemRecords returns the raw field maps with the item id folded in,
// the shape the analytics field accessor consumes.
func (c *Client) WorkItemRecords(ctx context.Context, ids []int) ([]map[string]any, error) {
    items, err := c.WorkItems(ctx, ids)
    if err != nil { return nil, err }
    out := make([]map[string]any, 0, len(items))
    for _, w := range items {
        rec := w.Fields
        if rec == nil { rec = map[string]any{} }
        if _, ok := rec["System.Id"]; !ok { rec["System.Id"] = w.ID }
        out = append(out, rec)
    }
    return out, nil
}

// WorkItemRelations fetches link data for up to MaxBatchIDs ids. The
// workitemsbatch endpoint rejects an explicit field list together with
// $expand, so this is a separate call from WorkItems.
func (c *Client) WorkItemRelations(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error) {
    if len(ids) == 0 { return nil, nil }
    if len(ids) > MaxBatchIDs { return nil, fmt.Errorf("azdo: batch of %d exceeds %d ids", len(ids), MaxBatchIDs) }
    u := c.apiURL("/_apis/wit/workitemsbatch")
    var out batchResponse
    if err := c.doJSON(ctx, http.MethodPost, u, batchRequest{IDs: ids, Expand: "Relations"}, &out); err != nil { return nil, err }
    rels := make([]domain.WorkItemRelations, 0, len(out.Value))
    for _, w := range out.Value {
        rels = append(rels, domain.WorkItemRelations{ID: w.ID, Relations: w.Relations})
    }
    return rels, nil
}

func (c *Client) apiURL(path string) string {
    return fmt.Sprintf("%s/%s%s?api-version=%s", c.orgURL, c.project, path, c.apiVer)
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any, out any) error {
    if c.orgURL == "" { return errors.New("azdo: empty org url") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        var r io.Reader
        if payload != nil { r = bytes.NewReader(payload) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return err }
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        req.SetBasicAuth("", c.pat)
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            b, rerr := io.ReadAll(resp.Body)
            resp.Body.Close()
            if rerr != nil { return rerr }
            if resp.StatusCode >= 300 {
                // retry on 429/5xx only
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("azdo api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return fmt.Errorf("azdo api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                return json.Unmarshal(b, out)
            }
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
        }
    }
    return lastErr
}
