package eventstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// indexMapping keeps nanosecond timestamps and stores metadata without indexing it.
const indexMapping = `{
  "mappings": {
    "properties": {
      "uid":       {"type": "keyword"},
      "timestamp": {"type": "date_nanos"},
      "source":    {"type": "keyword"},
      "scope":     {"type": "keyword"},
      "action":    {"type": "keyword"},
      "targetUid": {"type": "keyword"},
      "user":      {"type": "keyword"},
      "host":      {"type": "keyword"},
      "value":     {"type": "keyword"},
      "duration":  {"type": "long"},
      "metadata":  {"type": "object", "enabled": false}
    }
  }
}`

// OpenSearchRepository stores events as documents keyed by event uid. Writes
// wait for a refresh so that they are visible to the next search.
type OpenSearchRepository struct {
	client *opensearch.Client
	opts   options
}

var _ event.Repository = (*OpenSearchRepository)(nil)

func NewOpenSearchRepository(client *opensearch.Client, opts ...Option) *OpenSearchRepository {
	if client == nil {
		panic("eventstore: opensearch client cannot be nil")
	}
	o := build(opts)
	o.logger = o.logger.With(logger.Component("eventstore.opensearch"))
	return &OpenSearchRepository{client: client, opts: o}
}

// CreateSchema creates the index with its mapping when it does not exist.
func (r *OpenSearchRepository) CreateSchema(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.opts.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return unavailable("opensearch", "index exists", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = r.client.Indices.Create(r.opts.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err := checkResponse(res, err); err != nil {
		return unavailable("opensearch", "create index", err)
	}
	return nil
}

func (r *OpenSearchRepository) Log(ctx context.Context, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	res, err := r.client.Index(r.opts.index, bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(e.UID),
		r.client.Index.WithRefresh("wait_for"),
	)
	if err := checkResponse(res, err); err != nil {
		return unavailable("opensearch", "index", err)
	}
	return nil
}

// LogBatch writes the events with one bulk request.
func (r *OpenSearchRepository) LogBatch(ctx context.Context, events []event.Event) error {
	if err := validateAll(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	body, err := bulkBody(r.opts.index, events)
	if err != nil {
		return err
	}

	res, err := r.client.Bulk(bytes.NewReader(body),
		r.client.Bulk.WithContext(ctx),
		r.client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return unavailable("opensearch", "bulk", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return unavailable("opensearch", "bulk", responseError(res))
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return unavailable("opensearch", "bulk", err)
	}
	if out.Errors {
		return unavailable("opensearch", "bulk", fmt.Errorf("some of %d events were rejected", len(events)))
	}
	return nil
}

func (r *OpenSearchRepository) Find(ctx context.Context, uid string) (event.Event, error) {
	if uid == "" {
		return event.Event{}, emptyUID()
	}
	res, err := r.client.Get(r.opts.index, uid, r.client.Get.WithContext(ctx))
	if err != nil {
		return event.Event{}, unavailable("opensearch", "get", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return event.Event{}, notFound(uid)
	}
	if res.IsError() {
		return event.Event{}, unavailable("opensearch", "get", responseError(res))
	}

	var doc struct {
		Source event.Event `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return event.Event{}, unavailable("opensearch", "get", err)
	}
	return normalize(doc.Source), nil
}

// Search pages through the matching documents with search_after.
func (r *OpenSearchRepository) Search(ctx context.Context, q event.Query) (*event.Series, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s := event.NewSeries(0)
	var after []any
	for {
		body, err := json.Marshal(searchBody(q, r.opts.pageSize, after))
		if err != nil {
			return nil, err
		}
		res, err := r.client.Search(
			r.client.Search.WithContext(ctx),
			r.client.Search.WithIndex(r.opts.index),
			r.client.Search.WithBody(bytes.NewReader(body)),
		)
		page, err := decodeSearch(res, err)
		if err != nil {
			return nil, unavailable("opensearch", "search", err)
		}

		for _, hit := range page.Hits.Hits {
			s.Add(normalize(hit.Source))
		}
		if len(page.Hits.Hits) < r.opts.pageSize {
			return s, nil
		}
		after = page.Hits.Hits[len(page.Hits.Hits)-1].Sort
	}
}

func (r *OpenSearchRepository) Purge(ctx context.Context, q event.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]any{"query": openSearchQuery(q)})
	if err != nil {
		return err
	}
	res, err := r.client.DeleteByQuery([]string{r.opts.index}, bytes.NewReader(body),
		r.client.DeleteByQuery.WithContext(ctx),
		r.client.DeleteByQuery.WithRefresh(true),
		r.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return unavailable("opensearch", "delete by query", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return unavailable("opensearch", "delete by query", responseError(res))
	}

	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return unavailable("opensearch", "delete by query", err)
	}
	r.opts.logger.DebugContext(ctx, "events purged", logger.Count(out.Deleted))
	return r.Log(ctx, event.PurgeEvent(q, r.opts.source))
}

func (r *OpenSearchRepository) TotalHitCount(ctx context.Context, q event.Query) (int, error) {
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return 0, err
	}
	body, err := json.Marshal(map[string]any{"query": openSearchQuery(q)})
	if err != nil {
		return 0, err
	}
	res, err := r.client.Count(
		r.client.Count.WithContext(ctx),
		r.client.Count.WithIndex(r.opts.index),
		r.client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, unavailable("opensearch", "count", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, unavailable("opensearch", "count", responseError(res))
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, unavailable("opensearch", "count", err)
	}
	return out.Count, nil
}

func (r *OpenSearchRepository) HitCount(ctx context.Context, q event.Query) (map[string]int, error) {
	return r.HitCountBy(ctx, q, event.DimensionTarget)
}

// HitCountBy groups the matching hits client side.
func (r *OpenSearchRepository) HitCountBy(ctx context.Context, q event.Query, d event.Dimension) (map[string]int, error) {
	if !d.Valid() {
		return nil, invalidDimension(d)
	}
	s, err := r.Search(ctx, event.HitQuery(q))
	if err != nil {
		return nil, err
	}
	return event.CountHits(s.All(), d), nil
}

func (r *OpenSearchRepository) RegisterAuditListener(event.Logger) {}

func (r *OpenSearchRepository) UnregisterAuditListener() {}

// openSearchQuery renders q as a bool filter on the json field names of event.Event.
func openSearchQuery(q event.Query) map[string]any {
	var filters []any

	window := map[string]any{}
	if !q.From.IsZero() {
		window["gte"] = q.From.UTC().Format(time.RFC3339Nano)
	}
	if !q.To.IsZero() {
		window["lt"] = q.To.UTC().Format(time.RFC3339Nano)
	}
	if len(window) > 0 {
		filters = append(filters, map[string]any{"range": map[string]any{"timestamp": window}})
	}

	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]any{"term": map[string]any{field: value}})
		}
	}
	term("scope", string(q.Scope))
	term("source", string(q.Source))
	term("action", string(q.Action))
	term("targetUid", q.TargetUID)

	if len(filters) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filters}}
}

func searchBody(q event.Query, size int, after []any) map[string]any {
	body := map[string]any{
		"query": openSearchQuery(q),
		"size":  size,
		"sort": []any{
			map[string]any{"timestamp": "asc"},
			map[string]any{"uid": "asc"},
		},
	}
	if len(after) > 0 {
		body["search_after"] = after
	}
	return body
}

func bulkBody(index string, events []event.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": e.UID}}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type searchPage struct {
	Hits struct {
		Hits []struct {
			Source event.Event `json:"_source"`
			Sort   []any       `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeSearch(res *opensearchapi.Response, err error) (searchPage, error) {
	var page searchPage
	if err != nil {
		return page, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return page, responseError(res)
	}
	// sort values of date_nanos fields overflow float64
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	err = dec.Decode(&page)
	return page, err
}

func checkResponse(res *opensearchapi.Response, err error) error {
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func responseError(res *opensearchapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	return fmt.Errorf("%s: %s", res.Status(), bytes.TrimSpace(msg))
}
