// Package search mirrors members into Elasticsearch for name lookups.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/church_members/internal/models"
)

var ErrDisabled = errors.New("search index disabled")

type Index interface {
	Enabled() bool
	IndexMember(ctx context.Context, m *models.Member) error
	DeleteMember(ctx context.Context, id uint) error
	// SearchByName returns ids of members whose name contains name, ordered by name.
	SearchByName(ctx context.Context, name string, limit int) ([]uint, error)
}

// Disabled is used when ES_URL is unset; callers fall back to SQL.
type Disabled struct{}

func (Disabled) Enabled() bool                                       { return false }
func (Disabled) IndexMember(context.Context, *models.Member) error   { return nil }
func (Disabled) DeleteMember(context.Context, uint) error            { return nil }
func (Disabled) SearchByName(context.Context, string, int) ([]uint, error) {
	return nil, ErrDisabled
}

type Config struct {
	URL       string
	User      string
	Password  string
	Index     string
	Transport http.RoundTripper
}

type Elastic struct {
	es    *elasticsearch.Client
	index string
}

func NewElastic(cfg Config) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Elastic{es: client, index: cfg.Index}, nil
}

func (e *Elastic) Enabled() bool { return true }

type document struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":       {"type": "long"},
      "name":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "district": {"type": "keyword"},
      "position": {"type": "keyword"},
      "phone":    {"type": "keyword"}
    }
  }
}`

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("index create: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index create", res.StatusCode, res.Body)
	}
	return nil
}

func (e *Elastic) IndexMember(ctx context.Context, m *models.Member) error {
	body, err := json.Marshal(document{
		ID:       m.ID,
		Name:     m.Name,
		District: m.District,
		Position: m.Position,
		Phone:    m.Phone,
	})
	if err != nil {
		return err
	}

	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(strconv.FormatUint(uint64(m.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index member %d: %w", m.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index member", res.StatusCode, res.Body)
	}
	return nil
}

func (e *Elastic) DeleteMember(ctx context.Context, id uint) error {
	res, err := e.es.Delete(e.index, strconv.FormatUint(uint64(id), 10), e.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete member", res.StatusCode, res.Body)
	}
	return nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// SearchByName is a case-insensitive substring match on the full name, ordered by name
// like the SQL fallback.
func (e *Elastic) SearchByName(ctx context.Context, name string, limit int) ([]uint, error) {
	query := map[string]any{
		"size":    limit,
		"_source": []string{"id"},
		"sort":    []any{map[string]any{"name.raw": "asc"}, map[string]any{"id": "asc"}},
		"query": map[string]any{
			"wildcard": map[string]any{
				"name.raw": map[string]any{
					"value":            "*" + wildcardEscaper.Replace(name) + "*",
					"case_insensitive": true,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

func responseError(op string, status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("%s: elasticsearch status %d: %s", op, status, bytes.TrimSpace(b))
}
