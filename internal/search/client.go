// Package search keeps contacts in an Elasticsearch index for fuzzy lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/contacts/internal/models"
)

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Index struct {
	es    *elasticsearch.Client
	index string
}

// NewIndex connects to Elasticsearch and checks that the cluster answers.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res.Status(), res.Body)
	}

	return &Index{es: client, index: cfg.Index}, nil
}

const mapping = `{
  "mappings": {
    "properties": {
      "user_id":     {"type": "long"},
      "first_name":  {"type": "text"},
      "last_name":   {"type": "text"},
      "email":       {"type": "text", "analyzer": "simple"},
      "phone":       {"type": "keyword"},
      "description": {"type": "text"},
      "birthday":    {"type": "date", "format": "yyyy-MM-dd"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

type document struct {
	UserID      uint   `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	Birthday    string `json:"birthday"`
}

func (i *Index) IndexContact(ctx context.Context, c models.Contact) error {
	body, err := json.Marshal(document{
		UserID:      c.UserID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Description: c.Description,
		Birthday:    c.Birthday.String(),
	})
	if err != nil {
		return err
	}

	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(docID(c.ID)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

// DeleteContact removes the document. A missing document is not an error.
func (i *Index) DeleteContact(ctx context.Context, id uint) error {
	res, err := i.es.Delete(i.index, docID(id), i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchContactIDs runs a fuzzy match over the user's contacts and returns
// the total hit count and the ids of the requested page, best match first.
func (i *Index) SearchContactIDs(ctx context.Context, userID uint, q string, offset, limit int) (int64, []uint, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"first_name^2", "last_name^2", "email", "phone", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"_source": false,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, nil, err
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
		i.es.Search.WithFrom(offset),
		i.es.Search.WithSize(limit),
		i.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch decode: %w", err)
	}

	ids := make([]uint, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return out.Hits.Total.Value, ids, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, status, strings.TrimSpace(string(b)))
}
