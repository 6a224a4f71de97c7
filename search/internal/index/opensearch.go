// Package index maintains the full-text posts index. Every mutation is
// keyed by post id, so applying the same event twice converges on the
// same index state.
package index

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/config"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/metrics"
)

// PostDocument is the indexed shape of one post.
type PostDocument struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Indexer is the slice of the index the consumer and handlers need.
type Indexer interface {
	IndexPost(ctx context.Context, doc PostDocument) error
	DeletePost(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]PostDocument, error)
}

// OpenSearchIndex implements Indexer on an OpenSearch cluster.
type OpenSearchIndex struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchIndex connects to the cluster and verifies it is reachable.
func NewOpenSearchIndex(cfg config.OpenSearchConfig) (*OpenSearchIndex, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearchIndex{client: client, index: cfg.Index}, nil
}

// EnsureIndex creates the posts index if it does not exist yet.
func (s *OpenSearchIndex) EnsureIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"id":        {"type": "keyword"},
				"userId":    {"type": "keyword"},
				"content":   {"type": "text"},
				"createdAt": {"type": "date"}
			}
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(mapping),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// An index created by another replica is fine.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("opensearch error: %s - %s", res.Status(), string(body))
	}

	return nil
}

// IndexPost upserts a post document under its post id. Redelivery of the
// same event overwrites the document with identical content.
func (s *OpenSearchIndex) IndexPost(ctx context.Context, doc PostDocument) error {
	bodyBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(bodyBytes),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("opensearch error: %s - %s", res.Status(), string(body))
	}

	metrics.IndexOperations.WithLabelValues("index").Inc()
	return nil
}

// DeletePost removes a post document. A document that is already gone
// counts as deleted.
func (s *OpenSearchIndex) DeletePost(ctx context.Context, id string) error {
	req := opensearchapi.DeleteRequest{
		Index:      s.index,
		DocumentID: id,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("opensearch error: %s - %s", res.Status(), string(body))
	}

	metrics.IndexOperations.WithLabelValues("delete").Inc()
	return nil
}

// Search runs a full-text match over post content, newest first.
func (s *OpenSearchIndex) Search(ctx context.Context, query string, limit int) ([]PostDocument, error) {
	searchBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": query,
			},
		},
		"size": limit,
		"sort": []map[string]interface{}{
			{"createdAt": map[string]string{"order": "desc"}},
		},
	}

	bodyBytes, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("opensearch error: %s - %s", res.Status(), string(body))
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source PostDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]PostDocument, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

var _ Indexer = (*OpenSearchIndex)(nil)
