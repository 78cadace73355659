package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/config"
)

// ElasticLog stores order events in an Elasticsearch index
type ElasticLog struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticLog creates a new Elasticsearch-backed event log
func NewElasticLog(cfg config.ElasticConfig) (*ElasticLog, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticLog{
		client: client,
		config: cfg,
	}, nil
}

func (l *ElasticLog) indexName() string {
	return config.FormatIndex(l.config, l.config.Index)
}

// Append writes one event document. The deterministic document id makes a
// reconciliation re-append overwrite the original rather than duplicate it.
func (l *ElasticLog) Append(ctx context.Context, event OrderEvent) error {
	if event.Payload == nil {
		event.Payload = map[string]interface{}{}
	}

	docJSON, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order event")
	}

	req := esapi.IndexRequest{
		Index:      l.indexName(),
		DocumentID: event.DocumentID(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, l.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().
		Uint("order_id", event.OrderID).
		Str("event_type", event.Type).
		Int("seq", event.Seq).
		Msg("Order event appended")

	return nil
}

// EventsForOrder returns an order's events ordered by sequence.
func (l *ElasticLog) EventsForOrder(ctx context.Context, orderID uint) ([]OrderEvent, error) {
	query := map[string]interface{}{
		"size": 1000,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"order_id": orderID,
			},
		},
		"sort": []map[string]interface{}{
			{"seq": map[string]interface{}{"order": "asc"}},
		},
	}

	return l.search(ctx, query)
}

// PaymentsSucceededOn returns all payment_succeeded events for the UTC day.
func (l *ElasticLog) PaymentsSucceededOn(ctx context.Context, day time.Time) ([]OrderEvent, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := map[string]interface{}{
		"size": 10000,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{"term": map[string]interface{}{"event_type": EventPaymentSucceeded}},
					{"range": map[string]interface{}{
						"timestamp": map[string]interface{}{
							"gte": start.Format(time.RFC3339),
							"lt":  end.Format(time.RFC3339),
						},
					}},
				},
			},
		},
	}

	return l.search(ctx, query)
}

func (l *ElasticLog) search(ctx context.Context, query map[string]interface{}) ([]OrderEvent, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{l.indexName()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	events := make([]OrderEvent, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var event OrderEvent
		if err := json.Unmarshal(hit.Source, &event); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal event document")
		}
		events = append(events, event)
	}

	return events, nil
}
