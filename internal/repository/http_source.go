package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/domain/repository"
	xhttp "RegionFeed/pkg/http"
)

// HTTPSource fetches rows from an upstream JSON endpoint that returns either
// a bare array of rows or a push-style {"data": [...]} object.
type HTTPSource struct {
	client *xhttp.Client
	url    string
}

func NewHTTPSource(client *xhttp.Client, url string) *HTTPSource {
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.Row, error) {
	body, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.url, err)
	}
	return rows, nil
}

func (s *HTTPSource) Close() error { return nil }

// DecodeRows accepts `[...]` or `{"data": [...]}`. Numbers keep their
// literal form.
func DecodeRows(b []byte) ([]models.Row, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if b[0] == '[' {
		var rows []models.Row
		if err := dec.Decode(&rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var env struct {
		Data []models.Row `json:"data"`
	}
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("missing data array")
	}
	return env.Data, nil
}

var _ repository.DataSource = (*HTTPSource)(nil)
