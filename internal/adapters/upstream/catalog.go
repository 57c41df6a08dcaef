// Package upstream holds the provider-facing HTTP clients: the catalog
// fetcher and the media proxy fetcher.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// PPVCatalogFetcher pulls the sports catalog from the ppv provider's JSON
// API. The listing endpoint nests streams under categories; both endpoints
// gate payloads behind a success flag.
type PPVCatalogFetcher struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewPPVCatalogFetcher(client *http.Client, baseURL string, logger *slog.Logger) *PPVCatalogFetcher {
	return &PPVCatalogFetcher{
		client:  client,
		baseURL: baseURL,
		logger:  logger.With("module", "catalog", "provider", "ppv"),
	}
}

type apiStream struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Poster   string `json:"poster"`
	StartsAt int64  `json:"starts_at"`
	EndsAt   int64  `json:"ends_at"`
	IFrame   string `json:"iframe"`
}

type apiCategory struct {
	Category string      `json:"category"`
	Streams  []apiStream `json:"streams"`
}

type apiListResponse struct {
	Success bool          `json:"success"`
	Streams []apiCategory `json:"streams"`
}

type apiSource struct {
	Data string `json:"data"`
}

type apiDetail struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Poster         string      `json:"poster"`
	StartTimestamp int64       `json:"start_timestamp"`
	EndTimestamp   int64       `json:"end_timestamp"`
	CategoryName   string      `json:"category_name"`
	Sources        []apiSource `json:"sources"`
}

type apiDetailResponse struct {
	Success bool      `json:"success"`
	Data    apiDetail `json:"data"`
}

// FetchGames lists the full catalog. Streams without an embed link are
// skipped; they have no playable source.
func (f *PPVCatalogFetcher) FetchGames(ctx context.Context) ([]domain.Game, error) {
	var listing apiListResponse
	if err := f.getJSON(ctx, f.baseURL+"/api/streams", &listing); err != nil {
		return nil, err
	}
	if !listing.Success {
		return nil, fmt.Errorf("%w: catalog api returned success=false", domain.ErrUpstream)
	}

	now := time.Now().Unix()
	games := make([]domain.Game, 0, 64)
	for _, category := range listing.Streams {
		for _, stream := range category.Streams {
			if stream.IFrame == "" {
				continue
			}
			games = append(games, domain.Game{
				ID:        stream.ID,
				Name:      stream.Name,
				Poster:    stream.Poster,
				StartTime: stream.StartsAt,
				EndTime:   stream.EndsAt,
				CacheTime: now,
				VideoLink: stream.IFrame,
				Category:  category.Category,
			})
		}
	}
	f.logger.InfoContext(ctx, "catalog fetched",
		"operation", "fetch_games", "outcome", "success", "count", len(games))
	return games, nil
}

// FetchGame pulls a single stream by id from the detail endpoint.
func (f *PPVCatalogFetcher) FetchGame(ctx context.Context, id int64) (*domain.Game, error) {
	var detail apiDetailResponse
	if err := f.getJSON(ctx, fmt.Sprintf("%s/api/streams/%d", f.baseURL, id), &detail); err != nil {
		return nil, err
	}
	if !detail.Success {
		return nil, fmt.Errorf("%w: game %d", domain.ErrNotFound, id)
	}
	if len(detail.Data.Sources) == 0 {
		return nil, fmt.Errorf("%w: game %d has no sources", domain.ErrNotFound, id)
	}

	category := detail.Data.CategoryName
	if category == "" {
		category = "Unknown"
	}
	return &domain.Game{
		ID:        detail.Data.ID,
		Name:      detail.Data.Name,
		Poster:    detail.Data.Poster,
		StartTime: detail.Data.StartTimestamp,
		EndTime:   detail.Data.EndTimestamp,
		CacheTime: time.Now().Unix(),
		VideoLink: detail.Data.Sources[0].Data,
		Category:  category,
	}, nil
}

func (f *PPVCatalogFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build catalog request: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", f.baseURL+"/api/streams/")
	req.Header.Set("Origin", f.baseURL+"/api/streams")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: catalog api: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: catalog api returned %d", domain.ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode catalog response: %v", domain.ErrUpstream, err)
	}
	return nil
}
