package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// ---------------------------------------------------------------------------
// Pexels Stock Video Service
// Searches the Pexels video API for footage matching a scene's stock query
// and downloads the best available file.
// ---------------------------------------------------------------------------

const (
	pexelsSearchURL = "https://api.pexels.com/videos/search"

	// "medium" keeps bandwidth and storage sane; scenes are normalized to
	// 1080p during composition anyway.
	pexelsSize        = "medium"
	pexelsOrientation = "landscape"
	pexelsPerPage     = 1

	pexelsSearchTimeout   = 30 * time.Second
	pexelsDownloadTimeout = 120 * time.Second
)

// ErrNoStockResults is returned when a query matches no footage. Callers
// treat it as a soft failure and retry with the fallback query.
var ErrNoStockResults = errors.New("no stock videos found for query")

type PexelsService struct {
	apiKey string
	client *http.Client
}

func NewPexelsService(apiKey string) *PexelsService {
	return &PexelsService{
		apiKey: apiKey,
		client: &http.Client{Timeout: pexelsDownloadTimeout},
	}
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int               `json:"id"`
	Duration   int               `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	ID       int    `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// StockVideo is a downloaded stock clip ready for storage.
type StockVideo struct {
	Query       string
	PexelsID    int
	Width       int
	Height      int
	ContentType string
	Data        []byte
}

// FetchVideo searches Pexels for the query and downloads the best matching
// file. Returns ErrNoStockResults when the query matches nothing.
func (s *PexelsService) FetchVideo(ctx context.Context, query string) (*StockVideo, error) {
	video, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}

	file, err := pickVideoFile(video.VideoFiles)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}

	log.Printf("[Pexels] Downloading video %d (%dx%d, quality=%s) for query %q",
		video.ID, file.Width, file.Height, file.Quality, query)

	data, err := s.download(ctx, file.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to download stock video: %w", err)
	}

	contentType := file.FileType
	if contentType == "" {
		contentType = "video/mp4"
	}

	return &StockVideo{
		Query:       query,
		PexelsID:    video.ID,
		Width:       file.Width,
		Height:      file.Height,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *PexelsService) search(ctx context.Context, query string) (*pexelsVideo, error) {
	searchCtx, cancel := context.WithTimeout(ctx, pexelsSearchTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", pexelsPerPage))
	params.Set("orientation", pexelsOrientation)
	params.Set("size", pexelsSize)

	req, err := http.NewRequestWithContext(searchCtx, "GET", pexelsSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pexels returned status %d: %s", resp.StatusCode, string(body))
	}

	var result pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse pexels response: %w", err)
	}

	if len(result.Videos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStockResults, query)
	}

	return &result.Videos[0], nil
}

// pickVideoFile prefers the highest resolution file no wider than the output
// frame; when everything is wider, the narrowest file wins.
func pickVideoFile(files []pexelsVideoFile) (*pexelsVideoFile, error) {
	if len(files) == 0 {
		return nil, errors.New("video has no downloadable files")
	}

	sorted := make([]pexelsVideoFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Width > sorted[j].Width
	})

	for i := range sorted {
		if sorted[i].Width <= 1920 && sorted[i].Link != "" {
			return &sorted[i], nil
		}
	}

	last := &sorted[len(sorted)-1]
	if last.Link == "" {
		return nil, errors.New("no download link found for video")
	}
	return last, nil
}

func (s *PexelsService) download(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
