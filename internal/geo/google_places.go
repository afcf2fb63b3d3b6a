package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/moody/internal/model"
)

const (
	// DefaultPlacesEndpoint はGoogle Places Nearby SearchのエンドポイントURL。
	DefaultPlacesEndpoint = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	// DefaultRadiusMeters は検索半径のデフォルト値（メートル）。
	DefaultRadiusMeters = 100

	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 4 << 20
)

// プロバイダーのステータス値
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// GooglePlacesClient はGoogle Places Nearby Search APIのクライアント。
type GooglePlacesClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	radius     int
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// GooglePlacesOption はGooglePlacesClientのオプション設定関数。
type GooglePlacesOption func(*GooglePlacesClient)

// WithEndpoint は検索エンドポイントを差し替える。空文字列は無視する。
func WithEndpoint(endpoint string) GooglePlacesOption {
	return func(c *GooglePlacesClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithRadius は検索半径（メートル）を設定する。0以下は無視する。
func WithRadius(meters int) GooglePlacesOption {
	return func(c *GooglePlacesClient) {
		if meters > 0 {
			c.radius = meters
		}
	}
}

// NewGooglePlacesClient はGooglePlacesClientの新しいインスタンスを生成する。
func NewGooglePlacesClient(httpClient *http.Client, logger *slog.Logger, apiKey string, opts ...GooglePlacesOption) *GooglePlacesClient {
	c := &GooglePlacesClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		radius:     DefaultRadiusMeters,
		endpoint:   DefaultPlacesEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nearbySearchResponse はNearby Searchのレスポンスのうち使用する部分。
type nearbySearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve は座標の周辺スポットを検索する。
// 通信エラー、200以外のHTTPステータス、不正なJSON、OK/ZERO_RESULTS以外のステータスは
// すべてResolutionUnavailableとして返す。
func (c *GooglePlacesClient) Resolve(ctx context.Context, latitude, longitude float64) ([]model.PlaceDescriptor, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, model.NewResolutionUnavailableError(fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err))
	}

	q := reqURL.Query()
	q.Set("location", formatCoord(latitude)+","+formatCoord(longitude))
	q.Set("radius", strconv.Itoa(c.radius))
	q.Set("key", c.apiKey)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, model.NewResolutionUnavailableError(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("周辺スポット検索APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewResolutionUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("周辺スポット検索APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewResolutionUnavailableError(
			fmt.Errorf("places API returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, model.NewResolutionUnavailableError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}

	var result nearbySearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("周辺スポット検索APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewResolutionUnavailableError(fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err))
	}

	switch result.Status {
	case statusOK:
	case statusZeroResults:
		return []model.PlaceDescriptor{}, nil
	default:
		c.logger.Error("周辺スポット検索APIが異常ステータスを返しました",
			slog.String("status", result.Status),
			slog.String("error_message", result.ErrorMessage),
		)
		return nil, model.NewResolutionUnavailableError(
			fmt.Errorf("places API status %s: %s", result.Status, result.ErrorMessage))
	}

	descs := make([]model.PlaceDescriptor, 0, len(result.Results))
	for _, r := range result.Results {
		categories := r.Types
		if categories == nil {
			categories = []string{}
		}
		descs = append(descs, model.PlaceDescriptor{
			ExternalID: r.PlaceID,
			Name:       r.Name,
			Categories: categories,
			Latitude:   r.Geometry.Location.Lat,
			Longitude:  r.Geometry.Location.Lng,
		})
	}

	c.logger.Debug("周辺スポットを取得しました",
		slog.Int("count", len(descs)),
	)
	return descs, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ Resolver = (*GooglePlacesClient)(nil)
