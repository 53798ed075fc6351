package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGoogleCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

	// defaultPageSize はGoogleカレンダーAPIの1ページあたりの最大取得件数。
	// APIの上限は250。結果がこれを超える場合はnextPageTokenで追従する。
	defaultPageSize = 250
)

// TokenSource はカレンダーAPI呼び出し用のアクセストークンを供給する。
// auth.Serviceが実装する。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GoogleClientConfig はGoogleClientの設定。
type GoogleClientConfig struct {
	CalendarID string

	// テスト用にオーバーライド可能
	BaseURL  string
	PageSize int
}

// GoogleClient はGoogleカレンダーAPI v3のイベント一覧クライアント。
// singleEvents=trueにより繰り返しイベントはAPI側で個別オカレンスに
// 展開され、開始時刻昇順で返される。
// nextPageTokenがなくなるまでページを追従するため、
// 1ページの上限（250件）を超えるイベントも取りこぼさない。
type GoogleClient struct {
	tokens TokenSource
	config GoogleClientConfig
	client *http.Client
}

// NewGoogleClient はGoogleClientを生成する。
func NewGoogleClient(tokens TokenSource, config GoogleClientConfig) *GoogleClient {
	if config.CalendarID == "" {
		config.CalendarID = "primary"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultGoogleCalendarBaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	return &GoogleClient{
		tokens: tokens,
		config: config,
		client: http.DefaultClient,
	}
}

// googleEventTime はイベントの開始・終了を表す。
// 通常イベントはdateTime（RFC3339）、終日イベントはdate（YYYY-MM-DD）を持つ。
type googleEventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// raw は設定されている方の生文字列を返す。
func (t googleEventTime) raw() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// googleEvent はevents.listレスポンス内の1イベント。
type googleEvent struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Start       googleEventTime `json:"start"`
	End         googleEventTime `json:"end"`
	Attendees   []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

// googleEventsPage はevents.listレスポンスの1ページ。
type googleEventsPage struct {
	Items         []googleEvent `json:"items"`
	NextPageToken string        `json:"nextPageToken"`
}

// ListEvents は指定ウィンドウに重なるイベントを開始時刻昇順で取得する。
// キャンセル済みイベントは除外する。
// 通信失敗・非2xx応答はプロバイダーレベルの失敗としてエラーを返す。
func (c *GoogleClient) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	var events []Event
	pageToken := ""

	for {
		page, err := c.fetchPage(ctx, start, end, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}

			ev := Event{
				ID:           item.ID,
				Title:        item.Summary,
				Description:  item.Description,
				RawStart:     item.Start.raw(),
				RawEnd:       item.End.raw(),
				CalendarName: c.config.CalendarID,
			}
			for _, att := range item.Attendees {
				if att.Email != "" {
					ev.Attendees = append(ev.Attendees, att.Email)
				}
			}
			events = append(events, ev)
		}

		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

// fetchPage はevents.listの1ページを取得する。
func (c *GoogleClient) fetchPage(ctx context.Context, start, end time.Time, pageToken string) (*googleEventsPage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"timeMin":      {start.UTC().Format(time.RFC3339)},
		"timeMax":      {end.UTC().Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {fmt.Sprintf("%d", c.config.PageSize)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s",
		c.config.BaseURL, url.PathEscape(c.config.CalendarID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read events response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events list returned status %d: %s", resp.StatusCode, string(body))
	}

	var page googleEventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse events response: %w", err)
	}

	return &page, nil
}

// compile-time interface check
var _ Provider = (*GoogleClient)(nil)
