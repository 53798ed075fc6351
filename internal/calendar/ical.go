package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/eliaahadi/meeting-tracker/internal/security"
)

// icalDateOnlyLen はVALUE=DATE形式（"20240315"）のプロパティ値の長さ。
const icalDateOnlyLen = len("20060102")

// ICalProvider はICSフィードをイベント供給元とするプロバイダー。
// Google APIの認可なしで公開ICS URL（例: Googleカレンダーの非公開ICSリンク）を
// 同期元にできる。GoogleカレンダーAPIと異なり繰り返しイベントは展開済みで
// 届かないため、RRULEをウィンドウ内の個別オカレンスに自前で展開する。
// フィードURLは運用者設定だが外部URLであることに変わりはないため、
// SSRFガード付きクライアントで取得する。
type ICalProvider struct {
	url          string
	calendarName string
	client       *http.Client
}

// NewICalProvider はICalProviderを生成する。
// URLの静的検証に失敗した場合はエラーを返す。
func NewICalProvider(rawURL, calendarName string, guard security.SSRFGuardService, timeout time.Duration) (*ICalProvider, error) {
	if err := guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("ics url rejected: %w", err)
	}
	if calendarName == "" {
		calendarName = "ical"
	}
	return &ICalProvider{
		url:          rawURL,
		calendarName: calendarName,
		client:       guard.NewSafeClient(timeout),
	}, nil
}

// ListEvents はICSフィードを取得し、ウィンドウ [start, end) に重なる
// イベントオカレンスを開始時刻昇順で返す。
// キャンセル済み（STATUS:CANCELLED）のイベントは除外する。
func (p *ICalProvider) ListEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	body, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(strings.TrimSpace(body), "BEGIN:VCALENDAR") {
		return nil, fmt.Errorf("invalid iCalendar payload: expected BEGIN:VCALENDAR")
	}

	decoder := ical.NewDecoder(strings.NewReader(body))

	type occurrence struct {
		event Event
		start time.Time
	}
	var occurrences []occurrence

	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}

			base, dtStart, dtEnd, err := p.parseComponent(comp)
			if err != nil {
				// DTSTART/DTENDを持たないコンポーネントは同期対象外
				continue
			}

			if status := comp.Props.Get(ical.PropStatus); status != nil && status.Value == "CANCELLED" {
				continue
			}

			rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
			if rruleProp == nil {
				if dtEnd.After(start) && dtStart.Before(end) {
					occurrences = append(occurrences, occurrence{event: base, start: dtStart})
				}
				continue
			}

			// 繰り返しイベント: RRULEをウィンドウ内のオカレンスに展開する
			expanded, err := expandRecurrence(base, rruleProp.Value, dtStart, dtEnd, start, end)
			if err != nil {
				// 不正なRRULEは基底オカレンスのみ採用する
				if dtEnd.After(start) && dtStart.Before(end) {
					occurrences = append(occurrences, occurrence{event: base, start: dtStart})
				}
				continue
			}
			for _, ev := range expanded {
				st, _ := time.Parse(time.RFC3339, ev.RawStart)
				occurrences = append(occurrences, occurrence{event: ev, start: st})
			}
		}
	}

	// 開始時刻昇順（Google APIのorderBy=startTimeと同じ順序契約）
	sort.Slice(occurrences, func(a, b int) bool {
		return occurrences[a].start.Before(occurrences[b].start)
	})

	events := make([]Event, 0, len(occurrences))
	for _, occ := range occurrences {
		events = append(events, occ.event)
	}
	return events, nil
}

// fetch はICSフィード本文を取得する。
func (p *ICalProvider) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create ics request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar, */*")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ics feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ics response: %w", err)
	}

	return string(body), nil
}

// parseComponent はVEVENTコンポーネントからイベントと開始・終了時刻を取り出す。
func (p *ICalProvider) parseComponent(comp *ical.Component) (Event, time.Time, time.Time, error) {
	ev := Event{CalendarName: p.calendarName}

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.ID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		ev.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropAttendee); prop != nil {
		ev.Attendees = append(ev.Attendees, strings.TrimPrefix(prop.Value, "mailto:"))
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	endProp := comp.Props.Get(ical.PropDateTimeEnd)
	if startProp == nil || endProp == nil {
		return ev, time.Time{}, time.Time{}, fmt.Errorf("event without DTSTART/DTEND")
	}

	dtStart, err := startProp.DateTime(time.UTC)
	if err != nil {
		return ev, time.Time{}, time.Time{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	dtEnd, err := endProp.DateTime(time.UTC)
	if err != nil {
		return ev, time.Time{}, time.Time{}, fmt.Errorf("invalid DTEND: %w", err)
	}

	ev.RawStart = formatRawTime(startProp, dtStart)
	ev.RawEnd = formatRawTime(endProp, dtEnd)

	return ev, dtStart, dtEnd, nil
}

// formatRawTime はプロパティをImporterが期待する生文字列形式に変換する。
// VALUE=DATE（終日イベント）は日付のみ、それ以外はRFC3339。
func formatRawTime(prop *ical.Prop, t time.Time) string {
	if len(prop.Value) == icalDateOnlyLen {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// expandRecurrence はRRULEをウィンドウ [windowStart, windowEnd) 内の
// 個別オカレンスに展開する。各オカレンスのIDは
// 基底UIDと開始時刻から導出し、同期の照合キーとして安定させる。
func expandRecurrence(base Event, ruleStr string, dtStart, dtEnd, windowStart, windowEnd time.Time) ([]Event, error) {
	rule, err := rrule.StrToRRule(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE %q: %w", ruleStr, err)
	}
	rule.DTStart(dtStart)

	duration := dtEnd.Sub(dtStart)

	var events []Event
	for _, occStart := range rule.Between(windowStart, windowEnd, true) {
		if !occStart.Before(windowEnd) {
			continue
		}
		occ := base
		occ.ID = fmt.Sprintf("%s-%s", base.ID, occStart.UTC().Format("20060102T150405Z"))
		occ.RawStart = occStart.Format(time.RFC3339)
		occ.RawEnd = occStart.Add(duration).Format(time.RFC3339)
		events = append(events, occ)
	}

	return events, nil
}

// compile-time interface check
var _ Provider = (*ICalProvider)(nil)
