package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/meeting"
	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// fakeMeetingService はテスト用のMeetingServiceInterface実装。
type fakeMeetingService struct {
	result   *meeting.ListResult
	created  *model.Meeting
	err      error
	gotQuery meeting.ListQuery
	gotInput meeting.LogEventInput
}

func (f *fakeMeetingService) ListMeetings(ctx context.Context, query meeting.ListQuery) (*meeting.ListResult, error) {
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeMeetingService) LogEvent(ctx context.Context, input meeting.LogEventInput) (*model.Meeting, error) {
	f.gotInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func sampleResult() *meeting.ListResult {
	return &meeting.ListResult{
		Meetings: []*model.Meeting{
			{
				ID:        "m-1",
				EventID:   "ev-1",
				Title:     "朝会",
				Date:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
				StartTime: "09:00",
				EndTime:   "09:15",
			},
		},
		Summary: meeting.Summary{Count: 1, TotalDurationMinutes: 15, AverageDurationMinutes: 15},
	}
}

// TestListMeetings_OK は一覧取得のレスポンス形式を検証する。
func TestListMeetings_OK(t *testing.T) {
	svc := &fakeMeetingService{result: sampleResult()}
	h := NewMeetingHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/meetings?range=week", nil)
	w := httptest.NewRecorder()

	h.ListMeetings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if svc.gotQuery.Range != model.RangeWeek {
		t.Errorf("Range = %q, want week", svc.gotQuery.Range)
	}

	var resp struct {
		Meetings []map[string]any `json:"meetings"`
		Summary  map[string]any   `json:"summary"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Meetings) != 1 {
		t.Fatalf("len(meetings) = %d, want 1", len(resp.Meetings))
	}
	if resp.Meetings[0]["date"] != "2024-03-15" {
		t.Errorf("date = %v, want 2024-03-15", resp.Meetings[0]["date"])
	}
	if resp.Summary["count"] != float64(1) || resp.Summary["total_duration"] != float64(15) {
		t.Errorf("summary = %v", resp.Summary)
	}
}

// TestFilterMeetings_PassesQuery は絞り込みパラメータの受け渡しを検証する。
func TestFilterMeetings_PassesQuery(t *testing.T) {
	svc := &fakeMeetingService{result: sampleResult()}
	h := NewMeetingHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/meetings/filter?range=month&keyword=project&category=%23team", nil)
	w := httptest.NewRecorder()

	h.FilterMeetings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := meeting.ListQuery{Range: model.RangeMonth, Keyword: "project", Category: "#team"}
	if svc.gotQuery != want {
		t.Errorf("query = %+v, want %+v", svc.gotQuery, want)
	}
}

// TestListMeetings_InvalidRange は無効な範囲が400とエラーボディになることを検証する。
func TestListMeetings_InvalidRange(t *testing.T) {
	svc := &fakeMeetingService{err: model.NewInvalidRangeError("fortnight")}
	h := NewMeetingHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/meetings?range=fortnight", nil)
	w := httptest.NewRecorder()

	h.ListMeetings(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp["code"] != model.ErrCodeInvalidRange {
		t.Errorf("code = %q, want %s", resp["code"], model.ErrCodeInvalidRange)
	}
	if resp["error"] == "" {
		t.Error("error message should be present in the error field")
	}
}

// TestLogEvent_Created は手動登録の201レスポンスを検証する。
func TestLogEvent_Created(t *testing.T) {
	svc := &fakeMeetingService{created: &model.Meeting{
		ID:        "m-new",
		Title:     "顧客ミーティング",
		Date:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00",
		EndTime:   "11:00",
	}}
	h := NewMeetingHandler(svc)

	body := `{
		"title": "顧客ミーティング",
		"start_time": "2024-03-15T10:00:00Z",
		"end_time": "2024-03-15T11:00:00Z",
		"attendees": ["alice@example.com"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/log-event", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.LogEvent(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if svc.gotInput.Title != "顧客ミーティング" {
		t.Errorf("Title = %q", svc.gotInput.Title)
	}
	if len(svc.gotInput.Attendees) != 1 {
		t.Errorf("Attendees = %v", svc.gotInput.Attendees)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp["id"] != "m-new" {
		t.Errorf("id = %v, want m-new", resp["id"])
	}
}

// TestLogEvent_InvalidJSON は不正なJSONが400 INVALID_REQUESTになることを検証する。
func TestLogEvent_InvalidJSON(t *testing.T) {
	h := NewMeetingHandler(&fakeMeetingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/log-event", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.LogEvent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %s", resp["code"], model.ErrCodeInvalidRequest)
	}
}

// TestLogEvent_ValidationError は検証エラーが400 VALIDATION_FAILEDになることを検証する。
func TestLogEvent_ValidationError(t *testing.T) {
	svc := &fakeMeetingService{err: model.NewValidationError("end_timeはstart_time以降を指定してください")}
	h := NewMeetingHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/log-event", strings.NewReader(`{"title":"x"}`))
	w := httptest.NewRecorder()

	h.LogEvent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %s", resp["code"], model.ErrCodeValidationFailed)
	}
}

// TestHandleServiceError_Unknown は未知のエラーが500に丸められることを検証する。
func TestHandleServiceError_Unknown(t *testing.T) {
	w := httptest.NewRecorder()

	handleServiceError(w, errors.New("db connection lost"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", resp["code"])
	}
	// 内部エラーの詳細はレスポンスに含めない
	if strings.Contains(resp["error"], "db connection lost") {
		t.Error("internal error details should not leak to the response")
	}
}
