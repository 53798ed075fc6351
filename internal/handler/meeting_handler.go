// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eliaahadi/meeting-tracker/internal/meeting"
	"github.com/eliaahadi/meeting-tracker/internal/model"
)

// MeetingServiceInterface はミーティングハンドラーが必要とするサービスインターフェース。
type MeetingServiceInterface interface {
	// ListMeetings は指定条件でミーティング一覧と集計を返す。
	ListMeetings(ctx context.Context, query meeting.ListQuery) (*meeting.ListResult, error)
	// LogEvent は手動ミーティングを登録する。
	LogEvent(ctx context.Context, input meeting.LogEventInput) (*model.Meeting, error)
}

// MeetingHandler はミーティング関連のHTTPハンドラー。
type MeetingHandler struct {
	service MeetingServiceInterface
}

// NewMeetingHandler はMeetingHandlerを生成する。
func NewMeetingHandler(service MeetingServiceInterface) *MeetingHandler {
	return &MeetingHandler{service: service}
}

// logEventRequest は手動登録リクエストのボディ。
type logEventRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Attendees    []string `json:"attendees"`
	CalendarName string   `json:"calendar_name"`
}

// meetingResponse はミーティングのAPIレスポンス。
type meetingResponse struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Attendees    string `json:"attendees"`
	CalendarName string `json:"calendar_name"`
}

// summaryResponse は集計のAPIレスポンス。
type summaryResponse struct {
	Count                  int `json:"count"`
	TotalDurationMinutes   int `json:"total_duration"`
	AverageDurationMinutes int `json:"average_duration"`
}

// listMeetingsResponse は一覧取得のAPIレスポンス。
type listMeetingsResponse struct {
	Meetings []meetingResponse `json:"meetings"`
	Summary  summaryResponse   `json:"summary"`
}

// ListMeetings はミーティング一覧を取得する。
// GET /api/meetings?range=all|last7|week|month
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, meeting.ListQuery{
		Range: model.MeetingRange(r.URL.Query().Get("range")),
	})
}

// FilterMeetings はキーワード・カテゴリで絞り込んだミーティング一覧を取得する。
// GET /api/meetings/filter?range=&keyword=&category=
func (h *MeetingHandler) FilterMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.list(w, r, meeting.ListQuery{
		Range:    model.MeetingRange(q.Get("range")),
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
	})
}

// list は一覧取得の共通処理。
func (h *MeetingHandler) list(w http.ResponseWriter, r *http.Request, query meeting.ListQuery) {
	result, err := h.service.ListMeetings(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listMeetingsResponse{
		Meetings: make([]meetingResponse, len(result.Meetings)),
		Summary: summaryResponse{
			Count:                  result.Summary.Count,
			TotalDurationMinutes:   result.Summary.TotalDurationMinutes,
			AverageDurationMinutes: result.Summary.AverageDurationMinutes,
		},
	}
	for i, m := range result.Meetings {
		resp.Meetings[i] = toMeetingResponse(m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// LogEvent は手動ミーティングを登録する。
// POST /api/log-event
func (h *MeetingHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	created, err := h.service.LogEvent(r.Context(), meeting.LogEventInput{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Attendees:    req.Attendees,
		CalendarName: req.CalendarName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMeetingResponse(created))
}

// --- ヘルパー関数 ---

// toMeetingResponse はmodel.MeetingからAPIレスポンスに変換する。
func toMeetingResponse(m *model.Meeting) meetingResponse {
	return meetingResponse{
		ID:           m.ID,
		EventID:      m.EventID,
		Title:        m.Title,
		Description:  m.Description,
		Date:         m.Date.Format(time.DateOnly),
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		Attendees:    m.Attendees,
		CalendarName: m.CalendarName,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
// メッセージ本文はerrorフィールドで返す。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"error"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthRequired:
		return http.StatusUnauthorized
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRange, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeProviderError:
		return http.StatusBadGateway
	case model.ErrCodeSyncInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
