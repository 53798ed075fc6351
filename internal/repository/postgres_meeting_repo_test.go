package repository

import (
	"testing"
)

// PostgresMeetingRepoはMeetingRepositoryインターフェースを満たすことを検証
func TestPostgresMeetingRepo_ImplementsInterface(t *testing.T) {
	var _ MeetingRepository = (*PostgresMeetingRepo)(nil)
}

// NewPostgresMeetingRepoが正しく初期化されることを検証
func TestNewPostgresMeetingRepo_Initializes(t *testing.T) {
	repo := NewPostgresMeetingRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestNormalizeClock はTIME型スキャン結果の正規化を検証する。
func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"09:00:00", "09:00"},
		{"23:59:59", "23:59"},
		{"09:00", "09:00"},
		{"9:00", "9:00"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeClock(tt.input); got != tt.want {
			t.Errorf("normalizeClock(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestNullString は空文字列のNULL変換を検証する。
func TestNullString(t *testing.T) {
	if got := nullString(""); got.Valid {
		t.Error("nullString(\"\") should be invalid (NULL)")
	}

	got := nullString("ev-1")
	if !got.Valid || got.String != "ev-1" {
		t.Errorf("nullString(\"ev-1\") = %+v, want valid ev-1", got)
	}
}

// TestReconciliationBatch_Empty はバッチの空判定を検証する。
func TestReconciliationBatch_Empty(t *testing.T) {
	var b ReconciliationBatch
	if !b.Empty() {
		t.Error("zero batch should be empty")
	}

	b.DeleteEventIDs = []string{"ev-1"}
	if b.Empty() {
		t.Error("batch with deletions should not be empty")
	}
}
