package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSSRFGuard はSSRFGuardの生成をテストする。
func TestNewSSRFGuard(t *testing.T) {
	guard := NewSSRFGuard()
	if guard == nil {
		t.Fatal("NewSSRFGuard() returned nil")
	}
}

// TestNewSafeClient はSSRF防止付きHTTPクライアントの生成をテストする。
func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
}

// TestNewSafeClientHasTransport はSafeClientにカスタムTransportが設定されていることをテストする。
// safeurlはnet.DialerのControlフックでIPアドレス検証を行うため、
// Transportが標準のhttp.DefaultTransportではないことを確認する。
func TestNewSafeClientHasTransport(t *testing.T) {
	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5 * time.Second)

	if client.Transport == nil {
		t.Fatal("expected custom Transport to be set, got nil")
	}
	if client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport, got http.DefaultTransport")
	}
}

// TestNewSafeClientBlocksLoopback はSafeClientがループバックへのリクエストをブロックすることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard()
	client := guard.NewSafeClient(5 * time.Second)

	_, err := client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestValidateURL_PublicURL は公開URLの検証が成功することをテストする。
func TestValidateURL_PublicURL(t *testing.T) {
	guard := NewSSRFGuard()

	publicURLs := []string{
		"https://calendar.google.com/calendar/ical/user/basic.ics",
		"https://example.com/team.ics",
		"http://calendars.example.org/holidays.ics",
	}

	for _, u := range publicURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) returned error: %v", u, err)
			}
		})
	}
}

// TestValidateURL_PrivateIP はプライベートIPアドレスの拒否をテストする。
func TestValidateURL_PrivateIP(t *testing.T) {
	guard := NewSSRFGuard()

	privateURLs := []string{
		"http://10.0.0.1/calendar.ics",
		"http://10.255.255.255/calendar.ics",
		"http://172.16.0.1/calendar.ics",
		"http://172.31.255.255/calendar.ics",
		"http://192.168.0.1/calendar.ics",
		"http://192.168.1.100/calendar.ics",
	}

	for _, u := range privateURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for private IP", u)
			}
		})
	}
}

// TestValidateURL_LoopbackAndMetadata はループバックとメタデータIPの拒否をテストする。
func TestValidateURL_LoopbackAndMetadata(t *testing.T) {
	guard := NewSSRFGuard()

	blockedURLs := []string{
		"http://127.0.0.1/calendar.ics",
		"http://127.0.0.2/calendar.ics",
		"http://localhost/calendar.ics",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/calendar.ics",
		"http://[::1]/calendar.ics",
	}

	for _, u := range blockedURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}

// TestValidateURL_DisallowedScheme はhttp/https以外のスキームの拒否をテストする。
func TestValidateURL_DisallowedScheme(t *testing.T) {
	guard := NewSSRFGuard()

	badURLs := []string{
		"file:///etc/passwd",
		"ftp://example.com/calendar.ics",
		"gopher://example.com/",
		"javascript:alert(1)",
	}

	for _, u := range badURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error for disallowed scheme", u)
			}
		})
	}
}

// TestValidateURL_MalformedURL は不正なURLの拒否をテストする。
func TestValidateURL_MalformedURL(t *testing.T) {
	guard := NewSSRFGuard()

	badURLs := []string{
		"",
		"https://",
		"://missing-scheme",
	}

	for _, u := range badURLs {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}
