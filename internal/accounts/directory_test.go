package accounts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

func TestHTTPDirectory(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/accounts/doctor/doc-1":
			_, _ = w.Write([]byte(`{"id":"doc-1","role":"doctor","status":"approved"}`))
		case "/accounts/laboratory/lab-1":
			_, _ = w.Write([]byte(`{"id":"lab-1","role":"laboratory","status":"pending_review"}`))
		case "/accounts/pharmacy/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL+"/", time.Minute, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		account models.ProviderRef
		want    bool
		wantErr bool
	}{
		{models.ProviderRef{Role: models.RoleDoctor, ID: "doc-1"}, true, false},
		{models.ProviderRef{Role: models.RoleLaboratory, ID: "lab-1"}, false, false},
		{models.ProviderRef{Role: models.RolePharmacy, ID: "missing"}, false, false},
		{models.ProviderRef{Role: models.RolePharmacy, ID: "broken"}, false, true},
	}
	for _, tt := range tests {
		got, err := dir.IsApproved(ctx, tt.account)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: error = %v, wantErr %v", tt.account, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("%s: approved = %v, want %v", tt.account, got, tt.want)
		}
	}
}

func TestHTTPDirectoryCachesUntilTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"status":"approved"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dir := NewHTTPDirectory(srv.URL, time.Minute, logger.NewNop())
	dir.now = func() time.Time { return now }
	account := models.ProviderRef{Role: models.RoleDoctor, ID: "doc-1"}

	for i := 0; i < 3; i++ {
		if ok, err := dir.IsApproved(context.Background(), account); err != nil || !ok {
			t.Fatalf("lookup %d: ok=%v err=%v", i, ok, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := dir.IsApproved(context.Background(), account); err != nil {
		t.Fatalf("lookup after ttl: %v", err)
	}
	dir.Invalidate(account)
	if _, err := dir.IsApproved(context.Background(), account); err != nil {
		t.Fatalf("lookup after invalidate: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", got)
	}
}

func TestStaticDirectory(t *testing.T) {
	ok, err := StaticDirectory{}.IsApproved(context.Background(), models.ProviderRef{Role: models.RoleDoctor, ID: "x"})
	if err != nil || !ok {
		t.Fatalf("static directory must approve: ok=%v err=%v", ok, err)
	}
}
