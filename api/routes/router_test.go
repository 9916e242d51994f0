package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/internal/purchases"
	pkgauth "github.com/giftree-kr/giftree-backend/pkg/auth"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubGifticonService struct {
	browse func(ctx context.Context, brand string, limit int) (*gifticons.BrowseResult, error)
}

func (s stubGifticonService) Browse(ctx context.Context, brand string, limit int) (*gifticons.BrowseResult, error) {
	if s.browse != nil {
		return s.browse(ctx, brand, limit)
	}
	return &gifticons.BrowseResult{}, nil
}

type stubCouponService struct{}

func (stubCouponService) ListUsable(ctx context.Context, ownerID uuid.UUID) ([]coupons.CouponDTO, error) {
	return nil, nil
}

type stubPurchaseService struct{}

func (stubPurchaseService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*purchases.ListResult, error) {
	return &purchases.ListResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, gifticonSvc gifticons.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		gifticonSvc,
		stubCouponService{},
		stubPurchaseService{},
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		HolderID:    uuid.New(),
		DisplayName: "router test",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), stubGifticonService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Giftree-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestAPIGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubGifticonService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gifticons?brand=starbucks", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestBrowseGifticonsWithJWT(t *testing.T) {
	cfg := testConfig()
	var gotBrand string
	var gotLimit int
	svc := stubGifticonService{
		browse: func(ctx context.Context, brand string, limit int) (*gifticons.BrowseResult, error) {
			gotBrand = brand
			gotLimit = limit
			return &gifticons.BrowseResult{Total: 0}, nil
		},
	}
	router := newTestRouter(cfg, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gifticons?brand=starbucks&limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for browse got %d: %s", resp.Code, resp.Body.String())
	}
	if gotBrand != "starbucks" || gotLimit != 10 {
		t.Fatalf("expected brand starbucks limit 10 got %q %d", gotBrand, gotLimit)
	}

	var envelope struct {
		Data struct {
			Units []any `json:"units"`
			Total int   `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != 0 || len(envelope.Data.Units) != 0 {
		t.Fatalf("unexpected browse payload %s", resp.Body.String())
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubGifticonService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg)+"x")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered token got %d", resp.Code)
	}
}

func TestCheckoutRoutesRequireSessionUUID(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubGifticonService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session id got %d", resp.Code)
	}
}
