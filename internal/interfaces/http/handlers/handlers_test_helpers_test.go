package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"finstack-p2p.backend/internal/domain/repositories"
	"finstack-p2p.backend/internal/infrastructure/events"
	"finstack-p2p.backend/internal/infrastructure/kvstore"
	"finstack-p2p.backend/internal/infrastructure/release"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/usecases"
	redispkg "finstack-p2p.backend/pkg/redis"
)

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Meta     json.RawMessage `json:"meta"`
	Error    string          `json:"error"`
	Code     string          `json:"code"`
	Redirect string          `json:"redirect"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// p2pEnv wires the real usecases over the redis-backed store
type p2pEnv struct {
	redis    *miniredis.Miniredis
	store    *kvstore.Store
	ads      repositories.AdRepository
	orders   repositories.OrderRepository
	profiles repositories.MerchantProfileRepository
	hub      *events.Hub

	adUsecase      *usecases.AdUsecase
	orderUsecase   *usecases.OrderUsecase
	releaseUsecase *usecases.ReleaseUsecase
	marketplace    *usecases.MarketplaceUsecase
}

func newP2PEnv(t *testing.T) *p2pEnv {
	t.Helper()
	srv := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	redispkg.SetClient(cli)
	t.Cleanup(func() {
		_ = cli.Close()
		redispkg.SetClient(nil)
	})

	store := kvstore.NewStore(cli)
	env := &p2pEnv{
		redis:    srv,
		store:    store,
		ads:      kvstore.NewAdRepository(store),
		orders:   kvstore.NewOrderRepository(store),
		profiles: kvstore.NewMerchantProfileRepository(store),
		hub:      events.NewHub(0, nil),
	}
	authorizer := release.NewLocalAuthorizer(release.LocalConfig{ExposeCode: true})
	env.adUsecase = usecases.NewAdUsecase(env.ads, store, nil)
	env.orderUsecase = usecases.NewOrderUsecase(env.orders, env.ads, store, env.hub, nil)
	env.releaseUsecase = usecases.NewReleaseUsecase(env.orders, store, authorizer, env.hub, nil)
	env.marketplace = usecases.NewMarketplaceUsecase(env.ads, env.profiles)
	return env
}

// router registers routes behind a stub auth that trusts the X-Test-User header
func (e *p2pEnv) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/p2p", asTestUser)

	ads := NewAdHandler(e.adUsecase)
	api.GET("/ads", ads.ListMyAds)
	api.POST("/ads", ads.CreateAd)
	api.POST("/ads/bulk-status", ads.BulkSetActive)
	api.GET("/ads/:id", ads.GetAd)
	api.PUT("/ads/:id", ads.UpdateAd)
	api.DELETE("/ads/:id", ads.DeleteAd)
	api.POST("/ads/:id/toggle", ads.ToggleAd)

	api.GET("/marketplace", NewMarketplaceHandler(e.marketplace).Search)

	orders := NewOrderHandler(e.orderUsecase)
	rel := NewReleaseHandler(e.releaseUsecase)
	api.POST("/orders", orders.CreateOrder)
	api.GET("/orders", orders.ListOrders)
	api.GET("/orders/:id", orders.GetOrder)
	api.POST("/orders/:id/mark-paid", orders.MarkPaid)
	api.POST("/orders/:id/cancel", orders.CancelOrder)
	api.POST("/orders/:id/dispute", orders.DisputeOrder)
	api.POST("/orders/:id/rate", orders.RateOrder)
	api.POST("/orders/:id/initiate-release", rel.InitiateRelease)
	api.POST("/orders/:id/confirm-release", rel.ConfirmRelease)
	api.GET("/orders/:id/stream", NewStreamHandler(e.orderUsecase, e.hub, nil).Stream)
	return r
}

func asTestUser(c *gin.Context) {
	c.Set(middleware.UserIDKey, c.GetHeader("X-Test-User"))
	c.Set(middleware.TokenKey, "token-"+c.GetHeader("X-Test-User"))
	c.Next()
}

func call(r http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validAdBody() map[string]interface{} {
	return map[string]interface{}{
		"type":           "sell",
		"cryptoCurrency": "USDT",
		"fiatCurrency":   "NGN",
		"price":          "1650",
		"available":      "1000",
		"minLimit":       "10000",
		"maxLimit":       "500000",
		"paymentMethods": []string{"Bank Transfer"},
	}
}
