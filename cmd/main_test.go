package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/adapters/http/swagger"
	app "github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/pkg/logger"
)

func init() {
	logger.Init()
}

func TestConfigurationLoading(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("VIGIL_ADDR", ":8080")
		_ = os.Setenv("VIGIL_LOW_THRESHOLD", "0.2")
		_ = os.Setenv("VIGIL_DISPATCH_WORKER_COUNT", "4")
		defer func() {
			_ = os.Unsetenv("VIGIL_ADDR")
			_ = os.Unsetenv("VIGIL_LOW_THRESHOLD")
			_ = os.Unsetenv("VIGIL_DISPATCH_WORKER_COUNT")
		}()

		convey.Convey("Configuration loads with the overrides applied", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg, convey.ShouldNotBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.LowThreshold, convey.ShouldEqual, 0.2)
			convey.So(cfg.DispatchWorkerCount, convey.ShouldEqual, 4)
		})
	})
}

func TestServerAssembly(t *testing.T) {
	convey.Convey("Given a service and the full route set", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc := app.New(ctx, config.NewStore(config.New()))
		svc.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = svc.Stop(stopCtx)
		}()

		router := chi.NewRouter()
		swagger.Register(ctx, router)
		api.NewServer(svc, svc).Register(ctx, router)

		convey.Convey("The health endpoint responds", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("The stats endpoint responds", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, "decisions")
		})

		convey.Convey("The API docs are served", func() {
			req := httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestSystemMetricsUpdate(t *testing.T) {
	convey.Convey("Updating system metrics does not panic", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
