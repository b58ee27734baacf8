package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/parrot/internal/config"
	"github.com/okian/parrot/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.UploadDir = t.TempDir()
	cfg.STTURL = "http://127.0.0.1:1"
	cfg.TTSURL = "http://127.0.0.1:2"
	return cfg
}

func TestMainFunction(t *testing.T) {
	_ = logger.Init(logger.WithOutput(io.Discard))

	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			t.Setenv("PARROT_ADDR", ":8080")
			t.Setenv("PARROT_QUEUE_SIZE", "100")
			t.Setenv("PARROT_WORKER_COUNT", "2")

			convey.Convey("Then the overrides are applied", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			cfg := testConfig(t)
			svc, err := newService(cfg, logger.Get())

			convey.Convey("Then it supports the configured languages", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.SupportsLanguage("en"), convey.ShouldBeTrue)
				convey.So(svc.SupportsLanguage("ar"), convey.ShouldBeTrue)
				convey.So(svc.SupportsLanguage("fr"), convey.ShouldBeFalse)
			})

			convey.Convey("And it starts and stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, true)
				svc.Stop()
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
			})
		})

		convey.Convey("When the speech backend URL is missing", func() {
			cfg := testConfig(t)
			cfg.STTURL = ""
			_, err := newService(cfg, logger.Get())

			convey.Convey("Then building the service fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When building the HTTP mux", func() {
			cfg := testConfig(t)
			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			mux := newMux(context.Background(), cfg, svc, logger.Get())

			convey.Convey("Then business and docs routes are served", func() {
				for _, path := range []string{"/", "/languages", "/stats", "/healthz", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()

			convey.Convey("Then they return", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("system metrics updater did not stop")
				}
			})
		})

		convey.Convey("When updating system metrics directly", func() {
			convey.Convey("Then it does not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})
	})
}
