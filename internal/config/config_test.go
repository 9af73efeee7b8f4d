package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/strata/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.SQLitePath, convey.ShouldEqual, "strata.db")
			convey.So(cfg.RescoreQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.ConflictRadius, convey.ShouldEqual, 1.0)
			convey.So(cfg.CellSize, convey.ShouldEqual, 1.0)
			convey.So(cfg.MaxConflictLimit, convey.ShouldEqual, 500)
			convey.So(cfg.Profiles, convey.ShouldBeEmpty)
		})
	})
}
