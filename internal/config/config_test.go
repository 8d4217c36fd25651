package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

func init() {
	logger.Init()
}

func TestDefaults(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := New()

		Convey("It validates", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("The review band is well-formed", func() {
			So(cfg.LowThreshold, ShouldBeLessThan, cfg.HighThreshold)
		})

		Convey("Priority tiers map to SLA budgets", func() {
			So(cfg.PrioritySLA(model.PriorityP1), ShouldEqual, 30*time.Minute)
			So(cfg.PrioritySLA(model.PriorityP4), ShouldEqual, 24*time.Hour)
		})

		Convey("Each lifecycle stage carries its own budget", func() {
			So(cfg.FirstActionSLA(model.PriorityP1), ShouldEqual, 10*time.Minute)
			So(cfg.FirstActionSLA(model.PriorityP3), ShouldEqual, 2*time.Hour)
			So(cfg.ResolutionSLA(model.PriorityP1), ShouldEqual, 30*time.Minute)
			So(cfg.ResolutionSLA(model.PriorityP3), ShouldEqual, 8*time.Hour)
		})

		Convey("An unconfigured stage budget falls back to the tier budget", func() {
			cfg.FirstActionSLAMinutes = nil
			cfg.ResolutionSLAMinutes = map[string]int{"p1": 0}
			So(cfg.FirstActionSLA(model.PriorityP2), ShouldEqual, cfg.PrioritySLA(model.PriorityP2))
			So(cfg.ResolutionSLA(model.PriorityP1), ShouldEqual, cfg.PrioritySLA(model.PriorityP1))
		})

		Convey("Escalation tightens the budget but never below a minute", func() {
			base := cfg.PrioritySLA(model.PriorityP1)
			So(cfg.EscalatedSLA(model.PriorityP1, 1), ShouldEqual, base/2)
			So(cfg.EscalatedSLA(model.PriorityP1, 50), ShouldEqual, time.Minute)
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Given invalid configurations", t, func() {
		Convey("An inverted review band is rejected", func() {
			cfg := New()
			cfg.LowThreshold = 0.9
			cfg.HighThreshold = 0.3
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("An out-of-range threshold is rejected", func() {
			cfg := New()
			cfg.HighThreshold = 1.4
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("A non-positive monitor window is rejected", func() {
			cfg := New()
			cfg.MonitorWindowSeconds = 0
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}

func TestLoadLayering(t *testing.T) {
	Convey("Given a config file and environment overrides", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "vigil.yaml")
		content := []byte("addr: \":7070\"\nlow_threshold: 0.25\nmodel_version: gbm-file\n")
		So(os.WriteFile(path, content, 0600), ShouldBeNil)

		_ = os.Setenv("VIGIL_MODEL_VERSION", "gbm-env")
		defer os.Unsetenv("VIGIL_MODEL_VERSION")

		Convey("Env beats file beats defaults", func() {
			cfg, err := LoadFile(context.Background(), path)
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.LowThreshold, ShouldEqual, 0.25)
			So(cfg.ModelVersion, ShouldEqual, "gbm-env")
			So(cfg.HighThreshold, ShouldEqual, New().HighThreshold)
		})

		Convey("An invalid file is rejected at load time", func() {
			bad := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(bad, []byte("low_threshold: 0.9\nhigh_threshold: 0.2\n"), 0600), ShouldBeNil)

			_, err := LoadFile(context.Background(), bad)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStoreSnapshotSwap(t *testing.T) {
	Convey("Given a store with a published snapshot", t, func() {
		first := New()
		store := NewStore(first)

		So(store.Snapshot(), ShouldEqual, first)

		Convey("Replace swaps the snapshot atomically", func() {
			second := New()
			second.LowThreshold = 0.2
			store.Replace(second)

			So(store.Snapshot(), ShouldEqual, second)
			So(store.Snapshot().LowThreshold, ShouldEqual, 0.2)
		})
	})
}
