package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	convey.Convey("Given no file and no environment overrides", t, func() {
		ctx := context.Background()

		cfg, err := Load(ctx)

		convey.Convey("Then the defaults apply", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ModelKind, convey.ShouldEqual, ModelKindBayesian)
			convey.So(cfg.AdstockDecay, convey.ShouldEqual, 0.3)
			convey.So(cfg.SpendFilePattern, convey.ShouldEqual, "*_spend*")
			convey.So(cfg.SalesFileName, convey.ShouldEqual, "sales_data")
			convey.So(cfg.MinTrainingRows, convey.ShouldEqual, 30)
			convey.So(cfg.MinChannels, convey.ShouldEqual, 2)
			convey.So(cfg.BayesChains, convey.ShouldEqual, 2)
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, int64(32<<20))
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	convey.Convey("Given MMX_ environment overrides", t, func() {
		ctx := context.Background()
		t.Setenv("MMX_ADDR", ":7070")
		t.Setenv("MMX_MODEL_KIND", "linear")
		t.Setenv("MMX_ADSTOCK_DECAY", "0.5")
		t.Setenv("MMX_BAYES_DRAWS", "500")

		cfg, err := Load(ctx)

		convey.Convey("Then env values win over defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.ModelKind, convey.ShouldEqual, ModelKindLinear)
			convey.So(cfg.AdstockDecay, convey.ShouldEqual, 0.5)
			convey.So(cfg.BayesDraws, convey.ShouldEqual, 500)
		})
	})
}

func TestLoadFile(t *testing.T) {
	convey.Convey("Given a YAML config file via MMX_CONFIG", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "addr: \":8181\"\nmodel_kind: linear\nadstock_decay: 0.4\n"
		convey.So(os.WriteFile(path, []byte(body), 0o644), convey.ShouldBeNil)
		t.Setenv("MMX_CONFIG", path)

		convey.Convey("When loading without other overrides", func() {
			cfg, err := Load(ctx)

			convey.Convey("Then file values win over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.ModelKind, convey.ShouldEqual, ModelKindLinear)
				convey.So(cfg.AdstockDecay, convey.ShouldEqual, 0.4)
			})
		})

		convey.Convey("When an env var shadows a file value", func() {
			t.Setenv("MMX_ADDR", ":9999")
			cfg, err := Load(ctx)

			convey.Convey("Then env wins over file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
				convey.So(cfg.ModelKind, convey.ShouldEqual, ModelKindLinear)
			})
		})

		convey.Convey("When MMX_CONFIG points nowhere", func() {
			t.Setenv("MMX_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldWrap, ErrLoadConfig)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given configuration validation", t, func() {
		convey.Convey("When the defaults are validated", func() {
			convey.So(New().Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the model kind is unknown", func() {
			c := New()
			c.ModelKind = "quadratic"
			convey.So(c.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})

		convey.Convey("When the decay is out of range", func() {
			c := New()
			c.AdstockDecay = 1.0
			convey.So(c.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})

		convey.Convey("When the address is empty", func() {
			c := New()
			c.Addr = ""
			convey.So(c.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})

		convey.Convey("When a single chain is configured", func() {
			c := New()
			c.BayesChains = 1
			convey.So(c.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})

		convey.Convey("When draws are non-positive", func() {
			c := New()
			c.BayesDraws = 0
			convey.So(c.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})
	})
}
