package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.Mode = "release"
	cfg.Pipeline.SceneSeconds = 15
	cfg.Render.PollAttempts = 60
	cfg.Publish.PollAttempts = 60
	return cfg
}

func TestConfigValidate(t *testing.T) {
	Convey("Validate", t, func() {
		Convey("accepts a sane configuration", func() {
			So(validConfig().Validate(), ShouldBeNil)
		})

		Convey("rejects an out-of-range port", func() {
			for _, port := range []int{0, -1, 70000} {
				cfg := validConfig()
				cfg.Server.Port = port
				So(cfg.Validate(), ShouldNotBeNil)
			}
		})

		Convey("rejects an unknown server mode", func() {
			cfg := validConfig()
			cfg.Server.Mode = "production"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("rejects non-positive scene seconds", func() {
			cfg := validConfig()
			cfg.Pipeline.SceneSeconds = 0
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("rejects non-positive poll attempts", func() {
			cfg := validConfig()
			cfg.Render.PollAttempts = 0
			So(cfg.Validate(), ShouldNotBeNil)

			cfg = validConfig()
			cfg.Publish.PollAttempts = -1
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
