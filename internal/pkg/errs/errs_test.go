package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProviderError(t *testing.T) {
	Convey("ProviderError", t, func() {
		cause := errors.New("connection refused")
		err := Provider("kie", "submit task", cause)

		Convey("formats provider, op and cause", func() {
			So(err.Error(), ShouldEqual, "kie: submit task: connection refused")
		})

		Convey("unwraps to the cause", func() {
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("is recoverable through wrapping", func() {
			wrapped := fmt.Errorf("scene 2: %w", err)
			var pe *ProviderError
			So(errors.As(wrapped, &pe), ShouldBeTrue)
			So(pe.Provider, ShouldEqual, "kie")
		})
	})
}

func TestTimeoutError(t *testing.T) {
	Convey("TimeoutError", t, func() {
		err := Timeout("mux", "wait asset ready", 60, 3*time.Second)

		Convey("reports as a timeout", func() {
			So(err.Timeout(), ShouldBeTrue)
			So(IsTimeout(err), ShouldBeTrue)
		})

		Convey("survives wrapping", func() {
			So(IsTimeout(fmt.Errorf("finalize: %w", err)), ShouldBeTrue)
		})

		Convey("plain errors are not timeouts", func() {
			So(IsTimeout(errors.New("no")), ShouldBeFalse)
			So(IsTimeout(nil), ShouldBeFalse)
		})

		Convey("names the bounds in the message", func() {
			So(err.Error(), ShouldContainSubstring, "mux")
			So(err.Error(), ShouldContainSubstring, "60")
		})
	})
}
