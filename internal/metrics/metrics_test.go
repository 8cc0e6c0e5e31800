package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rosterlab/rosterlab/internal/metrics"
)

func TestRecorder(t *testing.T) {
	Convey("Given a fresh recorder", t, func() {
		r := metrics.New()

		Convey("When generation attempts are recorded", func() {
			r.GenerationAttempt("gemini-2.5-flash", metrics.OutcomeRetryable)
			r.GenerationAttempt("gemini-2.0-flash", metrics.OutcomeSuccess)
			r.GenerationFallback()

			Convey("Then the counters are exported", func() {
				n, err := testutil.GatherAndCount(r.Registry(), "rosterlab_generation_attempts_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When the handler is scraped", func() {
			r.RateLimited("suggest")
			r.ObservePipeline("suggest", "ok", 2*time.Second)
			r.ObservePool("scratch", 40, false)

			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then the exposition contains the series", func() {
				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(string(body), `rosterlab_rate_limited_total{endpoint="suggest"} 1`), ShouldBeTrue)
				So(strings.Contains(string(body), "rosterlab_retrieval_pool_size"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a nil recorder", t, func() {
		var r *metrics.Recorder

		Convey("Then every method is a no-op", func() {
			So(func() {
				r.GenerationAttempt("m", metrics.OutcomeFatal)
				r.SchemaError("suggest")
				r.Backfilled(3)
				r.MovepoolLookup("hit")
			}, ShouldNotPanic)
		})
	})
}
