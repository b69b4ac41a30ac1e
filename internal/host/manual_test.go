package host_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"coopsched/internal/host"
)

func TestManual(t *testing.T) {
	Convey("Given a manual host", t, func() {
		h := host.NewManual()

		Convey("Requested callbacks do not run synchronously", func() {
			ran := false
			h.RequestCallback(func() { ran = true })

			So(ran, ShouldBeFalse)
			So(h.Pending(), ShouldEqual, 1)

			Convey("and run once on the next tick", func() {
				So(h.Tick(), ShouldBeTrue)
				So(ran, ShouldBeTrue)
				So(h.Tick(), ShouldBeFalse)
				So(h.Turns(), ShouldEqual, 1)
			})
		})

		Convey("Callbacks run in request order", func() {
			var order []int
			for i := range 3 {
				h.RequestCallback(func() { order = append(order, i) })
			}

			So(h.Drain(0), ShouldEqual, 3)
			So(order, ShouldResemble, []int{0, 1, 2})
		})

		Convey("A callback re-arming itself runs on a later turn", func() {
			count := 0
			var step func()
			step = func() {
				count++
				if count < 4 {
					h.RequestCallback(step)
				}
			}
			h.RequestCallback(step)

			So(h.Tick(), ShouldBeTrue)
			So(count, ShouldEqual, 1)
			So(h.Pending(), ShouldEqual, 1)

			So(h.Drain(0), ShouldEqual, 3)
			So(count, ShouldEqual, 4)
			So(h.Turns(), ShouldEqual, 4)
		})

		Convey("Drain honours its limit", func() {
			for range 5 {
				h.RequestCallback(func() {})
			}

			So(h.Drain(2), ShouldEqual, 2)
			So(h.Pending(), ShouldEqual, 3)
		})
	})
}
