package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/squad/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it starts empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording request ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "req-1")

				Convey("Then it returns false and records the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "req-1")
				seen := d.SeenAndRecord(ctx, "req-1")

				Convey("Then it returns true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording ids", func() {
			d := dedupe.NewInMemoryDeduper()
			for _, id := range []string{"a", "b", "c"} {
				d.SeenAndRecord(ctx, id)
			}

			Convey("And the id exists", func() {
				d.Unrecord(ctx, "b")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 2)
					So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
					So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
					So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				})
			})

			Convey("And the id does not exist", func() {
				d.Unrecord(ctx, "zzz")

				Convey("Then the size is unchanged", func() {
					So(d.Size(), ShouldEqual, 3)
				})
			})

			Convey("And the head and tail are removed", func() {
				d.Unrecord(ctx, "a")
				d.Unrecord(ctx, "c")

				Convey("Then the middle entry survives", func() {
					So(d.Size(), ShouldEqual, 1)
					So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"req-1", "req-2", "req-3"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}
			So(d.SeenAndRecord(ctx, "req-4"), ShouldBeFalse)

			Convey("Then the oldest id is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "req-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)), ShouldBeFalse)
			}

			Convey("Then every id is kept", func() {
				So(d.Size(), ShouldEqual, int64(n))
				for i := 0; i < n; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i)), ShouldBeTrue)
				}
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const workers, perWorker = 10, 100

		Convey("When the same ids are submitted from many goroutines", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("req-%d", j)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is accepted exactly once", func() {
				So(fresh, ShouldEqual, perWorker)
				So(d.Size(), ShouldEqual, int64(perWorker))
			})
		})

		Convey("When goroutines record and unrecord disjoint ids", func() {
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						id := fmt.Sprintf("req-%d-%d", w, j)
						d.SeenAndRecord(ctx, id)
						if j%2 == 0 {
							d.Unrecord(ctx, id)
						}
					}
				}(i)
			}
			wg.Wait()

			Convey("Then only the kept half remains", func() {
				So(d.Size(), ShouldEqual, int64(workers*perWorker/2))
			})
		})
	})
}
