package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/strata/internal/domain/dedupe"
)

func TestInMemoryGuard(t *testing.T) {
	Convey("Given a new in-memory guard", t, func() {
		ctx := context.Background()

		Convey("When creating a guard with default options", func() {
			g := dedupe.NewInMemoryGuard()

			Convey("Then it should start empty", func() {
				So(g, ShouldNotBeNil)
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording hashes", func() {
			g := dedupe.NewInMemoryGuard()

			Convey("And the hash is new", func() {
				existing, seen := g.SeenAndRecord(ctx, "hash-1", "rec-1")

				Convey("Then it should record the mapping", func() {
					So(seen, ShouldBeFalse)
					So(existing, ShouldBeEmpty)
					So(g.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the hash was already seen", func() {
				g.SeenAndRecord(ctx, "hash-1", "rec-1")
				existing, seen := g.SeenAndRecord(ctx, "hash-1", "rec-2")

				Convey("Then it should return the original record id", func() {
					So(seen, ShouldBeTrue)
					So(existing, ShouldEqual, "rec-1")
					So(g.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording a hash", func() {
			g := dedupe.NewInMemoryGuard()
			g.SeenAndRecord(ctx, "hash-1", "rec-1")
			g.Unrecord(ctx, "hash-1")

			Convey("Then the hash should be ingestible again", func() {
				So(g.Size(), ShouldEqual, 0)
				_, seen := g.SeenAndRecord(ctx, "hash-1", "rec-2")
				So(seen, ShouldBeFalse)
			})

			Convey("And unrecording an unknown hash should be a no-op", func() {
				g.Unrecord(ctx, "never-seen")
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the guard reaches its size bound", func() {
			g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(3))
			for i := 0; i < 3; i++ {
				g.SeenAndRecord(ctx, fmt.Sprintf("hash-%d", i), fmt.Sprintf("rec-%d", i))
			}
			g.SeenAndRecord(ctx, "hash-3", "rec-3")

			Convey("Then the oldest entry should be evicted", func() {
				So(g.Size(), ShouldEqual, 3)
				_, seen := g.SeenAndRecord(ctx, "hash-0", "rec-0b")
				So(seen, ShouldBeFalse)
			})

			Convey("And the newest entries should survive", func() {
				_, seen := g.SeenAndRecord(ctx, "hash-3", "rec-x")
				So(seen, ShouldBeTrue)
			})
		})

		Convey("When accessed concurrently", func() {
			g := dedupe.NewInMemoryGuard()
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					g.SeenAndRecord(ctx, fmt.Sprintf("hash-%d", n%10), fmt.Sprintf("rec-%d", n))
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one record should win per hash", func() {
				So(g.Size(), ShouldEqual, 10)
			})
		})
	})
}
