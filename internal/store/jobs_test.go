package store

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"reelgen/internal/model"
)

func twoSceneScript() *model.VideoScript {
	return &model.VideoScript{
		Title:         "Test Video",
		TotalDuration: 30,
		Scenes: []model.ScriptScene{
			{SceneNumber: 1, Duration: 15, Description: "opening", Prompt: "p1"},
			{SceneNumber: 2, Duration: 15, Description: "closing", Prompt: "p2"},
		},
	}
}

func TestJobs_CreateAndGet(t *testing.T) {
	Convey("Create allocates a fresh analyzing job", t, func() {
		jobs := NewJobs()
		v := jobs.Create("# My Project")

		So(v.ID, ShouldNotBeEmpty)
		So(v.Status, ShouldEqual, model.StatusAnalyzing)
		So(v.Readme, ShouldEqual, "# My Project")
		So(v.Scenes, ShouldBeEmpty)
		So(v.CreatedAt.IsZero(), ShouldBeFalse)

		Convey("Get returns a snapshot for a known id", func() {
			got, ok := jobs.Get(v.ID)
			So(ok, ShouldBeTrue)
			So(got.ID, ShouldEqual, v.ID)
		})

		Convey("Get misses for an unknown id", func() {
			_, ok := jobs.Get("nope")
			So(ok, ShouldBeFalse)
		})

		Convey("snapshots are copies, not aliases", func() {
			a, _ := jobs.Get(v.ID)
			a.Status = model.StatusError
			b, _ := jobs.Get(v.ID)
			So(b.Status, ShouldEqual, model.StatusAnalyzing)
		})
	})
}

func TestJobs_SetScript(t *testing.T) {
	Convey("SetScript materializes scene progress from the script", t, func() {
		jobs := NewJobs()
		v := jobs.Create("readme")
		jobs.SetScript(v.ID, twoSceneScript())

		got, _ := jobs.Get(v.ID)
		So(got.Script, ShouldNotBeNil)
		So(len(got.Scenes), ShouldEqual, len(got.Script.Scenes))
		So(got.Scenes[0].SceneNumber, ShouldEqual, 1)
		So(got.Scenes[1].SceneNumber, ShouldEqual, 2)
		for _, sc := range got.Scenes {
			So(sc.Status, ShouldEqual, model.SceneStatusPending)
			So(sc.JobID, ShouldBeEmpty)
		}
	})
}

func TestJobs_SceneUpdates(t *testing.T) {
	Convey("With a scripted job", t, func() {
		jobs := NewJobs()
		v := jobs.Create("readme")
		jobs.SetScript(v.ID, twoSceneScript())

		Convey("SetSceneJobID records the render job and flips to generating", func() {
			jobs.SetSceneJobID(v.ID, 1, "task-1")

			got, _ := jobs.Get(v.ID)
			So(got.Scenes[0].JobID, ShouldEqual, "task-1")
			So(got.Scenes[0].Status, ShouldEqual, model.SceneStatusGenerating)
			So(got.Scenes[1].Status, ShouldEqual, model.SceneStatusPending)
		})

		Convey("AllScenesReady is false until every scene is ready", func() {
			So(jobs.AllScenesReady(v.ID), ShouldBeFalse)

			jobs.SetSceneStatus(v.ID, 2, model.SceneStatusReady, "http://cdn/s2.mp4")
			So(jobs.AllScenesReady(v.ID), ShouldBeFalse)

			jobs.SetSceneStatus(v.ID, 1, model.SceneStatusReady, "http://cdn/s1.mp4")
			So(jobs.AllScenesReady(v.ID), ShouldBeTrue)
		})

		Convey("AllScenesReady is false with no scenes", func() {
			empty := jobs.Create("other")
			So(jobs.AllScenesReady(empty.ID), ShouldBeFalse)
		})

		Convey("SceneVideoURLs sorts by scene number and skips empty URLs", func() {
			// Scene 2 finishes first; order must still be 1, 2.
			jobs.SetSceneStatus(v.ID, 2, model.SceneStatusReady, "http://cdn/s2.mp4")
			So(jobs.SceneVideoURLs(v.ID), ShouldResemble, []string{"http://cdn/s2.mp4"})

			jobs.SetSceneStatus(v.ID, 1, model.SceneStatusReady, "http://cdn/s1.mp4")
			So(jobs.SceneVideoURLs(v.ID), ShouldResemble, []string{"http://cdn/s1.mp4", "http://cdn/s2.mp4"})
		})

		Convey("FindByJobID locates the owning job and scene", func() {
			jobs.SetSceneJobID(v.ID, 2, "task-2")

			jobID, sceneNumber, ok := jobs.FindByJobID("task-2")
			So(ok, ShouldBeTrue)
			So(jobID, ShouldEqual, v.ID)
			So(sceneNumber, ShouldEqual, 2)

			_, _, ok = jobs.FindByJobID("missing")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestJobs_StatusAndResult(t *testing.T) {
	Convey("Status and result updates", t, func() {
		jobs := NewJobs()
		v := jobs.Create("readme")

		Convey("SetStatus records an error message when given", func() {
			jobs.SetStatus(v.ID, model.StatusError, "scene 1 failed")
			got, _ := jobs.Get(v.ID)
			So(got.Status, ShouldEqual, model.StatusError)
			So(got.Error, ShouldEqual, "scene 1 failed")
		})

		Convey("SetStatus is a no-op for unknown ids", func() {
			So(func() { jobs.SetStatus("nope", model.StatusError, "x") }, ShouldNotPanic)
		})

		Convey("SetResult forces status ready", func() {
			jobs.SetResult(v.ID, "asset-1", "play-1", "https://stream/play-1.m3u8")
			got, _ := jobs.Get(v.ID)
			So(got.Status, ShouldEqual, model.StatusReady)
			So(got.AssetID, ShouldEqual, "asset-1")
			So(got.PlaybackID, ShouldEqual, "play-1")
			So(got.FinalVideoURL, ShouldEqual, "https://stream/play-1.m3u8")
		})
	})
}

func TestJobs_Subscribe(t *testing.T) {
	Convey("Subscribers receive a snapshot on every mutation", t, func() {
		jobs := NewJobs()
		v := jobs.Create("readme")

		var seen []model.Status
		unsubscribe := jobs.Subscribe(v.ID, func(snapshot *model.Video) {
			seen = append(seen, snapshot.Status)
		})

		jobs.SetStatus(v.ID, model.StatusScripting, "")
		jobs.SetStatus(v.ID, model.StatusGenerating, "")
		So(seen, ShouldResemble, []model.Status{model.StatusScripting, model.StatusGenerating})

		Convey("unsubscribe stops delivery", func() {
			unsubscribe()
			jobs.SetStatus(v.ID, model.StatusError, "boom")
			So(len(seen), ShouldEqual, 2)
		})

		Convey("multiple subscribers all get notified", func() {
			calls := 0
			defer jobs.Subscribe(v.ID, func(*model.Video) { calls++ })()
			jobs.SetStatus(v.ID, model.StatusFinalizing, "")
			So(calls, ShouldEqual, 1)
			So(len(seen), ShouldEqual, 3)
		})

		Convey("a panicking subscriber does not break the others", func() {
			defer jobs.Subscribe(v.ID, func(*model.Video) { panic("bad listener") })()
			So(func() { jobs.SetStatus(v.ID, model.StatusFinalizing, "") }, ShouldNotPanic)
			So(len(seen), ShouldEqual, 3)
		})
	})
}

func TestJobs_Cleanup(t *testing.T) {
	Convey("Cleanup removes old jobs in any status along with subscribers", t, func() {
		jobs := NewJobs()
		old := jobs.Create("old readme")
		jobs.SetResult(old.ID, "a", "p", "")
		fresh := jobs.Create("fresh readme")

		notified := 0
		jobs.Subscribe(old.ID, func(*model.Video) { notified++ })

		// Age the first job past the window.
		jobs.mu.Lock()
		jobs.jobs[old.ID].CreatedAt = time.Now().Add(-2 * time.Hour)
		jobs.mu.Unlock()

		removed := jobs.Cleanup(time.Hour)
		So(removed, ShouldEqual, 1)
		So(jobs.Len(), ShouldEqual, 1)

		_, ok := jobs.Get(old.ID)
		So(ok, ShouldBeFalse)
		_, ok = jobs.Get(fresh.ID)
		So(ok, ShouldBeTrue)

		// The old job's subscribers went with it.
		jobs.mu.Lock()
		_, hasListeners := jobs.listeners[old.ID]
		jobs.mu.Unlock()
		So(hasListeners, ShouldBeFalse)
	})
}
