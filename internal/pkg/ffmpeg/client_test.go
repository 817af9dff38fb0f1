package ffmpeg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClient_MergeSingleClip(t *testing.T) {
	Convey("Merge with one URL is a plain download", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "clip bytes")
		}))
		defer srv.Close()

		c := NewClient()
		path, err := c.Merge(context.Background(), []string{srv.URL + "/clip.mp4"})
		So(err, ShouldBeNil)
		defer c.Cleanup(path)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, "clip bytes")
		So(filepath.Base(filepath.Dir(path)), ShouldStartWith, "reelgen_merge_")

		Convey("Cleanup removes the whole workspace", func() {
			c.Cleanup(path)
			_, statErr := os.Stat(filepath.Dir(path))
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}

func TestClient_MergeErrors(t *testing.T) {
	Convey("Merge", t, func() {
		c := NewClient()

		Convey("rejects an empty clip list", func() {
			_, err := c.Merge(context.Background(), nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no videos")
		})

		Convey("a failed download leaves no workspace behind", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			}))
			defer srv.Close()

			before := mergeWorkspaces(t)
			_, err := c.Merge(context.Background(), []string{srv.URL + "/clip.mp4"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
			So(mergeWorkspaces(t), ShouldEqual, before)
		})
	})
}

func mergeWorkspaces(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "reelgen_merge_") {
			n++
		}
	}
	return n
}

func TestClient_Cleanup(t *testing.T) {
	Convey("Cleanup", t, func() {
		Convey("a blank path is a no-op", func() {
			So(func() { NewClient().Cleanup("") }, ShouldNotPanic)
		})

		Convey("a file outside a merge workspace is removed alone", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "stray.mp4")
			So(os.WriteFile(path, []byte("x"), 0o644), ShouldBeNil)

			NewClient().Cleanup(path)

			_, err := os.Stat(path)
			So(os.IsNotExist(err), ShouldBeTrue)
			_, err = os.Stat(dir)
			So(err, ShouldBeNil)
		})
	})
}
