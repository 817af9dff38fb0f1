package mux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"reelgen/internal/pkg/errs"
)

func TestStreamURL(t *testing.T) {
	Convey("StreamURL builds the HLS playback URL", t, func() {
		So(StreamURL("play-1"), ShouldEqual, "https://stream.mux.com/play-1.m3u8")
	})
}

func TestClient_PublishFromURL(t *testing.T) {
	Convey("PublishFromURL", t, func() {
		Convey("creates an asset from a remote URL with basic auth", func() {
			var gotUser, gotPass, gotPath string
			var gotBody map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, gotPass, _ = r.BasicAuth()
				gotPath = r.URL.Path
				json.NewDecoder(r.Body).Decode(&gotBody)
				fmt.Fprint(w, `{"data":{"id":"asset-1","status":"preparing","playback_ids":[{"id":"play-1"}]}}`)
			}))
			defer srv.Close()

			c := NewClient("token-id", "token-secret", WithBaseURL(srv.URL))
			asset, err := c.PublishFromURL(context.Background(), "http://cdn/final.mp4")

			So(err, ShouldBeNil)
			So(asset.AssetID, ShouldEqual, "asset-1")
			So(asset.PlaybackID, ShouldEqual, "play-1")
			So(gotUser, ShouldEqual, "token-id")
			So(gotPass, ShouldEqual, "token-secret")
			So(gotPath, ShouldEqual, "/video/v1/assets")
			inputs := gotBody["input"].([]any)
			So(inputs[0].(map[string]any)["url"], ShouldEqual, "http://cdn/final.mp4")
		})

		Convey("an asset without a playback id is an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":{"id":"asset-1","status":"preparing","playback_ids":[]}}`)
			}))
			defer srv.Close()

			c := NewClient("id", "secret", WithBaseURL(srv.URL))
			_, err := c.PublishFromURL(context.Background(), "http://cdn/final.mp4")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no playback id")
		})

		Convey("an API rejection surfaces status and body", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"bad credentials"}`, http.StatusUnauthorized)
			}))
			defer srv.Close()

			c := NewClient("id", "secret", WithBaseURL(srv.URL))
			_, err := c.PublishFromURL(context.Background(), "http://cdn/final.mp4")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "401")
		})
	})
}

func TestClient_PublishFromFile(t *testing.T) {
	Convey("PublishFromFile walks the direct-upload flow", t, func() {
		path := filepath.Join(t.TempDir(), "merged.mp4")
		So(os.WriteFile(path, []byte("fake video bytes"), 0o644), ShouldBeNil)

		var uploaded []byte
		var uploadPolls int32

		routes := http.NewServeMux()
		var srv *httptest.Server
		routes.HandleFunc("POST /video/v1/uploads", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"data":{"id":"upload-1","url":"%s/put-here"}}`, srv.URL)
		})
		routes.HandleFunc("PUT /put-here", func(w http.ResponseWriter, r *http.Request) {
			uploaded, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		})
		routes.HandleFunc("GET /video/v1/uploads/upload-1", func(w http.ResponseWriter, r *http.Request) {
			// Asset id shows up on the second poll.
			if atomic.AddInt32(&uploadPolls, 1) < 2 {
				fmt.Fprint(w, `{"data":{"status":"waiting"}}`)
				return
			}
			fmt.Fprint(w, `{"data":{"status":"asset_created","asset_id":"asset-7"}}`)
		})
		routes.HandleFunc("GET /video/v1/assets/asset-7", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"id":"asset-7","status":"preparing","playback_ids":[{"id":"play-7"}]}}`)
		})
		srv = httptest.NewServer(routes)
		defer srv.Close()

		c := NewClient("id", "secret", WithBaseURL(srv.URL), WithPolling(5, time.Millisecond))
		asset, err := c.PublishFromFile(context.Background(), path)

		So(err, ShouldBeNil)
		So(asset.AssetID, ShouldEqual, "asset-7")
		So(asset.PlaybackID, ShouldEqual, "play-7")
		So(string(uploaded), ShouldEqual, "fake video bytes")
		So(atomic.LoadInt32(&uploadPolls), ShouldEqual, 2)
	})

	Convey("a missing file fails the upload", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"id":"upload-1","url":"http://127.0.0.1:1/put-here"}}`)
		}))
		defer srv.Close()

		c := NewClient("id", "secret", WithBaseURL(srv.URL))
		_, err := c.PublishFromFile(context.Background(), "/nonexistent/clip.mp4")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "open upload file")
	})
}

func TestClient_WaitUntilReady(t *testing.T) {
	Convey("WaitUntilReady", t, func() {
		newServer := func(statuses ...string) (*httptest.Server, *int32) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				i := atomic.AddInt32(&calls, 1) - 1
				if int(i) >= len(statuses) {
					i = int32(len(statuses) - 1)
				}
				fmt.Fprintf(w, `{"data":{"id":"asset-1","status":"%s","playback_ids":[{"id":"play-1"}]}}`, statuses[i])
			}))
			return srv, &calls
		}

		Convey("returns once the asset is ready", func() {
			srv, calls := newServer("preparing", "preparing", "ready")
			defer srv.Close()

			c := NewClient("id", "secret", WithBaseURL(srv.URL), WithPolling(10, time.Millisecond))
			So(c.WaitUntilReady(context.Background(), "asset-1"), ShouldBeNil)
			So(atomic.LoadInt32(calls), ShouldEqual, 3)
		})

		Convey("an errored asset is a hard failure", func() {
			srv, _ := newServer("preparing", "errored")
			defer srv.Close()

			c := NewClient("id", "secret", WithBaseURL(srv.URL), WithPolling(10, time.Millisecond))
			err := c.WaitUntilReady(context.Background(), "asset-1")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "processing failed")
		})

		Convey("exhausting the attempts is a timeout", func() {
			srv, _ := newServer("preparing")
			defer srv.Close()

			c := NewClient("id", "secret", WithBaseURL(srv.URL), WithPolling(3, time.Millisecond))
			err := c.WaitUntilReady(context.Background(), "asset-1")
			So(errs.IsTimeout(err), ShouldBeTrue)
		})

		Convey("a cancelled context stops the wait", func() {
			srv, _ := newServer("preparing")
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := NewClient("id", "secret", WithBaseURL(srv.URL), WithPolling(10, time.Second))
			err := c.WaitUntilReady(ctx, "asset-1")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
