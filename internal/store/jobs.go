// Package store keeps all in-flight video jobs in process memory and
// fans state changes out to per-job subscribers. A process restart loses
// in-flight jobs; that trade-off is accepted.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reelgen/internal/model"
	"reelgen/internal/pkg/id"
)

// Listener receives a full job snapshot on every state change.
type Listener func(*model.Video)

// Jobs is the registry of video jobs plus their subscriber sets. All
// access is serialized by one mutex: "read, mutate, notify" is atomic
// with respect to other notifications for the same id, so subscribers
// never observe interleaved partial updates.
type Jobs struct {
	mu        sync.Mutex
	jobs      map[string]*model.Video
	listeners map[string]map[int]Listener
	nextSub   int
}

// NewJobs creates an empty job store.
func NewJobs() *Jobs {
	return &Jobs{
		jobs:      make(map[string]*model.Video),
		listeners: make(map[string]map[int]Listener),
	}
}

// Create allocates a new job in status analyzing and returns a snapshot.
func (s *Jobs) Create(readme string) *model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &model.Video{
		ID:        id.New(),
		Status:    model.StatusAnalyzing,
		Readme:    readme,
		Scenes:    []model.SceneProgress{},
		CreatedAt: time.Now(),
	}
	s.jobs[v.ID] = v
	return v.Clone()
}

// Get returns a snapshot of the job, or false if the id is unknown.
func (s *Jobs) Get(jobID string) (*model.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// SetStatus overwrites the job status. errMsg, when non-empty, is
// recorded as the job's error message. No-op for unknown ids.
func (s *Jobs) SetStatus(jobID string, status model.Status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	v.Status = status
	if errMsg != "" {
		v.Error = errMsg
	}
	s.notifyLocked(jobID, v)
}

// SetAnalysis records the README analysis result.
func (s *Jobs) SetAnalysis(jobID string, analysis *model.ReadmeAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	v.Analysis = analysis
	s.notifyLocked(jobID, v)
}

// SetScript records the scene script and materializes one pending
// SceneProgress per script scene, preserving script order.
func (s *Jobs) SetScript(jobID string, script *model.VideoScript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	v.Script = script
	v.Scenes = make([]model.SceneProgress, 0, len(script.Scenes))
	for _, sc := range script.Scenes {
		v.Scenes = append(v.Scenes, model.SceneProgress{
			SceneNumber: sc.SceneNumber,
			JobID:       "",
			Status:      model.SceneStatusPending,
		})
	}
	s.notifyLocked(jobID, v)
}

// SetSceneJobID records the external render job id for a scene and moves
// the scene to generating.
func (s *Jobs) SetSceneJobID(jobID string, sceneNumber int, renderJobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	for i := range v.Scenes {
		if v.Scenes[i].SceneNumber == sceneNumber {
			v.Scenes[i].JobID = renderJobID
			v.Scenes[i].Status = model.SceneStatusGenerating
			break
		}
	}
	s.notifyLocked(jobID, v)
}

// SetSceneStatus updates one scene's status; videoURL, when non-empty,
// is recorded as the scene's asset URL.
func (s *Jobs) SetSceneStatus(jobID string, sceneNumber int, status model.SceneStatus, videoURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	for i := range v.Scenes {
		if v.Scenes[i].SceneNumber == sceneNumber {
			v.Scenes[i].Status = status
			if videoURL != "" {
				v.Scenes[i].VideoURL = videoURL
			}
			break
		}
	}
	s.notifyLocked(jobID, v)
}

// SetResult records the published asset and forces status ready.
func (s *Jobs) SetResult(jobID, assetID, playbackID, videoURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return
	}
	v.Status = model.StatusReady
	v.AssetID = assetID
	v.PlaybackID = playbackID
	if videoURL != "" {
		v.FinalVideoURL = videoURL
	}
	s.notifyLocked(jobID, v)
}

// AllScenesReady reports whether the job has at least one scene and
// every scene is ready.
func (s *Jobs) AllScenesReady(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok || len(v.Scenes) == 0 {
		return false
	}
	for _, sc := range v.Scenes {
		if sc.Status != model.SceneStatusReady {
			return false
		}
	}
	return true
}

// SceneVideoURLs returns scene asset URLs sorted by ascending scene
// number, skipping scenes without a URL.
func (s *Jobs) SceneVideoURLs(jobID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	scenes := append([]model.SceneProgress(nil), v.Scenes...)
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
	urls := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		if sc.VideoURL != "" {
			urls = append(urls, sc.VideoURL)
		}
	}
	return urls
}

// FindByJobID locates the job and scene tracking an external render job
// id. Linear scan over all jobs and scenes: fine for the expected handful
// of concurrent jobs, a scaling limit beyond that.
func (s *Jobs) FindByJobID(renderJobID string) (jobID string, sceneNumber int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jid, v := range s.jobs {
		for _, sc := range v.Scenes {
			if sc.JobID != "" && sc.JobID == renderJobID {
				return jid, sc.SceneNumber, true
			}
		}
	}
	return "", 0, false
}

// Subscribe registers a listener for a job's state changes and returns
// its unsubscribe function. The listener is invoked synchronously with a
// snapshot on every mutation; multiple listeners per job are supported.
func (s *Jobs) Subscribe(jobID string, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, ok := s.listeners[jobID]
	if !ok {
		subs = make(map[int]Listener)
		s.listeners[jobID] = subs
	}
	s.nextSub++
	key := s.nextSub
	subs[key] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.listeners[jobID]; ok {
			delete(subs, key)
			if len(subs) == 0 {
				delete(s.listeners, jobID)
			}
		}
	}
}

// Cleanup removes every job older than maxAge together with its
// subscriber set, regardless of status. Returns the number removed.
func (s *Jobs) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for jid, v := range s.jobs {
		if now.Sub(v.CreatedAt) > maxAge {
			delete(s.jobs, jid)
			delete(s.listeners, jid)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored jobs.
func (s *Jobs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// notifyLocked fans the updated job out to its subscribers. Caller holds
// the mutex. Listener panics are recovered so one bad subscriber cannot
// abort the store operation or starve the others.
func (s *Jobs) notifyLocked(jobID string, v *model.Video) {
	subs := s.listeners[jobID]
	if len(subs) == 0 {
		return
	}
	snapshot := v.Clone()
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("job_id", jobID).
						Msg("job listener panicked")
				}
			}()
			fn(snapshot)
		}()
	}
}
