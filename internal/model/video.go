package model

import "time"

// Status is a video job's pipeline stage. Transitions move strictly
// forward along analyzing → scripting → generating → finalizing → ready;
// error is reachable from any non-terminal stage. ready and error are
// terminal.
type Status string

const (
	StatusAnalyzing  Status = "analyzing"
	StatusScripting  Status = "scripting"
	StatusGenerating Status = "generating"
	StatusFinalizing Status = "finalizing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// SceneStatus is the render state of one scene.
type SceneStatus string

const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusReady      SceneStatus = "ready"
	SceneStatusFailed     SceneStatus = "failed"
)

// ReadmeAnalysis is the structured summary the LLM extracts from a README.
type ReadmeAnalysis struct {
	ProjectName    string   `json:"project_name"`
	Tagline        string   `json:"tagline"`
	Problem        string   `json:"problem"`
	Solution       string   `json:"solution"`
	Features       []string `json:"features"`
	TechStack      []string `json:"tech_stack"`
	TargetAudience string   `json:"target_audience"`
}

// ScriptScene is one planned scene of the promo video.
type ScriptScene struct {
	SceneNumber   int    `json:"scene_number"`
	Duration      int    `json:"duration"` // seconds
	Description   string `json:"description"`
	NarrationText string `json:"narration_text,omitempty"`
	Prompt        string `json:"prompt"` // text-to-video generation prompt
}

// VideoScript is the ordered scene plan produced by the scripting stage.
type VideoScript struct {
	Title         string        `json:"title"`
	TotalDuration int           `json:"total_duration"`
	Scenes        []ScriptScene `json:"scenes"`
}

// SceneProgress tracks the render job of one script scene. SceneNumber
// matches the script scene by value.
type SceneProgress struct {
	SceneNumber int         `json:"scene_number"`
	JobID       string      `json:"job_id"` // external render job id, empty until submitted
	Status      SceneStatus `json:"status"`
	VideoURL    string      `json:"video_url,omitempty"` // set only when ready
}

// Video is one end-to-end generation job. The pipeline is its sole
// writer; the job store owns its lifetime; subscribers only read
// snapshots.
type Video struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	Readme        string          `json:"readme"`
	Analysis      *ReadmeAnalysis `json:"analysis,omitempty"`
	Script        *VideoScript    `json:"script,omitempty"`
	Scenes        []SceneProgress `json:"scenes"`
	AssetID       string          `json:"asset_id,omitempty"`     // published asset id
	PlaybackID    string          `json:"playback_id,omitempty"`  // hosting playback id
	FinalVideoURL string          `json:"final_video_url,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Clone returns a deep copy safe to hand to subscribers.
func (v *Video) Clone() *Video {
	cp := *v
	if v.Analysis != nil {
		a := *v.Analysis
		a.Features = append([]string(nil), v.Analysis.Features...)
		a.TechStack = append([]string(nil), v.Analysis.TechStack...)
		cp.Analysis = &a
	}
	if v.Script != nil {
		s := *v.Script
		s.Scenes = append([]ScriptScene(nil), v.Script.Scenes...)
		cp.Script = &s
	}
	cp.Scenes = append([]SceneProgress(nil), v.Scenes...)
	return &cp
}
