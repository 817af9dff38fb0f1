package model

// Style selects the visual/narration mood of the generated script.
type Style string

const (
	StyleTech      Style = "tech"
	StyleMinimal   Style = "minimal"
	StyleEnergetic Style = "energetic"
)

// Quality selects the render backend tier.
type Quality string

const (
	QualityBase  Quality = "base"
	QualityPro   Quality = "pro"
	QualityProHD Quality = "pro-hd"
)

// Credentials are the caller-supplied upstream secrets (BYOK). All four
// are required; none are kept beyond the job's in-memory lifetime.
type Credentials struct {
	KieAPIKey      string `json:"kie_api_key" binding:"required"`
	MuxTokenID     string `json:"mux_token_id" binding:"required"`
	MuxTokenSecret string `json:"mux_token_secret" binding:"required"`
	LLMAPIKey      string `json:"llm_api_key" binding:"required"`
}

// GenerateRequest is the create-video request body.
type GenerateRequest struct {
	Source      string      `json:"source" binding:"required,oneof=url text"`
	Content     string      `json:"content" binding:"required"`
	Style       Style       `json:"style" binding:"required,oneof=tech minimal energetic"`
	Duration    int         `json:"duration" binding:"required,oneof=15 30 60"`
	Quality     Quality     `json:"quality" binding:"omitempty,oneof=base pro pro-hd"`
	Provider    string      `json:"provider" binding:"omitempty,oneof=openai openrouter gemini ark"`
	Model       string      `json:"model"`
	Credentials Credentials `json:"credentials" binding:"required"`
}

// GenerateResponse is returned once the job is accepted.
type GenerateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RenderCallback is the deprecated push notification from the render
// backend. Unreliable under per-request credentials: the callback cannot
// recover the keys needed to continue the pipeline, so it only updates
// scene state opportunistically.
type RenderCallback struct {
	TaskID string `json:"taskId" binding:"required"`
	Status string `json:"status" binding:"required,oneof=succeed succeeded failed"`
	Output *struct {
		VideoURL string `json:"videoUrl"`
	} `json:"output,omitempty"`
	Error string `json:"error,omitempty"`
}
