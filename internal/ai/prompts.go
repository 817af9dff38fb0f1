package ai

import (
	"fmt"
	"strings"

	"reelgen/internal/model"
)

// analyzePrompt asks the model to distill a README into the structured
// summary the scripting stage builds on.
const analyzePrompt = `Analyze this README and extract structured information for creating a promotional video.

Return a JSON object with this exact structure:
{
  "project_name": "Name of the project",
  "tagline": "A catchy one-line description (max 10 words)",
  "problem": "The problem this project solves (1-2 sentences)",
  "solution": "How the project solves it (1-2 sentences)",
  "features": ["Feature 1", "Feature 2", "Feature 3"] (max 5 key features),
  "tech_stack": ["Tech1", "Tech2"] (main technologies used),
  "target_audience": "Who would benefit from this project"
}

Only return valid JSON, no markdown formatting or explanation.`

type styleGuide struct {
	visual   string
	narrator string
	audio    string
}

var styleGuides = map[model.Style]styleGuide{
	model.StyleTech: {
		visual:   "Dynamic tech-focused visuals: sleek interfaces on screens, futuristic holographic displays, abstract data visualizations, clean modern aesthetics with blue and purple tones.",
		narrator: "A confident tech-savvy narrator with clear, enthusiastic voice explaining the app features.",
		audio:    "Modern electronic ambient music, subtle tech sound effects, keyboard clicks, notification sounds.",
	},
	model.StyleMinimal: {
		visual:   "Clean, minimalist visuals: bright white spaces, elegant smooth animations, soft gradients, calm and professional atmosphere.",
		narrator: "A calm, professional narrator with warm, reassuring voice describing the simplicity and elegance.",
		audio:    "Soft piano or acoustic background music, gentle ambient sounds, peaceful atmosphere.",
	},
	model.StyleEnergetic: {
		visual:   "Vibrant, high-energy visuals: bold colors, dynamic camera movements, exciting transitions, celebratory and inspiring atmosphere.",
		narrator: "An energetic, excited narrator with dynamic voice showcasing amazing features.",
		audio:    "Upbeat electronic music, exciting sound effects, dynamic whooshes and impacts.",
	},
}

// narrativeArc collapses the hook → problem → solution → call-to-action
// arc proportionally to the scene count.
func narrativeArc(numScenes int) string {
	switch {
	case numScenes <= 1:
		return "Scene 1 (COMPLETE): Create a compelling 15-second overview that hooks attention, briefly introduces the problem, presents the app as the solution, and ends with a strong call-to-action. Pack maximum impact into this single scene."
	case numScenes == 2:
		return `Scene 1 (HOOK + PROBLEM): Grab attention, introduce the problem the app solves, show pain points.
Scene 2 (SOLUTION + CTA): Present the app as the solution, highlight key features, end with inspiring call-to-action.`
	default:
		return `Scene 1 (HOOK): Grab attention with a striking opening, introduce the core concept.
Scene 2 (PROBLEM): Present the problem/challenge that users face, build tension.
Scene 3 (SOLUTION): Introduce the app as the solution, show how it works visually.
Scene 4 (FEATURES + CTA): Highlight 2-3 key features, end with inspiring call-to-action and emotional payoff.`
	}
}

// scriptPrompt builds the system prompt for the scripting stage.
// numScenes scenes of sceneSeconds each, in the requested style.
func scriptPrompt(opts ScriptOptions, numScenes, sceneSeconds int) string {
	style := styleGuides[opts.Style]

	var sceneStructure strings.Builder
	for i := 1; i <= numScenes; i++ {
		if i > 1 {
			sceneStructure.WriteString(",\n")
		}
		fmt.Fprintf(&sceneStructure, `    {
      "scene_number": %d,
      "duration": %d,
      "description": "What happens visually in scene %d",
      "narration_text": "What the narrator says in scene %d (2-3 sentences)",
      "prompt": "Detailed prompt for scene %d with narration and audio"
    }`, i, sceneSeconds, i, i, i)
	}

	return fmt.Sprintf(`Create a promotional and explanatory video script based on the project analysis provided.

PURPOSE: Create a video that BOTH promotes the app AND explains its key features. The video must have:
1. A NARRATOR speaking throughout, explaining the app
2. Visual demonstrations of the concepts
3. Background music and sound effects
4. A clear NARRATIVE ARC across all scenes

Requirements:
- Create exactly %d scenes (each ~%d seconds)
- Total duration: approximately %d seconds
- Visual Style: %s
- Narration Style: %s
- Audio Atmosphere: %s

NARRATIVE ARC (follow this structure):
%s

Return a JSON object with this exact structure:
{
  "title": "Video title",
  "total_duration": %d,
  "scenes": [
%s
  ]
}

CRITICAL - Each scene's prompt MUST include these AUDIO elements:
1. A NARRATOR/PRESENTER describing the app (describe their voice, tone, what they're saying)
2. Background MUSIC style (electronic, orchestral, ambient, etc.) - CONSISTENT across all scenes
3. Sound EFFECTS that match the visuals (clicks, whooshes, notifications, etc.)

IMPORTANT for multi-scene coherence:
- Use the SAME narrator voice style across all scenes
- Keep the SAME music style/mood throughout (builds intensity toward the end)
- Each scene should flow naturally into the next
- The narration should tell a COMPLETE STORY across all scenes

For each prompt:
- Be specific and descriptive (80-120 words)
- ALWAYS include narrator speaking and what they say
- Include camera movement (slow zoom, pan, tracking shot)
- Describe lighting and atmosphere
- Do NOT include on-screen text or typography
- Use abstract/metaphorical visuals to represent app concepts

CRITICAL - Content Policy (to avoid video generation rejection):
- NEVER mention brand names, company names, or product names in visuals
- NEVER reference copyrighted characters, logos, or intellectual property
- Use generic terms: "smartphone" not a vendor name, "laptop" not a product line
- The narrator CAN mention the app name, but visuals must be abstract
- Avoid references to movies, games, TV shows, or celebrities

Only return valid JSON, no markdown formatting or explanation.`,
		numScenes, sceneSeconds, opts.Duration,
		style.visual, style.narrator, style.audio,
		narrativeArc(numScenes),
		opts.Duration, sceneStructure.String())
}
