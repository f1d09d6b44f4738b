package prompts

import (
	"fmt"
	"strings"
)

const initialDesignTemplate = `You are an award-winning interior designer. Redecorate the room in the attached photo in the %s style.
Requirements:
- Keep the architecture intact: walls, windows, doors, ceiling height and camera angle stay exactly where they are.
- Replace furniture, textiles, lighting, wall colours and decor so that the room clearly reads as %s.
- The result must be a single photorealistic image of the same room. Do not add text, labels or borders.`

const refineTemplate = `You are editing a photo of an interior design proposal. Apply only the following change and keep everything else in the image identical:
%s
Return a single photorealistic image of the same room from the same camera angle. Do not add text, labels or borders.`

const chatInstruction = `You are a friendly interior design assistant working next to an image editor.
The user is looking at a redesigned photo of their room and asks for changes.
- Confirm each requested change in one or two short sentences, as if you had just applied it.
- When a request is vague, say how you interpreted it.
- Never claim to have changed anything the user did not ask for.
- Do not describe image generation mechanics or mention that you are a model.`

const greetingTemplate = `Here is your room in the %s style! What would you like to change? You can say things like "make the sofa green" or "add a plant on the table".`

const apology = "I'm sorry, I couldn't make that change. Please try describing it differently."

const roomAnalysisPrompt = `You are a professional interior designer. Describe the attached room photo briefly and in a structured way.
Respond ONLY with JSON using this structure:
{
  "summary": "1-2 sentences about the room",
  "room_type": "what kind of room the photo shows",
  "style": "the current style or feel",
  "notable_details": ["interesting details"],
  "color_palette": ["dominant colours"],
  "tags": ["short labels"]
}`

// InitialDesign returns the instruction sent alongside the original photo.
func InitialDesign(styleName string) string {
	style := strings.TrimSpace(styleName)
	return fmt.Sprintf(initialDesignTemplate, style, style)
}

// Refine returns the instruction sent alongside the current generated photo.
func Refine(instruction string) string {
	return fmt.Sprintf(refineTemplate, strings.TrimSpace(instruction))
}

// ChatInstruction is the system instruction for the conversational session.
func ChatInstruction() string {
	return chatInstruction
}

// Greeting is the first model message shown once a style has been rendered.
func Greeting(styleName string) string {
	return fmt.Sprintf(greetingTemplate, strings.TrimSpace(styleName))
}

// Apology is appended to the chat when a refinement fails.
func Apology() string {
	return apology
}

// RoomAnalysis asks a vision model for a structured room description.
func RoomAnalysis() string {
	return roomAnalysisPrompt
}

// GeneratingStatus is shown on the loading veil while a style renders.
func GeneratingStatus(styleName string) string {
	return fmt.Sprintf("Generating your %s design... This can take a moment.", strings.TrimSpace(styleName))
}

// RefiningStatus is shown on the loading veil while a refinement runs.
func RefiningStatus() string {
	return "Refining your design..."
}
