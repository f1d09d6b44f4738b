package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreetingMentionsStyleVerbatim(t *testing.T) {
	for _, style := range []string{"Scandinavian", "Mid-Century Modern", "Coastal"} {
		assert.Contains(t, Greeting(style), style)
	}
}

func TestInitialDesignMentionsStyle(t *testing.T) {
	p := InitialDesign(" Industrial ")
	assert.Contains(t, p, "in the Industrial style")
	assert.Contains(t, p, "reads as Industrial")
}

func TestRefineEmbedsInstruction(t *testing.T) {
	assert.Contains(t, Refine("  make the sofa green\n"), "\nmake the sofa green\n")
}

func TestStatuses(t *testing.T) {
	assert.Equal(t, "Generating your Bohemian design... This can take a moment.", GeneratingStatus("Bohemian"))
	assert.Equal(t, "Refining your design...", RefiningStatus())
	assert.NotEmpty(t, Apology())
	assert.NotEmpty(t, ChatInstruction())
	assert.Contains(t, RoomAnalysis(), "room_type")
}
