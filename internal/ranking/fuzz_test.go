package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExistsInTitle(t *testing.T) {
	assert.True(t, existsInTitle("Project Hail Mary", "Project Hail Mary (Unabridged) - Andy Weir", 90))
	assert.True(t, existsInTitle("Dune", "DUNE!!!", 90))
	assert.False(t, existsInTitle("Dune", "Moby Dick", 90))
}

func TestVaguelyExistInTitle(t *testing.T) {
	title := "Dune - Frank Herbert - M4B"
	assert.Equal(t, 1, vaguelyExistInTitle([]string{"Frank Herbert", "Simon Vance"}, title, 75))
	assert.Equal(t, 0, vaguelyExistInTitle([]string{"Simon Vance"}, title, 75))
	assert.Equal(t, 0, vaguelyExistInTitle(nil, title, 75))
}
