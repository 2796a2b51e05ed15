package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleJoinsSegmentsVerbatimAndTrimsEnds(t *testing.T) {
	t.Parallel()

	got := Assemble([]string{" Hola,", " ¿qué tal?", " Bien."})
	require.Equal(t, "Hola, ¿qué tal? Bien.", got)
}

func TestAssemblePreservesInteriorWhitespace(t *testing.T) {
	t.Parallel()

	require.Equal(t, "one  two\nthree", Assemble([]string{"\n one ", " two\n", "three \t"}))
}

func TestAssembleDoesNotInsertSeparators(t *testing.T) {
	t.Parallel()

	require.Equal(t, "helloworld", Assemble([]string{"hello", "world"}))
}

func TestAssembleEmptyInput(t *testing.T) {
	t.Parallel()

	require.Empty(t, Assemble(nil))
	require.Empty(t, Assemble([]string{"  ", "\n\t"}))
}
