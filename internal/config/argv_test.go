package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr error
	}{
		{line: "", want: nil},
		{line: "   ", want: nil},
		{line: "wl-copy", want: []string{"wl-copy"}},
		{line: "xclip -selection clipboard", want: []string{"xclip", "-selection", "clipboard"}},
		{line: `tee "/tmp/last transcript.txt"`, want: []string{"tee", "/tmp/last transcript.txt"}},
		{line: `sh -c 'cat > "$HOME/out"'`, want: []string{"sh", "-c", `cat > "$HOME/out"`}},
		{line: `say "a \"quoted\" word"`, want: []string{"say", `a "quoted" word`}},
		{line: `copy file\ name`, want: []string{"copy", "file name"}},
		{line: `printf ''`, want: []string{"printf", ""}},
		{line: `pbcopy "oops`, wantErr: errUnterminatedQuote},
		{line: `pbcopy oops\`, wantErr: errUnterminatedEscape},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := splitCommand(tc.line)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandKeepsRawAndArgv(t *testing.T) {
	cmd, err := ParseCommand(`wl-copy --type "text/plain"`)
	require.NoError(t, err)
	require.Equal(t, `wl-copy --type "text/plain"`, cmd.Raw)
	require.Equal(t, []string{"wl-copy", "--type", "text/plain"}, cmd.Argv)

	_, err = ParseCommand(`xclip "oops`)
	require.Error(t, err)
}
