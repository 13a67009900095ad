package narrow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goldenDiagnostic is one expected entry of diagnostics.json.
type goldenDiagnostic struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Decl string `json:"decl"`
	Site string `json:"site"`
}

// TestGolden walks testdata/prune/ and prunes each case's input.d.ts,
// comparing the output against expected.d.ts and, when present, the
// diagnostics against diagnostics.json. Layout is compared
// whitespace-insensitively.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "prune")
	cases, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata/prune directory found")
	}

	e, err := New(context.Background())
	require.NoError(t, err)

	for _, c := range cases {
		if !c.IsDir() {
			continue
		}
		dir := filepath.Join(root, c.Name())
		t.Run(c.Name(), func(t *testing.T) {
			input, err := os.ReadFile(filepath.Join(dir, "input.d.ts"))
			require.NoError(t, err)
			expected, err := os.ReadFile(filepath.Join(dir, "expected.d.ts"))
			require.NoError(t, err)

			res, err := e.PruneSource(context.Background(), "input.d.ts", input)
			require.NoError(t, err)
			assert.Equal(t, normalize(string(expected)), normalize(res.Output))

			var want []goldenDiagnostic
			if data, err := os.ReadFile(filepath.Join(dir, "diagnostics.json")); err == nil {
				require.NoError(t, json.Unmarshal(data, &want))
			}
			got := make([]goldenDiagnostic, len(res.Diagnostics))
			for i, d := range res.Diagnostics {
				got[i] = goldenDiagnostic{
					Kind: string(d.Kind),
					Name: d.Name,
					Decl: d.Location.Decl,
					Site: d.Location.Site,
				}
			}
			assert.ElementsMatch(t, want, got)

			// Pruning the output again changes nothing.
			again, err := e.PruneSource(context.Background(), "expected.d.ts", []byte(res.Output))
			require.NoError(t, err)
			assert.Equal(t, normalize(res.Output), normalize(again.Output))
		})
	}
}
