package fixture

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rematch/internal/ir"
)

// payload renders a vector node as the text stored on the vector row.
func payload(vt ir.VectorType, node yaml.Node) (string, error) {
	if node.Kind == yaml.ScalarNode {
		return node.Value, nil
	}

	switch vt {
	case ir.VectorMnemonicHist, ir.VectorBasicBlockSizeHist:
		var h ir.Histogram
		if err := node.Decode(&h); err != nil {
			return "", fmt.Errorf("decode %s: %w", vt, err)
		}
		return h.MarshalCanonical()
	case ir.VectorBasicBlockAdjacency:
		var g ir.Adjacency
		if err := node.Decode(&g); err != nil {
			return "", fmt.Errorf("decode %s: %w", vt, err)
		}
		// Map keys are sorted by encoding/json.
		b, err := json.Marshal(g)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", vt, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%s payload must be a string (line %d)", vt, node.Line)
	}
}
