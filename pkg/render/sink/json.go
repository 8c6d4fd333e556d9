package sink

import (
	"encoding/json"

	"github.com/matzehuels/gantt/pkg/render"
)

// JSON encodes sc with two-space indentation.
func JSON(sc render.Scene) ([]byte, error) {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
