package view

import (
	"github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/scale"
)

// Config is the view configuration exposed to the host application.
type Config struct {
	// ZoomLevel is the drag granularity: day, week or month.
	ZoomLevel scale.Granularity `json:"zoomLevel" toml:"zoomLevel" yaml:"zoomLevel"`

	// EnableDragAndDrop allows gestures.
	EnableDragAndDrop bool `json:"enableDragAndDrop" toml:"enableDragAndDrop" yaml:"enableDragAndDrop"`

	// PixelsPerUnit overrides the zoom level's default density.
	PixelsPerUnit float64 `json:"pixelsPerUnit,omitempty" toml:"pixelsPerUnit" yaml:"pixelsPerUnit,omitempty"`

	// Policy is the overlap policy, stack or overlay.
	Policy layout.Policy `json:"policy,omitempty" toml:"policy" yaml:"policy,omitempty"`

	// RowHeight is the bar row height in pixels.
	RowHeight float64 `json:"rowHeight,omitempty" toml:"rowHeight" yaml:"rowHeight,omitempty"`

	// Fields maps item attributes to host record fields.
	Fields host.FieldMap `json:"fields" toml:"fields" yaml:"fields"`
}

// Defaults returns the configuration a view gets when the host sets
// nothing: day zoom with drag and drop enabled.
func Defaults() Config {
	return Config{
		ZoomLevel:         scale.Day,
		EnableDragAndDrop: true,
		Policy:            layout.Stack,
		RowHeight:         layout.DefaultRowHeight,
		Fields:            host.DefaultFields(),
	}
}

// Normalize fills unset values from [Defaults] and canonicalizes the zoom
// level and policy spelling. Unparseable values are kept for [Config.Validate]
// to report. EnableDragAndDrop is left as given since false is a meaningful
// setting.
func (c Config) Normalize() Config {
	d := Defaults()
	if c.ZoomLevel == "" {
		c.ZoomLevel = d.ZoomLevel
	}
	if g, err := scale.ParseGranularity(string(c.ZoomLevel)); err == nil {
		c.ZoomLevel = g
	}
	if p, err := layout.ParsePolicy(string(c.Policy)); err == nil {
		c.Policy = p
	}
	if c.RowHeight <= 0 {
		c.RowHeight = d.RowHeight
	}
	c.Fields = c.Fields.WithDefaults()
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := scale.ParseGranularity(string(c.ZoomLevel)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "zoomLevel")
	}
	if _, err := layout.ParsePolicy(string(c.Policy)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy")
	}
	if c.PixelsPerUnit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "pixelsPerUnit must not be negative (got %v)", c.PixelsPerUnit)
	}
	if c.RowHeight < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "rowHeight must not be negative (got %v)", c.RowHeight)
	}
	return c.Fields.Validate()
}
