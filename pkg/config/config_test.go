package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/gantt/pkg/scale"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.View.ZoomLevel != scale.Day || !cfg.View.EnableDragAndDrop {
		t.Errorf("view defaults = %+v", cfg.View)
	}
	if cfg.Host.Driver != "memory" {
		t.Errorf("Host.Driver = %q, want memory", cfg.Host.Driver)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gantt.toml")
	data := `
[view]
zoomLevel = "week"
enableDragAndDrop = false

[host]
driver = "sqlite"
dsn = "plan.db"

[host.fields]
start = "date_start"
end = "date_stop"
group = "project"

[render]
formats = ["svg", "txt"]
theme = "dark"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.View.ZoomLevel != scale.Week || cfg.View.EnableDragAndDrop {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Host.Fields.Start != "date_start" || cfg.Host.Fields.Name != "name" {
		t.Errorf("fields = %+v, want mapped start with default name", cfg.Host.Fields)
	}
	if cfg.View.Fields != cfg.Host.Fields {
		t.Error("view and host fields should agree after normalize")
	}
	if len(cfg.Render.Formats) != 2 || cfg.Render.Theme != "dark" {
		t.Errorf("render = %+v", cfg.Render)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gantt.yaml")
	data := "view:\n  zoomLevel: month\nserver:\n  listen: \":9000\"\n  refresh: \"@every 1m\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.View.ZoomLevel != scale.Month || cfg.Server.Listen != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.View.EnableDragAndDrop {
		t.Error("unset enableDragAndDrop should keep the default")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"zoom.toml":   "[view]\nzoomLevel = \"hour\"\n",
		"cron.toml":   "[server]\nrefresh = \"not a schedule\"\n",
		"format.toml": "[render]\nformats = [\"gif\"]\n",
		"syntax.toml": "[view\n",
		"field.yaml":  "host:\n  fields:\n    start: \"drop table\"\n",
	}
	dir := t.TempDir()
	for name, data := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) should fail", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"c.toml", "c.yml"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		cfg := Default()
		cfg.View.ZoomLevel = scale.Week
		cfg.Host.Driver = "ics"
		if err := Save(path, cfg); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("%s perms = %v, want 0600", name, info.Mode().Perm())
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if got.View.ZoomLevel != scale.Week || got.Host.Driver != "ics" {
			t.Errorf("%s round trip = %+v", name, got)
		}
	}
}

func TestLoadExamples(t *testing.T) {
	tests := []struct {
		file       string
		driver     string
		zoom       scale.Granularity
		refreshOff bool
	}{
		{"gantt.toml", "sqlite", scale.Week, false},
		{"gantt.yaml", "mongo", scale.Day, true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			cfg, err := Load(filepath.Join("..", "..", "examples", tt.file))
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if cfg.Host.Driver != tt.driver {
				t.Errorf("Host.Driver = %q, want %q", cfg.Host.Driver, tt.driver)
			}
			if cfg.View.ZoomLevel != tt.zoom {
				t.Errorf("View.ZoomLevel = %q, want %q", cfg.View.ZoomLevel, tt.zoom)
			}
			if (cfg.Server.Refresh == "") != tt.refreshOff {
				t.Errorf("Server.Refresh = %q", cfg.Server.Refresh)
			}
		})
	}
}
