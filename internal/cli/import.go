package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gantt/pkg/config"
	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/host/ics"
	"github.com/matzehuels/gantt/pkg/host/sqlite"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// defaultDB is the SQLite file import writes to when neither --db nor a
// sqlite host is configured.
const defaultDB = "gantt.db"

// importCommand creates the import command that loads calendar or JSON
// items into a SQLite host.
func (c *CLI) importCommand() *cobra.Command {
	var db, table string

	cmd := &cobra.Command{
		Use:   "import <file.ics|file.json>",
		Short: "Import items from an iCalendar or JSON file into SQLite",
		Long: `Import reads VEVENTs from an .ics file (or an array of items from a .json
file) and upserts them into a SQLite database that "gantt serve" can use
with host.driver = "sqlite". Existing items with the same id are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if db == "" {
				db = defaultDB
				if cfg.Host.Driver == "sqlite" && cfg.Host.DSN != "" {
					db = cfg.Host.DSN
				}
			}
			if table == "" {
				table = cfg.Host.Table
			}
			return c.runImport(cmd.Context(), cfg, args[0], db, table)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "SQLite database path (default: host.dsn or "+defaultDB+")")
	cmd.Flags().StringVar(&table, "table", "", "table name (default: host.table or gantt_records)")
	return cmd
}

func (c *CLI) runImport(ctx context.Context, cfg *config.Config, input, db, table string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	records, err := decodeRecords(input, data, logger)
	if err != nil {
		return err
	}
	logger.Debug("decoded records", "file", input, "count", len(records))

	store, err := sqlite.New(db, table, cfg.Host.Fields, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	imported, skipped := 0, 0
	for _, r := range records {
		if _, err := store.Put(ctx, r); err != nil {
			logger.Warn("skipping record", "item", r.ID, "err", err)
			skipped++
			continue
		}
		imported++
	}
	prog.done(fmt.Sprintf("Imported %d items", imported))

	printSuccess("Imported %d items", imported)
	if skipped > 0 {
		printWarning("Skipped %d invalid items", skipped)
	}
	printFile(db)
	printNewline()
	printNextStep("Serve", fmt.Sprintf("gantt serve  # with host.driver = \"sqlite\", host.dsn = %q", db))
	return nil
}

// decodeRecords parses input by extension: .ics as iCalendar, anything
// else as a JSON array of items.
func decodeRecords(path string, data []byte, logger *log.Logger) ([]host.Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".ics") {
		return ics.Parse(bytes.NewReader(data), logger)
	}
	var items []timeline.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "parse items %s", path)
	}
	records := make([]host.Record, len(items))
	for i, it := range items {
		records[i] = host.FromItem(it, 0)
	}
	return records, nil
}

// exportCommand creates the export command that writes the configured
// host's items as iCalendar.
func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export items from the configured host as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runExport(cmd.Context(), cfg, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "gantt.ics", "output file; - for stdout")
	return cmd
}

func (c *CLI) runExport(ctx context.Context, cfg *config.Config, output string) error {
	logger := loggerFromContext(ctx)

	adapter, err := c.openHost(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHost(logger, adapter)

	items, err := adapter.LoadItems(ctx)
	if err != nil {
		return err
	}
	records := make([]host.Record, len(items))
	for i, it := range items {
		records[i] = host.FromItem(it, 0)
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, records); err != nil {
		return err
	}
	if output == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := writeOutput(output, buf.Bytes()); err != nil {
		return err
	}
	printSuccess("Exported %d items", len(records))
	printFile(output)
	return nil
}
