// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/poiesic/folio"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/importer"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "folio",
		Usage: "Save, list and delete documents in an embedded document store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to the database (directory for badger, file for bolt)",
				EnvVars:  []string{"FOLIO_DB"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "engine",
				Aliases: []string{"e"},
				Usage:   "Storage engine (badger, bolt)",
				EnvVars: []string{"FOLIO_ENGINE"},
				Value:   string(folio.EngineBadger),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"FOLIO_LOG_LEVEL"},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, yaml, table)",
				EnvVars: []string{"FOLIO_FORMAT"},
				Value:   formatJSON,
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return validateFormat(c.String("format"))
		},
		Commands: []*cli.Command{
			{
				Name:   "save",
				Usage:  "Save a new document revision and print its record ID",
				Action: saveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Owner user ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Document title",
					},
					&cli.StringFlag{
						Name:  "doc-id",
						Usage: "Logical document ID (generated if omitted)",
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Document payload",
					},
					&cli.StringFlag{
						Name:  "data-file",
						Usage: "Read the payload from a file (- for stdin)",
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Print the document with the given record ID",
				ArgsUsage: "RECORD_ID",
				Action:    getCommand,
			},
			{
				Name:   "list",
				Usage:  "List a user's documents, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Owner user ID",
						Required: true,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete the document with the given record ID",
				ArgsUsage: "RECORD_ID",
				Action:    deleteCommand,
			},
			{
				Name:      "import",
				Usage:     "Import documents from a JSON-lines file",
				ArgsUsage: "FILE|-",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Number of concurrent saves",
						EnvVars: []string{"FOLIO_WORKERS"},
						Value:   4,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: importer.DefaultReportInterval,
					},
				},
			},
		},
	}
}

func saveCommand(c *cli.Context) error {
	ctx := context.Background()

	data, err := readPayload(c)
	if err != nil {
		return err
	}

	docID := c.String("doc-id")
	if docID == "" {
		docID = uuid.NewString()
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(ctx, docID, c.String("title"), data, c.String("user"))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return printSaved(c.App.Writer, c.String("format"), id, docID)
}

func getCommand(c *cli.Context) error {
	ctx := context.Background()

	id, err := parseRecordID(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", id)
	}

	return printDocuments(c.App.Writer, c.String("format"), []*core.Document{doc}, false)
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.GetByUser(ctx, c.String("user"))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	return printDocuments(c.App.Writer, c.String("format"), docs, true)
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	id, err := parseRecordID(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func importCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("import takes exactly one FILE argument (- for stdin)")
	}
	if c.Int("workers") <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	input, closeInput, err := openInput(c.Args().First())
	if err != nil {
		return err
	}
	defer closeInput()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	im, err := importer.New(store,
		importer.WithPoolSize(c.Int("workers")),
		importer.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
		importer.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create importer: %w", err)
	}
	defer im.Release()

	result, importErr := im.Import(ctx, input)
	if result != nil {
		if err := printImportResult(c.App.Writer, c.String("format"), result); err != nil {
			return err
		}
	}
	if importErr != nil {
		return fmt.Errorf("import finished with errors: %w", importErr)
	}
	return nil
}

func openStore(c *cli.Context) (*folio.Store, error) {
	engine, err := folio.ParseEngine(c.String("engine"))
	if err != nil {
		return nil, err
	}
	return folio.New(c.String("db"),
		folio.WithEngine(engine),
		folio.WithLogger(slog.Default()),
	), nil
}

func parseRecordID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one RECORD_ID argument")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record ID %q: %w", c.Args().First(), err)
	}
	return core.ID(id), nil
}

func readPayload(c *cli.Context) ([]byte, error) {
	if c.IsSet("data") && c.IsSet("data-file") {
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	}
	if c.IsSet("data") {
		return []byte(c.String("data")), nil
	}
	if path := c.String("data-file"); path != "" {
		input, closeInput, err := openInput(path)
		if err != nil {
			return nil, err
		}
		defer closeInput()
		return io.ReadAll(input)
	}
	return nil, nil
}

// openInput opens path for reading, treating "-" as stdin.
func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
