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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/importer"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatYAML, formatTable:
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be one of json, yaml, table", format)
	}
}

// documentView is the rendered form of a document. Data holds the decoded
// payload when it is valid JSON and the raw string otherwise.
type documentView struct {
	RecordID  core.ID `json:"recordId" yaml:"recordId"`
	DocID     string  `json:"docId" yaml:"docId"`
	Title     string  `json:"title" yaml:"title"`
	Data      any     `json:"data,omitempty" yaml:"data,omitempty"`
	UserID    string  `json:"userId" yaml:"userId"`
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
}

func newDocumentView(doc *core.Document) documentView {
	view := documentView{
		RecordID:  doc.RecordID,
		DocID:     doc.DocID,
		Title:     doc.Title,
		UserID:    doc.UserID,
		Timestamp: doc.Millis(),
	}
	if len(doc.Data) > 0 {
		var decoded any
		if json.Valid(doc.Data) && json.Unmarshal(doc.Data, &decoded) == nil {
			view.Data = decoded
		} else {
			view.Data = string(doc.Data)
		}
	}
	return view
}

type savedView struct {
	RecordID core.ID `json:"recordId" yaml:"recordId"`
	DocID    string  `json:"docId" yaml:"docId"`
}

type importView struct {
	Saved  int `json:"saved" yaml:"saved"`
	Failed int `json:"failed" yaml:"failed"`
}

func printSaved(w io.Writer, format string, id core.ID, docID string) error {
	if format == formatTable {
		_, err := fmt.Fprintln(w, id)
		return err
	}
	return encode(w, format, savedView{RecordID: id, DocID: docID})
}

// printDocuments renders docs. A single document is rendered as an object
// unless asList is set.
func printDocuments(w io.Writer, format string, docs []*core.Document, asList bool) error {
	if format == formatTable {
		return printTable(w, docs)
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, newDocumentView(doc))
	}
	if !asList && len(views) == 1 {
		return encode(w, format, views[0])
	}
	return encode(w, format, views)
}

func printImportResult(w io.Writer, format string, result *importer.Result) error {
	if format == formatTable {
		_, err := fmt.Fprintf(w, "saved %d, failed %d\n", result.Saved, result.Failed)
		return err
	}
	return encode(w, format, importView{Saved: result.Saved, Failed: result.Failed})
}

func printTable(w io.Writer, docs []*core.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORD\tDOC ID\tTITLE\tSIZE\tSAVED")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			doc.RecordID,
			doc.DocID,
			doc.Title,
			humanize.Bytes(uint64(len(doc.Data))),
			humanize.Time(doc.Timestamp),
		)
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}
