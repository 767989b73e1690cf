// Copyright 2017-25 the original author or authors.
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

// Package diff implements the diff command, which reports the semantic
// difference between two extracts of the same area.
package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"m4o.io/osmgraph"
	"m4o.io/osmgraph/cmd/osmgraph/cli"
	"m4o.io/osmgraph/model"
)

// earthRadius is the mean radius of the earth in meters.
const earthRadius = 6_371_010.0

var (
	out     io.Writer = os.Stdout
	outFile *os.File
)

// row is a line of the report. Context is set for entities of the complete
// change set that did not change themselves.
type row struct {
	Key     string              `json:"key"`
	Change  osmgraph.ChangeType `json:"change"`
	Context bool                `json:"context,omitempty"`
	Name    string              `json:"name,omitempty"`
	Moved   float64             `json:"moved_meters,omitempty"`
}

func init() {
	cli.RootCmd.AddCommand(diffCmd)

	flags := diffCmd.Flags()
	flags.BoolP("json", "j", false, "format the report in JSON")
	flags.Bool("complete", false, "report the complete change set instead of the summary")
	flags.VarP(cli.NewWriterValue(nil, &outFile, "file"), "out", "o", "write the complete change set to a PBF file")
	flags.String("compression", osmgraph.DefaultBlobCompression.String(), "blob compression of --out: raw, zlib, lzma, lz4 or zstd")
}

var diffCmd = &cobra.Command{
	Use:   "diff <base OSM file> <head OSM file>",
	Short: "Report the difference between two OSM files",
	Long: `Report the difference between two OSM files of the same area.

The head graph is derived from the base graph by a single edit that stores
every entity of the head file that differs from the base, and removes every
entity of the base that the head file lacks.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outFile != nil {
			defer outFile.Close()
		}

		flags := cmd.Flags()

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			return err
		}

		complete, err := flags.GetBool("complete")
		if err != nil {
			return err
		}

		name, err := flags.GetString("compression")
		if err != nil {
			return err
		}

		compression, err := osmgraph.ParseBlobCompression(name)
		if err != nil {
			return err
		}

		diff, err := loadDiff(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if outFile != nil {
			if err := osmgraph.WriteChangeset(outFile, diff,
				osmgraph.WithCompression(compression),
				osmgraph.WithWritingProgram("osmgraph diff")); err != nil {
				return fmt.Errorf("unable to write change set: %w", err)
			}
		}

		var rows []row
		if complete {
			rows = completeRows(diff)
		} else {
			rows = summaryRows(diff)
		}

		if jsonfmt {
			return renderJSON(rows)
		}

		return renderTable(diff, rows)
	},
}

func loadDiff(ctx context.Context, basePath, headPath string) (*osmgraph.Difference, error) {
	base, err := load(ctx, basePath)
	if err != nil {
		return nil, err
	}

	head, err := load(ctx, headPath)
	if err != nil {
		return nil, err
	}

	return osmgraph.NewDifference(base, derive(base, head)), nil
}

func load(ctx context.Context, path string) (*osmgraph.Graph, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	in, err := cli.OpenInput(path)
	if err != nil {
		return nil, err
	}

	g, _, err := osmgraph.Load(ctx, in, osmgraph.WithNCpus(cli.NCpu()))
	if cerr := in.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", path, err)
	}

	return g, nil
}

// derive returns the version of base that holds the entities of extract.
func derive(base, extract *osmgraph.Graph) *osmgraph.Graph {
	return base.Update(func(ed *osmgraph.Editor) {
		for e := range extract.Entities() {
			if old, err := base.Entity(e.GetKey()); err != nil || !old.Equal(e) {
				ed.Replace(e)
			}
		}

		for e := range base.Entities() {
			if !extract.HasEntity(e.GetKey()) {
				ed.Remove(e)
			}
		}
	})
}

func summaryRows(diff *osmgraph.Difference) []row {
	summary := diff.Summary()
	rows := make([]row, 0, len(summary))

	for _, k := range slices.SortedFunc(maps.Keys(summary), model.Key.Compare) {
		entry := summary[k]
		rows = append(rows, row{
			Key:    k.String(),
			Change: entry.ChangeType,
			Name:   label(entry.Entity),
			Moved:  moved(diff, k),
		})
	}

	return rows
}

func completeRows(diff *osmgraph.Difference) []row {
	complete := diff.Complete()
	rows := make([]row, 0, len(complete))

	for _, k := range slices.SortedFunc(maps.Keys(complete), model.Key.Compare) {
		r := row{Key: k.String(), Moved: moved(diff, k)}

		e := complete[k]

		if c, ok := diff.Change(k); ok {
			switch {
			case c.Base == nil:
				r.Change = osmgraph.Created
			case c.Head == nil:
				r.Change = osmgraph.Deleted
				e = c.Base
			default:
				r.Change = osmgraph.Modified
			}
		} else {
			r.Change = osmgraph.Modified
			r.Context = true
		}

		r.Name = label(e)
		rows = append(rows, r)
	}

	return rows
}

// label returns the name of e, or its most descriptive tag.
func label(e model.Entity) string {
	if e == nil {
		return ""
	}

	tags := e.GetTags()
	if name, ok := tags["name"]; ok {
		return name
	}

	for _, k := range []string{"highway", "building", "amenity", "natural", "landuse", "type"} {
		if v, ok := tags[k]; ok {
			return k + "=" + v
		}
	}

	return ""
}

// moved returns the distance, in meters, that the node k moved.
func moved(diff *osmgraph.Difference, k model.Key) float64 {
	if k.Type != model.NODE {
		return 0
	}

	c, ok := diff.Change(k)
	if !ok {
		return 0
	}

	b, okb := c.Base.(*model.Node)
	h, okh := c.Head.(*model.Node)

	if !okb || !okh || !b.Moved(h) {
		return 0
	}

	return float64(model.Displacement(b, h)) * earthRadius
}

func renderJSON(rows []row) error {
	if rows == nil {
		rows = []row{}
	}

	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(b))

	return err
}

func renderTable(diff *osmgraph.Difference, rows []row) error {
	table := tablewriter.NewWriter(out)
	table.Header("Key", "Change", "Name", "Moved")

	for _, r := range rows {
		change := r.Change.String()
		if r.Context {
			change = "context"
		}

		distance := ""
		if r.Moved > 0 {
			distance = strconv.FormatFloat(r.Moved, 'f', 1, 64) + " m"
		}

		if err := table.Append(r.Key, change, r.Name, distance); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "created: %s, modified: %s, deleted: %s\n",
		humanize.Comma(int64(len(diff.Created()))),
		humanize.Comma(int64(len(diff.Modified()))),
		humanize.Comma(int64(len(diff.Deleted()))))

	return err
}
