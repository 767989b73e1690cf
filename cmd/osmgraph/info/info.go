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

// Package info implements the info command, which reports the header of an
// extract and, on request, the entities it holds.
package info

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"m4o.io/osmgraph"
	"m4o.io/osmgraph/cmd/osmgraph/cli"
	"m4o.io/osmgraph/model"
)

var out io.Writer = os.Stdout

type extendedHeader struct {
	model.Header

	NodeCount     int64 `json:"node_count"`
	WayCount      int64 `json:"way_count"`
	RelationCount int64 `json:"relation_count"`
}

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.BoolP("extended", "e", false, "provide extended information (loads the entire file)")
}

var infoCmd = &cobra.Command{
	Use:   "info [<OSM file>]",
	Short: "Print information about an OSM file",
	Long: `Print information about an OSM file.

The extended information counts the entities of the graph loaded from the
file, that is the latest visible version of every entity.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}

		flags := cmd.Flags()

		extended, err := flags.GetBool("extended")
		if err != nil {
			return err
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			return err
		}

		in, err := cli.OpenInput(path)
		if err != nil {
			return err
		}

		info, err := runInfo(cmd.Context(), in, cli.NCpu(), extended)
		if cerr := in.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return err
		}

		if jsonfmt {
			return renderJSON(info, extended)
		}

		renderTxt(info, extended)

		return nil
	},
}

func runInfo(ctx context.Context, in io.Reader, ncpu uint16, extended bool) (*extendedHeader, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !extended {
		d, err := osmgraph.NewDecoder(ctx, in, osmgraph.WithNCpus(ncpu))
		if err != nil {
			return nil, err
		}

		d.Close()

		return &extendedHeader{Header: d.Header}, nil
	}

	g, hdr, err := osmgraph.Load(ctx, in, osmgraph.WithNCpus(ncpu))
	if err != nil {
		return nil, err
	}

	info := &extendedHeader{Header: hdr}

	for e := range g.Entities() {
		switch e.GetType() {
		case model.NODE:
			info.NodeCount++
		case model.WAY:
			info.WayCount++
		case model.RELATION:
			info.RelationCount++
		}
	}

	return info, nil
}

func renderJSON(info *extendedHeader, extended bool) error {
	// marshall the smallest struct needed
	var v any
	if extended {
		v = info
	} else {
		v = info.Header
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, string(b))

	return err
}

func renderTxt(info *extendedHeader, extended bool) {
	bbox := ""
	if info.BoundingBox != nil {
		bbox = info.BoundingBox.String()
	}

	ts := ""
	if !info.OsmosisReplicationTimestamp.IsZero() {
		ts = info.OsmosisReplicationTimestamp.UTC().Format(time.RFC3339)
	}

	fmt.Fprintf(out, "BoundingBox: %s\n", bbox)
	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "OptionalFeatures: %s\n", strings.Join(info.OptionalFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)
	fmt.Fprintf(out, "OsmosisReplicationTimestamp: %s\n", ts)
	fmt.Fprintf(out, "OsmosisReplicationSequenceNumber: %d\n", info.OsmosisReplicationSequenceNumber)
	fmt.Fprintf(out, "OsmosisReplicationBaseURL: %s\n", info.OsmosisReplicationBaseURL)

	if extended {
		fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.NodeCount))
		fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.WayCount))
		fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.RelationCount))
	}
}
