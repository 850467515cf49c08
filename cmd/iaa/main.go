/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// iaa computes inter-annotator agreement for a Label Studio export and prints a report.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/export"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/iaa"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/report"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotator-agreement/lib/schema"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// config structure
type iaaConfig struct {
	lib.BaseConfig `mapstructure:",squash"`
	Output         string
	Format         string
	TaskType       string `mapstructure:"task_type"`
	Schema         string
	Blocklist      string
	MaxBytes       int64 `mapstructure:"max_bytes"`
}

var defaults = map[string]interface{}{
	"log_level": "info",
	"format":    "text",
	"task_type": "auto",
	"max_bytes": export.DefaultMaxBytes,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func flags(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("iaa", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", "./config/iaa.yml", "The config file path.")
	fs.StringP("output", "o", "", "Write the report to this file instead of stdout.")
	fs.StringP("format", "f", "text", "Report format: text, markdown or json.")
	fs.String("task_type", "auto", "Annotation mode: auto, categorical, sentence or span.")
	fs.String("schema", "", "Project config.yaml holding the label schema.")
	fs.String("blocklist", "", "YAML file listing annotators to exclude.")
	fs.String("log_level", "info", "Log level.")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: iaa <export.json> [flags]")
		fs.PrintDefaults()
	}
	return fs
}

func run(args []string, stdout, stderr io.Writer) int {
	log.Logger = zerolog.New(stderr).With().Timestamp().Logger()

	fs := flags(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	var conf iaaConfig
	if err := lib.InitializeConfigFrom(fs, nil, "", defaults, &conf); err != nil {
		log.Error().Err(err).Msg("could not load configuration")
		return exitFailure
	}

	format, err := report.ParseFormat(conf.Format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	mode, err := export.ParseMode(conf.TaskType)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	opts := iaa.Options{Mode: mode, MaxBytes: conf.MaxBytes}
	if conf.Schema != "" {
		if opts.Schema, err = schema.Load(conf.Schema); err != nil {
			log.Error().Err(err).Str("path", conf.Schema).Msg("could not load label schema")
			return exitFailure
		}
	}
	if conf.Blocklist != "" {
		if opts.Blocklist, err = blocklist.Load(conf.Blocklist); err != nil {
			return exitFailure
		}
	}

	path := fs.Arg(0)
	res, err := iaa.RunFile(path, opts)
	if err != nil {
		log.Error().Err(err).Str("export", path).Msg("could not compute agreement")
		return exitFailure
	}
	log.Info().
		Str("export", path).
		Str("mode", string(res.Mode)).
		Int("items", res.Items).
		Int("annotators", len(res.Annotators)).
		Int("warnings", len(res.Warnings)).
		Msg("agreement computed")

	if err := write(conf.Output, stdout, report.New(res), format); err != nil {
		log.Error().Err(err).Str("output", conf.Output).Msg("could not write report")
		return exitFailure
	}
	return exitOK
}

func write(output string, stdout io.Writer, rep report.Report, format report.Format) error {
	if output == "" {
		return report.Render(stdout, rep, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := report.Render(f, rep, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
