package main

import (
	"context"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/urfave/cli/v2"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/endpoint"
	"github.com/vvakame/annogql/internal/log"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print annotations found in a schema as YAML",
		ArgsUsage: "<schema file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "ast or text",
				Value: annotation.ModeAST.String(),
			},
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "print the schema text given to the GraphQL engine too",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("schema file is required", 2)
			}
			mode, err := annotation.ParseMode(c.String("mode"))
			if err != nil {
				return err
			}
			b, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}

			ctx := log.WithLogger(c.Context, newLogger(c, 0))
			return inspect(ctx, c.App.Writer, string(b), mode, c.Bool("schema"))
		},
	}
}

type inspectedAnnotation struct {
	Tag       string                 `yaml:"tag"`
	Target    string                 `yaml:"target"`
	Arguments map[string]interface{} `yaml:"arguments,omitempty"`
}

type inspectResult struct {
	Annotations []*inspectedAnnotation `yaml:"annotations"`
	Schema      string                 `yaml:"schema,omitempty"`
}

func inspect(ctx context.Context, w io.Writer, schemaText string, mode annotation.Mode, withSchema bool) error {
	// parsed arguments are kept aside, annotation kinds don't expose them uniformly
	arguments := make(map[annotation.Annotation]directive.ArgumentList)
	reg := endpoint.NewRegistry(nil)
	recorder := annotation.NewRegistry()
	for _, tag := range reg.Tags() {
		factory, _ := reg.Lookup(tag)
		recorder.Register(tag, func(info *directive.Info, target directive.Target) (annotation.Annotation, error) {
			a, err := factory(info, target)
			if a != nil {
				arguments[a] = info.Arguments
			}
			return a, err
		})
	}

	result, err := annotation.NewParser(recorder, mode).Parse(ctx, schemaText)
	if err != nil {
		return err
	}

	out := &inspectResult{}
	for _, a := range result.Annotations {
		entry := &inspectedAnnotation{
			Tag:    a.Tag(),
			Target: a.Target().String(),
		}
		if args := arguments[a]; len(args) != 0 {
			entry.Arguments = args.Map()
		}
		out.Annotations = append(out.Annotations, entry)
	}
	if withSchema {
		out.Schema = result.SchemaText
	}

	b, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
