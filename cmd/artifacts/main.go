package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"loanwise/ml"
)

var (
	name    = "artifacts"
	version = "v0.0.1-default"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Usage:    "Path to the sqlite artifact registry",
		Required: true,
		Sources:  cli.EnvVars("LOANWISE_REGISTRY_PATH"),
	}
	modelFlag := &cli.StringFlag{
		Name:     "model",
		Usage:    "Path to the serialized model file",
		Required: true,
	}
	modelTypeFlag := &cli.StringFlag{
		Name:  "model-type",
		Usage: fmt.Sprintf("Model format, one of %v", ml.ModelTypes()),
		Value: ml.ModelXGBoostJSON,
	}
	schemaFlag := &cli.StringFlag{
		Name:     "schema",
		Usage:    "Path to the training column list (JSON or YAML)",
		Required: true,
	}

	return &cli.Command{
		Name:    name,
		Version: version,
		Usage:   "Manage loan approval model artifacts",
		Writer:  out,
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Validates a model/schema pair and stores it in the registry",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:    "name",
						Usage:   "Artifact name the server loads",
						Value:   "loan_approval",
						Sources: cli.EnvVars("LOANWISE_ARTIFACT_NAME"),
					},
					modelFlag,
					modelTypeFlag,
					schemaFlag,
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return cmdImport(ctx, out, importOptions{
						DBPath:     cmd.String("db"),
						Name:       cmd.String("name"),
						ModelPath:  cmd.String("model"),
						ModelType:  cmd.String("model-type"),
						SchemaPath: cmd.String("schema"),
					})
				},
			},
			{
				Name:  "list",
				Usage: "Lists the artifacts stored in the registry",
				Flags: []cli.Flag{dbFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return cmdList(ctx, out, cmd.String("db"))
				},
			},
			{
				Name:  "verify",
				Usage: "Loads a model/schema pair and scores a sample applicant",
				Flags: []cli.Flag{modelFlag, modelTypeFlag, schemaFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return cmdVerify(out, ml.ArtifactSource{
						ModelType:  cmd.String("model-type"),
						ModelPath:  cmd.String("model"),
						SchemaPath: cmd.String("schema"),
					})
				},
			},
		},
	}
}
