package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"loanwise/db"
	"loanwise/ml"
)

type importOptions struct {
	DBPath     string
	Name       string
	ModelPath  string
	ModelType  string
	SchemaPath string
}

// cmdImport stores the pair only if it builds a working engine, and stores
// both halves in one transaction, so the server never meets a mismatched
// model and schema from the registry.
func cmdImport(ctx context.Context, out io.Writer, opts importOptions) error {
	modelData, err := os.ReadFile(opts.ModelPath)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	schemaData, err := os.ReadFile(opts.SchemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	engine, err := ml.ParseArtifacts(opts.ModelType, modelData, schemaData)
	if err != nil {
		return err
	}

	registry, err := db.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer registry.Close()

	model, schema, err := registry.PutPair(ctx,
		db.Artifact{
			Name:      opts.Name,
			Kind:      db.KindModel,
			ModelType: opts.ModelType,
			Payload:   modelData,
		},
		db.Artifact{
			Name:    opts.Name,
			Kind:    db.KindSchema,
			Payload: schemaData,
		},
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "imported %s: %s model %s, schema %s (%d columns)\n",
		opts.Name, engine.ModelType(), shortSum(model.Checksum), shortSum(schema.Checksum), engine.Schema().Len())
	return nil
}

func cmdList(ctx context.Context, out io.Writer, dbPath string) error {
	registry, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer registry.Close()

	list, err := registry.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "no artifacts")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tMODEL TYPE\tCHECKSUM\tCREATED")
	for _, a := range list {
		modelType := a.ModelType
		if modelType == "" {
			modelType = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.Name, a.Kind, modelType, shortSum(a.Checksum), a.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func cmdVerify(out io.Writer, src ml.ArtifactSource) error {
	engine, err := ml.LoadArtifacts(src)
	if err != nil {
		return err
	}
	result, err := engine.Evaluate(ml.DefaultApplicant())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ok: %s model, %d columns; sample applicant approved=%t confidence=%.2f%%\n",
		engine.ModelType(), engine.Schema().Len(), result.Approved, result.ConfidencePercent)
	return nil
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
