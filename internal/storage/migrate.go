package storage

import (
	"context"
	"errors"
	"fmt"
)

// CopyResult counts what a migration did for one model.
type CopyResult struct {
	Model   TargetModelType
	Read    int
	Written int
	Skipped int
}

// Copy moves every document of the given models from src to dst. Documents
// already present in dst are skipped, so a migration can be re-run.
// With dryRun set nothing is written.
func Copy(ctx context.Context, src, dst Backend, models []TargetModelType, dryRun bool) ([]CopyResult, error) {
	results := make([]CopyResult, 0, len(models))
	for _, model := range models {
		res := CopyResult{Model: model}

		docs, err := src.List(ctx, model, nil)
		if err != nil {
			return results, fmt.Errorf("read %s from %s: %w", model, src.Name(), err)
		}
		res.Read = len(docs)

		for _, doc := range docs {
			id, _ := doc["id"].(string)
			if id == "" {
				res.Skipped++
				continue
			}
			if dryRun {
				continue
			}
			err := dst.Insert(ctx, model, id, doc)
			switch {
			case err == nil:
				res.Written++
			case errors.Is(err, ErrAlreadyExists):
				res.Skipped++
			default:
				return append(results, res), fmt.Errorf("write %s %s to %s: %w", model, id, dst.Name(), err)
			}
		}
		results = append(results, res)
	}
	return results, nil
}
