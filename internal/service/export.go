package service

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/observability"
	"alcyxob/training-planner/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// exportConcurrency bounds parallel microcycle resolution during export.
const exportConcurrency = 4

// PlanDocument is the exported effective plan of a macrocycle.
type PlanDocument struct {
	Macrocycle domain.Macrocycle   `json:"macrocycle"`
	Mesocycles []MesocycleDocument `json:"mesocycles"`
	ExportedAt time.Time           `json:"exportedAt"`
}

type MesocycleDocument struct {
	domain.Mesocycle
	Microcycles []engine.MicrocycleView `json:"microcycles"`
}

// buildPlanDocument resolves every microcycle of the macrocycle.
func (s *planService) buildPlanDocument(ctx context.Context, macrocycleID string) (*PlanDocument, error) {
	doc := &PlanDocument{Mesocycles: []MesocycleDocument{}, ExportedAt: time.Now().UTC()}
	var microIDs [][]string
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		m, err := tx.Plans().GetMacrocycle(ctx, macrocycleID)
		if err != nil {
			return err
		}
		doc.Macrocycle = *m
		mesos, err := tx.Plans().ListMesocycles(ctx, macrocycleID)
		if err != nil {
			return err
		}
		for _, meso := range mesos {
			micros, err := tx.Plans().ListMicrocycles(ctx, meso.ID)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(micros))
			for _, mc := range micros {
				ids = append(ids, mc.ID)
			}
			doc.Mesocycles = append(doc.Mesocycles, MesocycleDocument{
				Mesocycle:   meso,
				Microcycles: make([]engine.MicrocycleView, len(micros)),
			})
			microIDs = append(microIDs, ids)
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMacrocycleNotFound
	}
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i := range microIDs {
		for j, id := range microIDs[i] {
			i, j, id := i, j, id
			g.Go(func() error {
				view, err := s.engine.MicrocycleView(gctx, id)
				if err != nil {
					return fmt.Errorf("resolve microcycle %s: %w", id, err)
				}
				doc.Mesocycles[i].Microcycles[j] = *view
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExportMacrocycle writes the effective plan as JSON to object storage and
// returns a presigned download URL.
func (s *planService) ExportMacrocycle(ctx context.Context, macrocycleID string) (*domain.PlanExport, error) {
	if s.fileStorage == nil {
		return nil, ErrExportDisabled
	}
	doc, err := s.buildPlanDocument(ctx, macrocycleID)
	if err != nil {
		observability.RecordExport(observability.ResultError)
		return nil, err
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		observability.RecordExport(observability.ResultError)
		return nil, err
	}

	objectKey := fmt.Sprintf("%s/%s/%s.json", s.exportPrefix, macrocycleID, uuid.NewString())
	if err := s.fileStorage.PutObject(ctx, objectKey, "application/json", body); err != nil {
		observability.RecordExport(observability.ResultError)
		return nil, fmt.Errorf("store export: %w", err)
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, s.presignExpiry)
	if err != nil {
		observability.RecordExport(observability.ResultError)
		return nil, fmt.Errorf("presign export: %w", err)
	}

	observability.RecordExport(observability.ResultOK)
	s.log.Info("Plan exported", "macrocycle", macrocycleID, "key", objectKey, "bytes", len(body))
	return &domain.PlanExport{
		MacrocycleID: macrocycleID,
		ObjectKey:    objectKey,
		DownloadURL:  url,
		Size:         int64(len(body)),
	}, nil
}
