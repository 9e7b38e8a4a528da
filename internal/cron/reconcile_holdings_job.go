package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/containers"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

// ReconcileHoldingsJobParams configure the holding reconciliation job.
type ReconcileHoldingsJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Lister containerLister
	Ledger holdingReconciler
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type containerLister interface {
	ListPallets(ctx context.Context, location string) ([]models.Pallet, error)
	ListShelves(ctx context.Context, location string) ([]models.Shelf, error)
}

type holdingReconciler interface {
	RecomputeHolding(ctx context.Context, tx *gorm.DB, target containers.Target) (*containers.State, error)
}

// NewReconcileHoldingsJob builds the job that recounts box membership for
// every pallet and shelf and rewrites drifted holding counters.
func NewReconcileHoldingsJob(params ReconcileHoldingsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Lister == nil {
		return nil, fmt.Errorf("container lister required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("holding reconciler required")
	}
	return &reconcileHoldingsJob{
		logg:   params.Logger,
		db:     params.DB,
		lister: params.Lister,
		ledger: params.Ledger,
	}, nil
}

type reconcileHoldingsJob struct {
	logg   *logger.Logger
	db     txRunner
	lister containerLister
	ledger holdingReconciler
}

func (j *reconcileHoldingsJob) Name() string { return "reconcile-holdings" }

func (j *reconcileHoldingsJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.reconcilePallets(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.reconcileShelves(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *reconcileHoldingsJob) reconcilePallets(ctx context.Context) error {
	pallets, err := j.lister.ListPallets(ctx, "")
	if err != nil {
		return fmt.Errorf("list pallets: %w", err)
	}
	corrected := 0
	for _, pallet := range pallets {
		target := containers.Target{Kind: enums.ContainerKindPallet, ID: pallet.ID}
		changed, err := j.reconcileOne(ctx, target, pallet.Holding)
		if err != nil {
			return fmt.Errorf("reconcile pallet %s: %w", pallet.ID, err)
		}
		if changed {
			corrected++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"scanned": len(pallets), "corrected": corrected})
	j.logg.Info(logCtx, "pallet holding reconciliation complete")
	return nil
}

func (j *reconcileHoldingsJob) reconcileShelves(ctx context.Context) error {
	shelves, err := j.lister.ListShelves(ctx, "")
	if err != nil {
		return fmt.Errorf("list shelves: %w", err)
	}
	corrected := 0
	for _, shelf := range shelves {
		target := containers.Target{Kind: enums.ContainerKindShelf, ID: shelf.ID}
		changed, err := j.reconcileOne(ctx, target, shelf.Holding)
		if err != nil {
			return fmt.Errorf("reconcile shelf %s: %w", shelf.ID, err)
		}
		if changed {
			corrected++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"scanned": len(shelves), "corrected": corrected})
	j.logg.Info(logCtx, "shelf holding reconciliation complete")
	return nil
}

func (j *reconcileHoldingsJob) reconcileOne(ctx context.Context, target containers.Target, before int) (bool, error) {
	var state *containers.State
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		recomputed, err := j.ledger.RecomputeHolding(ctx, tx, target)
		if err != nil {
			return err
		}
		state = recomputed
		return nil
	})
	if err != nil {
		return false, err
	}
	if state.Holding == before {
		return false, nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"kind":    target.Kind,
		"id":      target.ID,
		"before":  before,
		"holding": state.Holding,
		"status":  state.Status,
	})
	j.logg.Warn(logCtx, "corrected drifted holding counter")
	return true, nil
}
