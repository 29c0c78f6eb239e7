package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	apperrors "github.com/medicure/hms-api/pkg/errors"
	"github.com/medicure/hms-api/pkg/metrics"

	"github.com/medicure/hms-api/internal/model"
	"github.com/medicure/hms-api/internal/repository"
	"github.com/medicure/hms-api/internal/service/event"
)

const (
	medicationCacheTTL     = 2 * time.Minute
	medicationCacheCleanup = 5 * time.Minute

	defaultLowStockThreshold = 10
	expiryLookahead          = 90 * 24 * time.Hour
)

type Service struct {
	medicationRepo repository.MedicationRepository
	dispenseRepo   repository.DispenseRepository
	events         *event.Service
	metrics        *metrics.Metrics

	// Read-mostly catalog, safe to serve slightly stale.
	medCache *cache.Cache
}

func NewService(medicationRepo repository.MedicationRepository, dispenseRepo repository.DispenseRepository, events *event.Service, m *metrics.Metrics) *Service {
	return &Service{
		medicationRepo: medicationRepo,
		dispenseRepo:   dispenseRepo,
		events:         events,
		metrics:        m,
		medCache:       cache.New(medicationCacheTTL, medicationCacheCleanup),
	}
}

func (s *Service) CreateMedication(ctx context.Context, req *model.CreateMedicationRequest) (*model.Medication, error) {
	if !model.ValidMedicationForm(req.Form) {
		return nil, apperrors.NewValidation("invalid medication form")
	}
	if !req.ExpiryDate.After(time.Now()) {
		return nil, apperrors.NewValidation("expiry date must be in the future")
	}

	med := &model.Medication{
		Name:          req.Name,
		GenericName:   req.GenericName,
		Description:   req.Description,
		Category:      req.Category,
		Form:          req.Form,
		StrengthValue: req.StrengthValue,
		StrengthUnit:  req.StrengthUnit,
		Manufacturer:  req.Manufacturer,
		StockQuantity: req.StockQuantity,
		StockUnit:     req.StockUnit,
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    req.ExpiryDate,
		ReorderLevel:  req.ReorderLevel,
		Price:         req.Price,
	}
	if err := s.medicationRepo.Create(ctx, med); err != nil {
		return nil, err
	}
	return med, nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	key := id.String()
	if cached, ok := s.medCache.Get(key); ok {
		return cached.(*model.Medication), nil
	}

	med, err := s.medicationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.medCache.Set(key, med, cache.DefaultExpiration)
	return med, nil
}

func (s *Service) UpdateMedication(ctx context.Context, id uuid.UUID, req *model.UpdateMedicationRequest) (*model.Medication, error) {
	med, err := s.medicationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		med.Description = *req.Description
	}
	if req.Category != nil {
		med.Category = *req.Category
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, apperrors.NewValidation("stock quantity cannot be negative")
		}
		med.StockQuantity = *req.StockQuantity
	}
	if req.BatchNumber != nil {
		med.BatchNumber = *req.BatchNumber
	}
	if req.ExpiryDate != nil {
		med.ExpiryDate = *req.ExpiryDate
	}
	if req.ReorderLevel != nil {
		med.ReorderLevel = *req.ReorderLevel
	}
	if req.Price != nil {
		med.Price = *req.Price
	}
	if req.IsAvailable != nil {
		med.IsAvailable = *req.IsAvailable
	}

	if err := s.medicationRepo.Update(ctx, med); err != nil {
		return nil, err
	}
	s.medCache.Delete(id.String())
	return med, nil
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	if err := s.medicationRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.medCache.Delete(id.String())
	return nil
}

func (s *Service) ListMedications(ctx context.Context) ([]*model.Medication, error) {
	return s.medicationRepo.List(ctx)
}

func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]*model.Medication, error) {
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return s.medicationRepo.ListLowStock(ctx, threshold)
}

func (s *Service) ListExpiring(ctx context.Context) ([]*model.Medication, error) {
	return s.medicationRepo.ListExpiringBefore(ctx, time.Now().Add(expiryLookahead))
}

// Dispense fulfills a pending record in full. Any line short on stock fails
// the whole operation with no stock mutated.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req *model.FulfillDispenseRequest) (*model.MedicationDispense, error) {
	rec, err := s.dispenseRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rec.Status {
	case model.DispenseStatusDispensed:
		s.metrics.DispenseFailures.WithLabelValues("already_dispensed").Inc()
		return nil, apperrors.NewInvalidState("record is already dispensed")
	case model.DispenseStatusCancelled:
		return nil, apperrors.NewInvalidState("record is cancelled")
	case model.DispenseStatusNoInventory:
		return nil, apperrors.NewInvalidState("record has no inventory-backed lines")
	}

	for i := range rec.Lines {
		line := &rec.Lines[i]

		med, err := s.medicationRepo.Get(ctx, line.MedicationID)
		if err != nil {
			return nil, err
		}
		if med.StockQuantity < line.Quantity {
			s.metrics.DispenseFailures.WithLabelValues("insufficient_stock").Inc()
			return nil, apperrors.NewInvalidState(fmt.Sprintf(
				"insufficient stock for %s", med.Name))
		}

		line.DispensedQuantity = line.Quantity
		line.Status = model.DispenseLineStatusDispensed
	}

	now := time.Now()
	rec.Status = model.DispenseStatusDispensed
	rec.DispensedBy = &actorID
	rec.DispensedAt = &now
	if req.Notes != "" {
		rec.Notes = req.Notes
	}

	// The repository re-checks stock with guarded decrements, so a
	// concurrent dispense between the check above and the commit still
	// rolls back cleanly.
	if err := s.dispenseRepo.Fulfill(ctx, rec); err != nil {
		if apperrors.IsCode(err, apperrors.ErrInvalidState) {
			s.metrics.DispenseFailures.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, err
	}

	for _, line := range rec.Lines {
		s.medCache.Delete(line.MedicationID.String())
	}

	s.metrics.DispenseFulfillments.Inc()
	if err := s.events.Emit(ctx, model.EventDispenseFulfilled, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *Service) GetDispense(ctx context.Context, id uuid.UUID) (*model.MedicationDispense, error) {
	return s.dispenseRepo.Get(ctx, id)
}

func (s *Service) ListDispenses(ctx context.Context) ([]*model.MedicationDispense, error) {
	return s.dispenseRepo.List(ctx)
}

func (s *Service) ListDispensesByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationDispense, error) {
	return s.dispenseRepo.ListByPatient(ctx, patientID)
}
