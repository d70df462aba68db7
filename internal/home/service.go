package home

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/events"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/hearth/internal/home"

// Climate sensor bounds.
const (
	MinTemperature = -50.0
	MaxTemperature = 70.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// Store persists families, items and notes. Implementations report missing
// items and notes with ErrNotFound.
type Store interface {
	// EnsureFamily returns the family, creating it with defaults if absent.
	EnsureFamily(ctx context.Context, name string) (Family, error)
	GetFamily(ctx context.Context, name string) (Family, error)
	UpdateFamily(ctx context.Context, f Family) error

	ListItems(ctx context.Context, family string) ([]Item, error)
	GetItem(ctx context.Context, family, id string) (Item, error)
	InsertItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, family, id string) error

	ListNotes(ctx context.Context, family string) ([]Note, error)
	InsertNote(ctx context.Context, note Note) error
	DeleteNote(ctx context.Context, family, id string) error
}

// Config configures the home service.
type Config struct {
	// LowStockThreshold marks items at or below this quantity (default: 2)
	LowStockThreshold float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{LowStockThreshold: DefaultLowStockThreshold}
}

// Service implements the household operations on top of a Store.
type Service struct {
	config    *Config
	store     Store
	publisher events.Publisher
	metrics   *Metrics
	logger    *logging.Logger
	tracer    trace.Tracer

	// Serializes read-modify-write on family rows.
	familyMu sync.Mutex
}

// NewService creates a home service. A nil publisher discards events and a
// nil logger logs nowhere.
func NewService(cfg *Config, store Store, pub events.Publisher, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be >= 0, got %v", cfg.LowStockThreshold)
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Service{
		config:    cfg,
		store:     store,
		publisher: pub,
		metrics:   NewMetrics(),
		logger:    logger.Named("home"),
		tracer:    otel.Tracer(instrumentationName),
	}, nil
}

// LowStockThreshold returns the configured threshold.
func (s *Service) LowStockThreshold() float64 {
	return s.config.LowStockThreshold
}

// Status returns the family's current status, creating the family on first use.
func (s *Service) Status(ctx context.Context, family string) (Status, error) {
	ctx, span, family, err := s.start(ctx, "home.status", family)
	defer span.End()
	if err != nil {
		return Status{}, err
	}

	f, err := s.store.EnsureFamily(ctx, family)
	if err != nil {
		return Status{}, s.fail(span, fmt.Errorf("failed to load family: %w", err))
	}
	return f.Status(), nil
}

// Toggle flips a device. Only lights exist; any other device leaves the
// status untouched and still succeeds.
func (s *Service) Toggle(ctx context.Context, family, device string) (Status, error) {
	ctx, span, family, err := s.start(ctx, "home.toggle", family)
	defer span.End()
	if err != nil {
		return Status{}, err
	}
	span.SetAttributes(attribute.String("device", device))

	if device != DeviceLights {
		s.logger.Warn(ctx, "ignoring toggle for unknown device", zap.String("device", device))
		return s.Status(ctx, family)
	}

	f, err := s.updateFamily(ctx, family, func(f *Family) bool {
		f.Lights = !f.Lights
		return true
	})
	if err != nil {
		return Status{}, s.fail(span, err)
	}

	s.metrics.TogglesTotal.WithLabelValues(device).Inc()
	s.logger.Info(ctx, "device toggled", zap.String("device", device), zap.Bool("lights", f.Lights))
	s.publish(ctx, events.KindStatus, "toggle", family, f.Status())
	return f.Status(), nil
}

// SetMode switches the scene. Unknown modes leave the mode untouched and
// still succeed.
func (s *Service) SetMode(ctx context.Context, family, mode string) (Status, error) {
	ctx, span, family, err := s.start(ctx, "home.set_mode", family)
	defer span.End()
	if err != nil {
		return Status{}, err
	}
	span.SetAttributes(attribute.String("mode", mode))

	m, ok := ParseMode(mode)
	if !ok {
		s.logger.Warn(ctx, "ignoring unknown mode", zap.String("mode", mode))
		return s.Status(ctx, family)
	}

	f, err := s.updateFamily(ctx, family, func(f *Family) bool {
		if f.Mode == m {
			return false
		}
		f.Mode = m
		return true
	})
	if err != nil {
		return Status{}, s.fail(span, err)
	}

	s.metrics.ModeChangesTotal.WithLabelValues(string(m)).Inc()
	s.logger.Info(ctx, "mode changed", zap.String("mode", string(m)))
	s.publish(ctx, events.KindStatus, "mode", family, f.Status())
	return f.Status(), nil
}

// ReportClimate records a sensor reading.
func (s *Service) ReportClimate(ctx context.Context, family string, temperature, humidity float64) (Status, error) {
	ctx, span, family, err := s.start(ctx, "home.report_climate", family)
	defer span.End()
	if err != nil {
		return Status{}, err
	}

	if !finite(temperature) || temperature < MinTemperature || temperature > MaxTemperature {
		return Status{}, invalid("temperature %v outside [%v, %v]", temperature, MinTemperature, MaxTemperature)
	}
	if !finite(humidity) || humidity < MinHumidity || humidity > MaxHumidity {
		return Status{}, invalid("humidity %v outside [%v, %v]", humidity, MinHumidity, MaxHumidity)
	}

	f, err := s.updateFamily(ctx, family, func(f *Family) bool {
		f.Temperature = temperature
		f.Humidity = humidity
		return true
	})
	if err != nil {
		return Status{}, s.fail(span, err)
	}

	s.metrics.ClimateReports.Inc()
	s.logger.Debug(ctx, "climate reported",
		zap.Float64("temperature", temperature),
		zap.Float64("humidity", humidity),
	)
	s.publish(ctx, events.KindStatus, "climate", family, f.Status())
	return f.Status(), nil
}

// ListItems returns the family's items sorted by name. A non-empty query
// keeps items whose name or location contains it.
func (s *Service) ListItems(ctx context.Context, family, query string) ([]Item, error) {
	ctx, span, family, err := s.start(ctx, "home.list_items", family)
	defer span.End()
	if err != nil {
		return nil, err
	}

	if _, err := s.store.EnsureFamily(ctx, family); err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to load family: %w", err))
	}
	items, err := s.store.ListItems(ctx, family)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to list items: %w", err))
	}

	items = Filter(items, query)
	SortItems(items)
	span.SetAttributes(attribute.Int("count", len(items)))
	return items, nil
}

// LowStockItems returns items at or below threshold. A negative threshold
// uses the configured one.
func (s *Service) LowStockItems(ctx context.Context, family string, threshold float64) ([]Item, error) {
	items, err := s.ListItems(ctx, family, "")
	if err != nil {
		return nil, err
	}
	if threshold < 0 || !finite(threshold) {
		threshold = s.config.LowStockThreshold
	}
	return LowStock(items, threshold), nil
}

// AddItem creates an inventory item.
func (s *Service) AddItem(ctx context.Context, family string, in ItemInput) (Item, error) {
	ctx, span, family, err := s.start(ctx, "home.add_item", family)
	defer span.End()
	if err != nil {
		return Item{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Item{}, invalid("item name is required")
	}
	qty := DefaultQuantity
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if err := checkQuantity(qty); err != nil {
		return Item{}, err
	}

	if _, err := s.store.EnsureFamily(ctx, family); err != nil {
		return Item{}, s.fail(span, fmt.Errorf("failed to load family: %w", err))
	}

	now := time.Now().UTC()
	item := Item{
		ID:        uuid.New().String(),
		Name:      name,
		Quantity:  qty,
		Unit:      orDefault(in.Unit, DefaultUnit),
		Location:  strings.TrimSpace(in.Location),
		Category:  orDefault(in.Category, DefaultCategory),
		Family:    family,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkItemFields(item); err != nil {
		return Item{}, err
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return Item{}, s.fail(span, fmt.Errorf("failed to insert item: %w", err))
	}

	s.metrics.ItemMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info(ctx, "item added", zap.String("item_id", item.ID), zap.String("name", item.Name))
	s.publish(ctx, events.KindItems, "create", family, item)
	span.SetAttributes(attribute.String("item_id", item.ID))
	return item, nil
}

// UpdateItem applies patch to the family's item id.
func (s *Service) UpdateItem(ctx context.Context, family, id string, patch ItemPatch) (Item, error) {
	ctx, span, family, err := s.start(ctx, "home.update_item", family)
	defer span.End()
	if err != nil {
		return Item{}, err
	}
	span.SetAttributes(attribute.String("item_id", id))

	item, err := s.store.GetItem(ctx, family, id)
	if err != nil {
		return Item{}, s.fail(span, fmt.Errorf("failed to get item %s: %w", id, err))
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Item{}, invalid("item name cannot be empty")
		}
		item.Name = name
	}
	if patch.Quantity != nil {
		if err := checkQuantity(*patch.Quantity); err != nil {
			return Item{}, err
		}
		item.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		item.Unit = orDefault(*patch.Unit, DefaultUnit)
	}
	if patch.Location != nil {
		item.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Category != nil {
		item.Category = orDefault(*patch.Category, DefaultCategory)
	}
	if patch.Empty() {
		return item, nil
	}
	if err := checkItemFields(item); err != nil {
		return Item{}, err
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return Item{}, s.fail(span, fmt.Errorf("failed to update item %s: %w", id, err))
	}

	s.metrics.ItemMutationsTotal.WithLabelValues("update").Inc()
	s.logger.Info(ctx, "item updated", zap.String("item_id", id), zap.Float64("quantity", item.Quantity))
	s.publish(ctx, events.KindItems, "update", family, item)
	return item, nil
}

// DeleteItem removes the family's item id.
func (s *Service) DeleteItem(ctx context.Context, family, id string) error {
	ctx, span, family, err := s.start(ctx, "home.delete_item", family)
	defer span.End()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("item_id", id))

	if err := s.store.DeleteItem(ctx, family, id); err != nil {
		return s.fail(span, fmt.Errorf("failed to delete item %s: %w", id, err))
	}

	s.metrics.ItemMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info(ctx, "item deleted", zap.String("item_id", id))
	s.publish(ctx, events.KindItems, "delete", family, map[string]string{"id": id})
	return nil
}

// ListNotes returns the family's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, family string) ([]Note, error) {
	ctx, span, family, err := s.start(ctx, "home.list_notes", family)
	defer span.End()
	if err != nil {
		return nil, err
	}

	if _, err := s.store.EnsureFamily(ctx, family); err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to load family: %w", err))
	}
	notes, err := s.store.ListNotes(ctx, family)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to list notes: %w", err))
	}
	SortNotes(notes)
	return notes, nil
}

// AddNote pins a message on the family board.
func (s *Service) AddNote(ctx context.Context, family, content string) (Note, error) {
	ctx, span, family, err := s.start(ctx, "home.add_note", family)
	defer span.End()
	if err != nil {
		return Note{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, invalid("note content is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxNoteContentLength {
		return Note{}, invalid("note is %d characters, limit is %d", n, MaxNoteContentLength)
	}

	if _, err := s.store.EnsureFamily(ctx, family); err != nil {
		return Note{}, s.fail(span, fmt.Errorf("failed to load family: %w", err))
	}

	note := Note{
		ID:        uuid.New().String(),
		Content:   content,
		Family:    family,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return Note{}, s.fail(span, fmt.Errorf("failed to insert note: %w", err))
	}

	s.metrics.NoteMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info(ctx, "note added", zap.String("note_id", note.ID))
	s.publish(ctx, events.KindNotes, "create", family, note)
	return note, nil
}

// DeleteNote removes the family's note id.
func (s *Service) DeleteNote(ctx context.Context, family, id string) error {
	ctx, span, family, err := s.start(ctx, "home.delete_note", family)
	defer span.End()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("note_id", id))

	if err := s.store.DeleteNote(ctx, family, id); err != nil {
		return s.fail(span, fmt.Errorf("failed to delete note %s: %w", id, err))
	}

	s.metrics.NoteMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info(ctx, "note deleted", zap.String("note_id", id))
	s.publish(ctx, events.KindNotes, "delete", family, map[string]string{"id": id})
	return nil
}

// start opens a span and validates the family name.
func (s *Service) start(ctx context.Context, op, family string) (context.Context, trace.Span, string, error) {
	ctx, span := s.tracer.Start(ctx, op)
	name, err := NormalizeFamily(family)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ctx, span, "", err
	}
	span.SetAttributes(attribute.String("family", name))
	return logging.WithFamily(ctx, name), span, name, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// updateFamily loads, mutates and saves a family row under familyMu. The
// row is only written when mutate reports a change.
func (s *Service) updateFamily(ctx context.Context, family string, mutate func(*Family) bool) (Family, error) {
	s.familyMu.Lock()
	defer s.familyMu.Unlock()

	f, err := s.store.EnsureFamily(ctx, family)
	if err != nil {
		return Family{}, fmt.Errorf("failed to load family: %w", err)
	}
	if !mutate(&f) {
		return f, nil
	}
	f.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateFamily(ctx, f); err != nil {
		return Family{}, fmt.Errorf("failed to update family: %w", err)
	}
	return f, nil
}

// publish never fails the caller; the mutation has already been stored.
func (s *Service) publish(ctx context.Context, kind events.Kind, action, family string, payload any) {
	if err := s.publisher.Publish(ctx, events.New(kind, action, family, payload)); err != nil {
		s.metrics.PublishFailures.Inc()
		s.logger.Warn(ctx, "failed to publish home event",
			zap.String("kind", string(kind)),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func checkQuantity(q float64) error {
	if !finite(q) || q < 0 {
		return invalid("quantity must be a non-negative number, got %v", q)
	}
	return nil
}

func checkItemFields(item Item) error {
	for _, f := range []struct {
		field, value string
		limit        int
	}{
		{"name", item.Name, MaxItemNameLength},
		{"location", item.Location, MaxLocationLength},
		{"unit", item.Unit, MaxUnitLength},
		{"category", item.Category, MaxCategoryLength},
	} {
		if n := utf8.RuneCountInString(f.value); n > f.limit {
			return invalid("item %s is %d characters, limit is %d", f.field, n, f.limit)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
