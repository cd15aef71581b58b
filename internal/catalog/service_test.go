package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/feastlyapp/feastly-backend/pkg/db"
	"github.com/feastlyapp/feastly-backend/pkg/db/models"
	"github.com/feastlyapp/feastly-backend/pkg/enums"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/outbox"
)

type stubPublisher struct {
	mu    sync.Mutex
	calls int
}

func (s *stubPublisher) NotifyChanged(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *stubPublisher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *stubPublisher) {
	t.Helper()

	db := setupCatalogTestDB(t)
	publisher := &stubPublisher{}
	outboxSvc := outbox.NewService(outbox.NewRepository(db), testLogger())
	svc := NewService(dbpkg.NewFromConn(db), NewRepository(db), outboxSvc, publisher, testLogger())
	return svc, db, publisher
}

func TestServiceCreateItem_defaultsCategoryAndAvailability(t *testing.T) {
	svc, db, publisher := newTestService(t)

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:      "  Bibimbap  ",
		UnitPrice: decimal.RequireFromString("12.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bibimbap", item.Name)
	assert.Equal(t, "Other", item.Category)
	assert.True(t, item.Available)
	assert.Equal(t, 1, publisher.callCount())

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCatalogItemCreated, events[0].EventType)
	assert.Equal(t, item.ID, events[0].AggregateID)
}

func TestServiceCreateItem_rejectsDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := CreateItemInput{
		Name:      "Katsu Curry",
		UnitPrice: decimal.RequireFromString("14.00"),
	}
	_, err := svc.CreateItem(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreateItem(context.Background(), input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestServiceCreateItem_rejectsNonPositivePrice(t *testing.T) {
	svc, db, publisher := newTestService(t)

	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:      "Free Lunch",
		UnitPrice: decimal.Zero,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, publisher.callCount())

	var count int64
	require.NoError(t, db.Model(&models.CatalogItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceUpdateItem_appliesPartialFields(t *testing.T) {
	svc, _, publisher := newTestService(t)

	created, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:      "Udon",
		UnitPrice: decimal.RequireFromString("10.00"),
		Category:  "Noodles",
	})
	require.NoError(t, err)

	unavailable := false
	price := decimal.RequireFromString("11.50")
	updated, err := svc.UpdateItem(context.Background(), created.ID, UpdateItemInput{
		UnitPrice: &price,
		Available: &unavailable,
	})
	require.NoError(t, err)
	assert.Equal(t, "Udon", updated.Name)
	assert.Equal(t, "Noodles", updated.Category)
	assert.True(t, updated.UnitPrice.Equal(price))
	assert.False(t, updated.Available)
	assert.Equal(t, 2, publisher.callCount())
}

func TestServiceUpdateItem_notFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	name := "Ghost"
	_, err := svc.UpdateItem(context.Background(), uuid.New(), UpdateItemInput{Name: &name})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceDeleteItem_emitsEventAndSignals(t *testing.T) {
	svc, db, publisher := newTestService(t)

	created, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:      "Empanada",
		UnitPrice: decimal.RequireFromString("3.50"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), created.ID))
	assert.Equal(t, 2, publisher.callCount())

	var count int64
	require.NoError(t, db.Model(&models.CatalogItem{}).Count(&count).Error)
	assert.Zero(t, count)

	var events []models.OutboxEvent
	require.NoError(t, db.Where("event_type = ?", enums.EventCatalogItemDeleted).Find(&events).Error)
	require.Len(t, events, 1)
}
