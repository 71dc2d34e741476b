package inventoryservice

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type reservationKey struct {
	orderID   uuid.UUID
	productID uuid.UUID
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu           sync.Mutex
	inventory    map[uuid.UUID]Inventory
	reservations map[reservationKey]Reservation
}

// NewMemoryStore returns a MemoryStore with no stock seeded yet.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inventory:    make(map[uuid.UUID]Inventory),
		reservations: make(map[reservationKey]Reservation),
	}
}

// SeedInventory sets a product's starting stock counters, for tests.
func (m *MemoryStore) SeedInventory(item Inventory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[item.ProductID] = item
}

func (m *MemoryStore) FindInventory(ctx context.Context, productID uuid.UUID) (Inventory, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.inventory[productID]
	return item, ok, nil
}

func (m *MemoryStore) FindReservation(ctx context.Context, orderID, productID uuid.UUID) (Reservation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationKey{orderID, productID}]
	return r, ok, nil
}

func (m *MemoryStore) Reserve(ctx context.Context, productID uuid.UUID, quantity int32, reservation Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.inventory[productID]
	item.AvailableQty -= quantity
	item.ReservedQty += quantity
	m.inventory[productID] = item
	m.reservations[reservationKey{reservation.OrderID, reservation.ProductID}] = reservation
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, reservation Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.inventory[reservation.ProductID]
	item.AvailableQty += reservation.Quantity
	item.ReservedQty -= reservation.Quantity
	m.inventory[reservation.ProductID] = item
	reservation.Status = ReservationCancelled
	m.reservations[reservationKey{reservation.OrderID, reservation.ProductID}] = reservation
	return nil
}
