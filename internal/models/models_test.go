package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryItemAvailable(t *testing.T) {
	item := &InventoryItem{AvailableUnits: 1}
	assert.True(t, item.Available())

	item.AvailableUnits = 0
	assert.False(t, item.Available())
}

func TestInventoryItemDescribe(t *testing.T) {
	flight := &InventoryItem{
		ID:           10,
		FlightNumber: "GA-417",
		Airline:      "Garuda",
		Origin:       "CGK",
		Destination:  "DPS",
	}
	assert.Equal(t, "flight GA-417 (Garuda, CGK to DPS)", flight.Describe())

	hotel := &InventoryItem{
		ID:       20,
		Name:     "Grand Inna",
		Location: "Denpasar",
	}
	assert.Equal(t, "Grand Inna in Denpasar", hotel.Describe())

	bare := &InventoryItem{ID: 7}
	assert.Equal(t, "item 7", bare.Describe())
}
