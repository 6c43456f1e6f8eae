package entity

import "github.com/google/uuid"

type Resort struct {
	Base
	Name     string `db:"name"`
	Location string `db:"location"`
	Address  string `db:"address"`
}

// Room prices are integer minor currency units (paise for INR).
type Room struct {
	BaseNoDelete
	ResortID      uuid.UUID `db:"resort_id"`
	RoomNumber    string    `db:"room_number"`
	Capacity      int       `db:"capacity"`
	PricePerNight int64     `db:"price_per_night"`
}

// TotalCapacity sums the capacity of rooms.
func TotalCapacity(rooms []*Room) int {
	total := 0
	for _, room := range rooms {
		total += room.Capacity
	}
	return total
}
