package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"

	"github.com/google/uuid"
)

type resortRepo struct{ v *view }

func (r *resortRepo) Create(_ context.Context, resort *entity.Resort) error {
	return r.v.run("Resort.Create", func(st *state) error {
		for _, existing := range st.resorts {
			if existing.Name == resort.Name {
				return uniqueViolation("resorts_name_key")
			}
		}
		st.resorts[resort.ID] = copyOf(resort)
		return nil
	})
}

func (r *resortRepo) FindByID(_ context.Context, id uuid.UUID) (out *entity.Resort, err error) {
	err = r.v.run("Resort.FindByID", func(st *state) error {
		if res, ok := st.resorts[id]; ok && !res.IsDeleted() {
			out = copyOf(res)
		}
		return nil
	})
	return out, err
}

func (r *resortRepo) active(st *state, match func(*entity.Resort) bool) []*entity.Resort {
	var out []*entity.Resort
	for _, res := range st.resorts {
		if !res.IsDeleted() && match(res) {
			out = append(out, copyOf(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *resortRepo) FindAll(_ context.Context, limit, offset int) (out []*entity.Resort, err error) {
	err = r.v.run("Resort.FindAll", func(st *state) error {
		out = page(r.active(st, func(*entity.Resort) bool { return true }), limit, offset)
		return nil
	})
	return out, err
}

func (r *resortRepo) CountAll(_ context.Context) (n int64, err error) {
	err = r.v.run("Resort.CountAll", func(st *state) error {
		n = int64(len(r.active(st, func(*entity.Resort) bool { return true })))
		return nil
	})
	return n, err
}

func (r *resortRepo) SearchByLocation(_ context.Context, term string) (out []*entity.Resort, err error) {
	term = strings.ToLower(term)
	err = r.v.run("Resort.SearchByLocation", func(st *state) error {
		out = r.active(st, func(res *entity.Resort) bool {
			return strings.Contains(strings.ToLower(res.Location), term)
		})
		return nil
	})
	return out, err
}

func (r *resortRepo) Update(_ context.Context, resort *entity.Resort) error {
	return r.v.run("Resort.Update", func(st *state) error {
		existing, ok := st.resorts[resort.ID]
		if !ok || existing.IsDeleted() {
			return fmt.Errorf("resort %s not found", resort.ID)
		}
		existing.Name = resort.Name
		existing.Location = resort.Location
		existing.Address = resort.Address
		existing.UpdatedAt = resort.UpdatedAt
		return nil
	})
}

func (r *resortRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	now := r.v.now()
	return r.v.run("Resort.SoftDelete", func(st *state) error {
		existing, ok := st.resorts[id]
		if !ok || existing.IsDeleted() {
			return fmt.Errorf("resort %s not found", id)
		}
		existing.DeletedAt = &now
		return nil
	})
}

type roomRepo struct{ v *view }

func (r *roomRepo) Create(_ context.Context, room *entity.Room) error {
	return r.v.run("Room.Create", func(st *state) error {
		if _, ok := st.resorts[room.ResortID]; !ok {
			return foreignKeyViolation("rooms_resort_id_fkey")
		}
		for _, existing := range st.rooms {
			if existing.ResortID == room.ResortID && existing.RoomNumber == room.RoomNumber {
				return uniqueViolation("rooms_resort_id_room_number_key")
			}
		}
		st.rooms[room.ID] = copyOf(room)
		return nil
	})
}

func (r *roomRepo) FindByID(_ context.Context, id uuid.UUID) (out *entity.Room, err error) {
	err = r.v.run("Room.FindByID", func(st *state) error {
		out = copyOf(st.rooms[id])
		return nil
	})
	return out, err
}

func (r *roomRepo) FindByResortID(_ context.Context, resortID uuid.UUID) (out []*entity.Room, err error) {
	err = r.v.run("Room.FindByResortID", func(st *state) error {
		for _, room := range st.rooms {
			if room.ResortID == resortID {
				out = append(out, copyOf(room))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
		return nil
	})
	return out, err
}

func (r *roomRepo) Update(_ context.Context, room *entity.Room) error {
	return r.v.run("Room.Update", func(st *state) error {
		existing, ok := st.rooms[room.ID]
		if !ok {
			return fmt.Errorf("room %s not found", room.ID)
		}
		existing.RoomNumber = room.RoomNumber
		existing.Capacity = room.Capacity
		existing.PricePerNight = room.PricePerNight
		existing.UpdatedAt = room.UpdatedAt
		return nil
	})
}

func (r *roomRepo) FindAvailable(_ context.Context, resortID uuid.UUID, stay entity.DateRange) (out []*entity.Room, err error) {
	err = r.v.run("Room.FindAvailable", func(st *state) error {
		for _, room := range st.rooms {
			if room.ResortID == resortID && !st.roomBooked(room.ID, stay) {
				out = append(out, copyOf(room))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.Capacity != b.Capacity {
				return a.Capacity < b.Capacity
			}
			if a.PricePerNight != b.PricePerNight {
				return a.PricePerNight < b.PricePerNight
			}
			return a.ID.String() < b.ID.String()
		})
		return nil
	})
	return out, err
}

func (r *roomRepo) FindBookedRoomIDs(_ context.Context, roomIDs []uuid.UUID, stay entity.DateRange) (out []uuid.UUID, err error) {
	err = r.v.run("Room.FindBookedRoomIDs", func(st *state) error {
		for _, id := range sortedIDs(roomIDs) {
			if st.roomBooked(id, stay) {
				out = append(out, id)
			}
		}
		return nil
	})
	return out, err
}

func (r *roomRepo) LockByIDs(_ context.Context, roomIDs []uuid.UUID, mode repository.LockMode) (out []*entity.Room, err error) {
	if mode != repository.LockShare && mode != repository.LockUpdate {
		return nil, fmt.Errorf("unknown lock mode %q", mode)
	}
	err = r.v.run("Room.LockByIDs", func(st *state) error {
		for _, id := range sortedIDs(roomIDs) {
			if room, ok := st.rooms[id]; ok {
				out = append(out, copyOf(room))
			}
		}
		return nil
	})
	return out, err
}

func (st *state) roomBooked(roomID uuid.UUID, stay entity.DateRange) bool {
	for _, rooms := range st.bookingRooms {
		for _, br := range rooms {
			if br.RoomID == roomID && br.Status == entity.BookingStatusConfirmed && br.Stay.Overlaps(stay) {
				return true
			}
		}
	}
	return false
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
