package main

import (
	crand "crypto/rand"
	"errors"
	"sync"
)

var (
	errRoomExists    = errors.New("room already exists")
	errRoomNotFound  = errors.New("room not found")
	errAlreadyInRoom = errors.New("already in a room")
)

// RoomRegistry maps live room codes to their actors and websocket
// connections to the room they joined. Rooms remove themselves when
// their last player leaves; that is the only deletion path.
type RoomRegistry struct {
	cfg      *Config
	mu       sync.Mutex
	rooms    map[string]*Room
	sessions map[*Client]*Room
}

func newRoomRegistry(cfg *Config) *RoomRegistry {
	return &RoomRegistry{
		cfg:      cfg,
		rooms:    make(map[string]*Room),
		sessions: make(map[*Client]*Room),
	}
}

// create starts a room actor for a fresh code and queues the creator's
// join. The session is bound before the join event is queued, so a
// disconnect racing the join is always processed after it.
func (rg *RoomRegistry) create(code string, c *Client, name string) error {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if rg.sessions[c] != nil {
		return errAlreadyInRoom
	}
	if _, ok := rg.rooms[code]; ok {
		return errRoomExists
	}

	room := newRoom(code, rg.cfg, rg)
	rg.rooms[code] = room
	rg.sessions[c] = room

	go room.run()

	room.enqueue(roomEvent{client: c, msg: clientMessage{Type: "join-room", Username: name}})

	logf(rg.cfg, "GAMES: Created room %s for %q", code, name)

	return nil
}

func (rg *RoomRegistry) join(code string, c *Client, name string) error {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if rg.sessions[c] != nil {
		return errAlreadyInRoom
	}

	room, ok := rg.rooms[code]
	if !ok {
		return errRoomNotFound
	}

	rg.sessions[c] = room

	room.enqueue(roomEvent{client: c, msg: clientMessage{Type: "join-room", Username: name}})

	return nil
}

func (rg *RoomRegistry) exists(code string) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	_, ok := rg.rooms[code]
	return ok
}

// roomFor resolves the room a connection has joined, if any.
func (rg *RoomRegistry) roomFor(c *Client) *Room {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	return rg.sessions[c]
}

// unbind detaches a connection whose join was rejected.
func (rg *RoomRegistry) unbind(c *Client) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	delete(rg.sessions, c)
}

// disconnect routes a closed connection to its room's actor.
func (rg *RoomRegistry) disconnect(c *Client) {
	rg.mu.Lock()
	room := rg.sessions[c]
	delete(rg.sessions, c)
	rg.mu.Unlock()

	if room != nil {
		room.enqueue(roomEvent{client: c, msg: clientMessage{Type: "disconnect"}})
	}
}

// remove is called by a room's own actor once its player list empties.
func (rg *RoomRegistry) remove(room *Room) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	delete(rg.rooms, room.code)
}

const roomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newCode mints a collision-checked room code, for clients that want
// the server to pick one.
func (rg *RoomRegistry) newCode() string {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	for {
		buf := make([]byte, roomCodeLength)
		if _, err := crand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeChars[int(buf[i])%len(roomCodeChars)]
		}
		code := string(out)

		if _, exists := rg.rooms[code]; !exists {
			return code
		}
	}
}
