// Outliar
//
// Players join a room by code and each round answer a question — except one
// of them, the liar, who secretly receives a different question. Everyone's
// answers are shown side by side, the room votes on who the liar is, and
// scores accumulate until the configured number of rounds has been played.
//
// Features:
// - Single websocket endpoint at /path/ws; events carry a room code
// - Rooms are created on demand with a client-chosen (or server-minted) code
// - One goroutine per room serializes every event touching that room's state
// - Exactly-once answers and votes: resubmission overwrites, never appends
// - Scoring: liar caught by majority => everyone else scores; else the liar does
// - Admin role starts games and advances rounds, handed off on disconnect
// - Mid-game dropouts below the 3-player floor end the game cleanly
// - In-browser QR share links for room invites, backed by go-qrcode

package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	roomCodeLength = 6
	maxCodeLength  = 12
	maxNameLength  = 24
	sendBufferSize = 16
)

// Messages coming from clients
type clientMessage struct {
	Type     string `json:"type"`               // "create-room", "join-room", "rejoin-room", "start-game", "next-round", "submit-answer", "submit-vote"
	RoomCode string `json:"roomCode,omitempty"` // create-room / join-room
	Username string `json:"username,omitempty"` // create-room / join-room
	Answer   string `json:"answer,omitempty"`   // submit-answer
	Voter    string `json:"voter,omitempty"`    // submit-vote (informational; the bound connection decides)
	Target   string `json:"target,omitempty"`   // submit-vote
}

// Messages sent to clients

type playerListMessage struct {
	Type             string   `json:"type"` // "update-players"
	Players          []string `json:"players"`
	Creator          string   `json:"creator"`
	CurrentAdmin     string   `json:"currentAdmin"`
	RejoiningPlayers []string `json:"rejoiningPlayers"`
}

type errorMessage struct {
	Type string `json:"type"` // "error-message"
	Text string `json:"text"`
}

// Sent individually: the liar's question differs from everyone else's.
type gameStartedMessage struct {
	Type        string `json:"type"` // "game-started"
	Question    string `json:"question"`
	RoundNumber int    `json:"roundNumber"`
}

type submissionStatusMessage struct {
	Type               string   `json:"type"` // "submission-status-update"
	SubmittedUsernames []string `json:"submittedUsernames"`
	TotalPlayers       int      `json:"totalPlayers"`
}

type answerEntry struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type votingStartMessage struct {
	Type         string        `json:"type"` // "voting-start"
	Answers      []answerEntry `json:"answers"`
	RealQuestion string        `json:"realQuestion"`
}

type votingStatusMessage struct {
	Type           string   `json:"type"` // "voting-status-update"
	VotedUsernames []string `json:"votedUsernames"`
	TotalPlayers   int      `json:"totalPlayers"`
}

type resultsMessage struct {
	Type                string         `json:"type"` // "results"
	Votes               map[string]int `json:"votes"`
	Liar                string         `json:"liar"`
	RealQuestion        string         `json:"realQuestion"`
	LiarQuestion        string         `json:"liarQuestion"`
	RoundScores         map[string]int `json:"roundScores"`
	TotalScores         map[string]int `json:"totalScores"`
	RoundNumber         int            `json:"roundNumber"`
	DisconnectedPlayers []string       `json:"disconnectedPlayers"`
}

type gameOverMessage struct {
	Type        string         `json:"type"` // "game-over"
	TotalScores map[string]int `json:"totalScores"`
	FinalRound  int            `json:"finalRound"`
}

type playerDisconnectedMessage struct {
	Type             string `json:"type"` // "player-disconnected"
	Username         string `json:"username"`
	RemainingPlayers int    `json:"remainingPlayers"`
	WasAdmin         bool   `json:"wasAdmin"`
	NewAdmin         string `json:"newAdmin,omitempty"`
}

type gameEndedMessage struct {
	Type               string         `json:"type"` // "game-ended"
	Reason             string         `json:"reason"`
	Message            string         `json:"message"`
	FinalScores        map[string]int `json:"finalScores"`
	DisconnectedPlayer string         `json:"disconnectedPlayer"`
}

// Client is one websocket connection. The name field is set by the room
// actor when a join succeeds and is only touched on that goroutine.
type Client struct {
	conn *websocket.Conn
	send chan any
	done chan struct{}
	id   string
	name string
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan any, sendBufferSize),
		done: make(chan struct{}),
		id:   uuid.NewString(),
	}
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) writePump() {
	defer c.close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readPump(cfg *Config, rg *RoomRegistry) {
	defer func() {
		close(c.done)
		c.close()
		rg.disconnect(c)
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create-room", "join-room":
			code, ok := normalizeRoomCode(msg.RoomCode)
			if !ok {
				sendError(c, "Invalid room code.")
				continue
			}

			name, ok := normalizeUsername(msg.Username)
			if !ok {
				sendError(c, "Invalid username.")
				continue
			}

			var err error
			if msg.Type == "create-room" {
				err = rg.create(code, c, name)
			} else {
				err = rg.join(code, c, name)
			}

			switch err {
			case nil:
			case errRoomExists:
				sendError(c, "Room already exists. Please join instead or use a different room code.")
			case errRoomNotFound:
				sendError(c, "Room does not exist. Please check the room code or create a new room.")
			case errAlreadyInRoom:
				sendError(c, "You are already in a room.")
			}

		case "rejoin-room":
			sendError(c, "Rejoining is not supported. Join again with a free username.")

		case "start-game", "next-round", "submit-answer", "submit-vote":
			room := rg.roomFor(c)
			if room == nil {
				sendError(c, "Join a room first.")
				continue
			}
			room.enqueue(roomEvent{client: c, msg: msg})

		default:
			logf(cfg, "GAMES: Ignoring unknown %q event from connection %s", msg.Type, c.id)
		}
	}
}

// sendError bypasses any room: it reports transport-level rejections to
// a possibly unbound connection.
func sendError(c *Client, text string) {
	select {
	case c.send <- errorMessage{Type: "error-message", Text: text}:
	default:
	}
}

func normalizeRoomCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 4 || len(code) > maxCodeLength {
		return "", false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", false
		}
	}
	return code, true
}

func normalizeUsername(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", false
	}
	return name, true
}

func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.originAllowed(r.Header.Get("Origin"))
		},
	}
}

func serveWS(cfg *Config, rg *RoomRegistry) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn)

		logf(cfg, "GAMES: Connection %s opened from %s", client.id, realIP(r))

		go client.writePump()
		client.readPump(cfg, rg)
	}
}

// serveNewCode mints a fresh room code for clients that prefer a
// server-chosen one over rolling their own.
func serveNewCode(cfg *Config, rg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(rg.newCode() + "\n"))
	}
}

// qrHandler generates a PNG QR code pointing at the join link for a
// live room, using go-qrcode.
func qrHandler(cfg *Config, rg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := normalizeRoomCode(ps.ByName("roomcode"))
		if !ok || !rg.exists(code) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		base := cfg.frontendURL
		if base == "" {
			// Fall back to this host (respecting TLS and X-Forwarded-Proto).
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
				scheme = proto
			}
			base = scheme + "://" + r.Host
		}

		url := strings.TrimSuffix(base, "/") + "/?room=" + code

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerLiarGame sets up routes so that:
//   - $path/ws            → shared websocket endpoint (events carry room codes)
//   - $path/code          → mint a fresh room code
//   - $path/qr/:roomcode  → PNG QR code with the join link for a live room
func registerLiarGame(cfg *Config, path string, mux *httprouter.Router) {
	rg := newRoomRegistry(cfg)

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, rg))

	mux.GET(cfg.prefix+path+"/code", serveNewCode(cfg, rg))

	mux.GET(cfg.prefix+path+"/qr/:roomcode", qrHandler(cfg, rg))
}
