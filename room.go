package main

import (
	"fmt"
	"slices"
)

type gamePhase int

const (
	phaseLobby gamePhase = iota
	phaseAwaitingAnswers
	phaseAwaitingVotes
	phaseRoundResults
	phaseGameOver
)

func (p gamePhase) String() string {
	switch p {
	case phaseLobby:
		return "lobby"
	case phaseAwaitingAnswers:
		return "awaiting-answers"
	case phaseAwaitingVotes:
		return "awaiting-votes"
	case phaseRoundResults:
		return "round-results"
	case phaseGameOver:
		return "game-over"
	default:
		return "unknown"
	}
}

type roomEvent struct {
	client *Client
	msg    clientMessage
}

// Room is the authoritative state for one game session. All fields are
// owned by the room's goroutine; the only way in is the events channel.
type Room struct {
	code     string
	cfg      *Config
	registry *RoomRegistry

	events chan roomEvent
	closed bool

	clients map[*Client]bool
	players []string // join order
	creator string
	admin   string
	scores  map[string]int

	phase        gamePhase
	round        int
	realQuestion string
	liarQuestion string
	liar         string
	usedPairs    map[int]bool
	answers      map[string]string // player -> answer text
	votes        map[string]string // voter -> target
	disconnected []string          // left mid-game, still shown to clients
}

func newRoom(code string, cfg *Config, registry *RoomRegistry) *Room {
	return &Room{
		code:      code,
		cfg:       cfg,
		registry:  registry,
		events:    make(chan roomEvent, 64),
		clients:   make(map[*Client]bool),
		scores:    make(map[string]int),
		usedPairs: make(map[int]bool),
		answers:   make(map[string]string),
		votes:     make(map[string]string),
	}
}

func (room *Room) run() {
	for ev := range room.events {
		room.apply(ev)
		if room.closed {
			return
		}
	}
}

// enqueue never blocks: a full queue means the room is wedged or dying,
// and stalling an unrelated connection's read loop would be worse than
// dropping the event.
func (room *Room) enqueue(ev roomEvent) {
	select {
	case room.events <- ev:
	default:
		logf(room.cfg, "GAMES: Dropped %q event for room %s (queue full)", ev.msg.Type, room.code)
	}
}

func (room *Room) apply(ev roomEvent) {
	switch ev.msg.Type {
	case "create-room", "join-room":
		room.handleJoin(ev)
	case "start-game":
		room.handleStart(ev)
	case "next-round":
		room.handleNextRound(ev)
	case "submit-answer":
		room.handleAnswer(ev)
	case "submit-vote":
		room.handleVote(ev)
	case "disconnect":
		room.handleDisconnect(ev)
	default:
		logf(room.cfg, "GAMES: Ignoring %q event for room %s", ev.msg.Type, room.code)
	}
}

func (room *Room) isMember(name string) bool {
	return slices.Contains(room.players, name)
}

func (room *Room) handleJoin(ev roomEvent) {
	c := ev.client
	name := ev.msg.Username

	if room.clients[c] {
		room.errorTo(c, "You are already in this room.")
		return
	}

	if room.isMember(name) {
		room.registry.unbind(c)
		room.errorTo(c, "Username already taken in this room")
		return
	}

	c.name = name
	room.clients[c] = true
	room.players = append(room.players, name)
	room.scores[name] = 0

	if room.creator == "" {
		room.creator = name
		room.admin = name
	}

	logf(room.cfg, "GAMES: Player %q joined room %s (%d players)", name, room.code, len(room.players))

	room.broadcastPlayerList()
}

func (room *Room) handleStart(ev roomEvent) {
	switch room.phase {
	case phaseGameOver:
		room.errorTo(ev.client, "The game is over. Create a new room to play again.")
		return
	case phaseLobby:
	default:
		logf(room.cfg, "GAMES: Ignoring start-game for room %s in phase %s", room.code, room.phase)
		room.errorTo(ev.client, "A game is already in progress.")
		return
	}

	if ev.client.name != room.admin {
		room.errorTo(ev.client, "Only the admin can start the game.")
		return
	}

	if len(room.players) < 3 {
		room.broadcast(errorMessage{Type: "error-message", Text: "Need at least 3 players to start the game"})
		return
	}

	for name := range room.scores {
		room.scores[name] = 0
	}
	room.round = 0
	room.usedPairs = make(map[int]bool)
	room.disconnected = nil

	room.startRound()
}

// startRound draws a fresh question pair, picks the liar, and fans the
// questions out. The only per-recipient payload difference in the whole
// protocol is here: the liar gets the divergent question.
func (room *Room) startRound() {
	_, pair := drawQuestionPair(room.usedPairs)

	room.realQuestion = pair.Real
	room.liarQuestion = pair.Liar
	room.liar = room.players[randIntn(len(room.players))]
	room.round++
	room.answers = make(map[string]string)
	room.votes = make(map[string]string)
	room.phase = phaseAwaitingAnswers

	logf(room.cfg, "GAMES: Round %d: the liar is %q in room %s", room.round, room.liar, room.code)

	room.broadcast(submissionStatusMessage{
		Type:               "submission-status-update",
		SubmittedUsernames: []string{},
		TotalPlayers:       len(room.players),
	})

	for c := range room.clients {
		question := pair.Real
		if c.name == room.liar {
			question = pair.Liar
		}

		room.sendTo(c, gameStartedMessage{
			Type:        "game-started",
			Question:    question,
			RoundNumber: room.round,
		})
	}
}

func (room *Room) handleAnswer(ev roomEvent) {
	name := ev.client.name
	if name == "" || !room.isMember(name) {
		room.errorTo(ev.client, "You are not in this room.")
		return
	}

	if room.phase != phaseAwaitingAnswers {
		logf(room.cfg, "GAMES: Ignoring submit-answer from %q for room %s in phase %s", name, room.code, room.phase)
		room.errorTo(ev.client, "Answers are not being accepted right now.")
		return
	}

	// Resubmitting overwrites, so a player counts once.
	room.answers[name] = ev.msg.Answer

	logf(room.cfg, "GAMES: %q submitted an answer in room %s (%d/%d)", name, room.code, len(room.answers), len(room.players))

	room.broadcast(submissionStatusMessage{
		Type:               "submission-status-update",
		SubmittedUsernames: room.namesWithEntry(room.answers),
		TotalPlayers:       len(room.players),
	})

	room.maybeFinishAnswers()
}

func (room *Room) maybeFinishAnswers() {
	if room.phase != phaseAwaitingAnswers || len(room.players) == 0 || len(room.answers) < len(room.players) {
		return
	}

	entries := make([]answerEntry, 0, len(room.answers))
	for _, name := range room.players {
		if text, ok := room.answers[name]; ok {
			entries = append(entries, answerEntry{Username: name, Text: text})
		}
	}

	room.phase = phaseAwaitingVotes

	room.broadcast(votingStartMessage{
		Type:         "voting-start",
		Answers:      entries,
		RealQuestion: room.realQuestion,
	})
}

func (room *Room) handleVote(ev roomEvent) {
	voter := ev.client.name
	if voter == "" || !room.isMember(voter) {
		room.errorTo(ev.client, "You are not in this room.")
		return
	}

	if room.phase != phaseAwaitingVotes {
		logf(room.cfg, "GAMES: Ignoring submit-vote from %q for room %s in phase %s", voter, room.code, room.phase)
		room.errorTo(ev.client, "Votes are not being accepted right now.")
		return
	}

	target := ev.msg.Target
	if target == voter {
		room.errorTo(ev.client, "You cannot vote for yourself.")
		return
	}
	if !room.isMember(target) {
		room.errorTo(ev.client, "Invalid vote target.")
		return
	}

	room.votes[voter] = target

	logf(room.cfg, "GAMES: %q voted for %q in room %s (%d/%d)", voter, target, room.code, len(room.votes), len(room.players))

	room.broadcast(votingStatusMessage{
		Type:           "voting-status-update",
		VotedUsernames: room.namesWithEntry(room.votes),
		TotalPlayers:   len(room.players),
	})

	room.maybeFinishVotes()
}

func (room *Room) maybeFinishVotes() {
	if room.phase != phaseAwaitingVotes || len(room.players) == 0 || len(room.votes) < len(room.players) {
		return
	}

	tally := make(map[string]int)
	for _, target := range room.votes {
		tally[target]++
	}

	roundScores := room.scoreRound(tally)
	for name, delta := range roundScores {
		room.scores[name] += delta
	}

	room.phase = phaseRoundResults
	room.answers = make(map[string]string)
	room.votes = make(map[string]string)

	room.broadcast(resultsMessage{
		Type:                "results",
		Votes:               tally,
		Liar:                room.liar,
		RealQuestion:        room.realQuestion,
		LiarQuestion:        room.liarQuestion,
		RoundScores:         roundScores,
		TotalScores:         room.copyScores(),
		RoundNumber:         room.round,
		DisconnectedPlayers: slices.Clone(room.disconnected),
	})
}

// scoreRound applies the exclusive-or scoring rule: if at least
// ceil(n/2) votes name the liar, every non-liar gains a point;
// otherwise only the liar does.
func (room *Room) scoreRound(tally map[string]int) map[string]int {
	roundScores := make(map[string]int, len(room.players))
	for _, name := range room.players {
		roundScores[name] = 0
	}

	majority := (len(room.players) + 1) / 2

	if tally[room.liar] >= majority {
		for _, name := range room.players {
			if name != room.liar {
				roundScores[name] = 1
			}
		}
	} else {
		roundScores[room.liar] = 1
	}

	return roundScores
}

func (room *Room) handleNextRound(ev roomEvent) {
	switch room.phase {
	case phaseGameOver:
		room.errorTo(ev.client, "The game is over. Create a new room to play again.")
		return
	case phaseRoundResults:
	default:
		logf(room.cfg, "GAMES: Ignoring next-round for room %s in phase %s", room.code, room.phase)
		room.errorTo(ev.client, "The round is still in progress.")
		return
	}

	if ev.client.name != room.admin {
		room.errorTo(ev.client, "Only the admin can advance the round.")
		return
	}

	if len(room.players) < 3 {
		room.broadcast(errorMessage{Type: "error-message", Text: "Need at least 3 players to start the game"})
		return
	}

	if room.round >= room.cfg.rounds {
		room.phase = phaseGameOver

		logf(room.cfg, "GAMES: Game over in room %s after round %d", room.code, room.round)

		room.broadcast(gameOverMessage{
			Type:        "game-over",
			TotalScores: room.copyScores(),
			FinalRound:  room.round,
		})
		return
	}

	room.startRound()
}

func (room *Room) handleDisconnect(ev roomEvent) {
	c := ev.client

	delete(room.clients, c)

	name := c.name
	if name == "" || !room.isMember(name) {
		return
	}

	room.players = slices.DeleteFunc(room.players, func(p string) bool { return p == name })
	delete(room.answers, name)
	delete(room.votes, name)

	remaining := len(room.players)

	logf(room.cfg, "GAMES: Player %q disconnected from room %s (%d players remaining)", name, room.code, remaining)

	wasAdmin := name == room.admin
	newAdmin := ""
	if wasAdmin && remaining > 0 {
		room.admin = room.players[randIntn(remaining)]
		newAdmin = room.admin
		logf(room.cfg, "GAMES: Admin of room %s reassigned to %q", room.code, newAdmin)
	}

	if remaining == 0 {
		room.registry.remove(room)
		room.closed = true
		logf(room.cfg, "GAMES: Room %s deleted - all players left", room.code)
		return
	}

	inGame := room.phase == phaseAwaitingAnswers ||
		room.phase == phaseAwaitingVotes ||
		room.phase == phaseRoundResults

	if inGame && remaining < 3 {
		room.broadcast(gameEndedMessage{
			Type:               "game-ended",
			Reason:             "not-enough-players",
			Message:            fmt.Sprintf("Game ended - %s left and there are not enough players to continue", name),
			FinalScores:        room.copyScores(),
			DisconnectedPlayer: name,
		})

		room.resetGame()
		return
	}

	if inGame && !slices.Contains(room.disconnected, name) {
		room.disconnected = append(room.disconnected, name)
	}

	room.broadcastPlayerList()

	if inGame {
		room.broadcast(playerDisconnectedMessage{
			Type:             "player-disconnected",
			Username:         name,
			RemainingPlayers: remaining,
			WasAdmin:         wasAdmin,
			NewAdmin:         newAdmin,
		})

		// The leaver may have been the last holdout.
		room.maybeFinishAnswers()
		room.maybeFinishVotes()
	}
}

// resetGame returns the room to a fresh lobby, keeping the roster.
func (room *Room) resetGame() {
	room.phase = phaseLobby
	room.round = 0
	room.liar = ""
	room.realQuestion = ""
	room.liarQuestion = ""
	room.usedPairs = make(map[int]bool)
	room.answers = make(map[string]string)
	room.votes = make(map[string]string)
	room.disconnected = nil
}

// namesWithEntry returns, in join order, the players present in m.
func (room *Room) namesWithEntry(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for _, name := range room.players {
		if _, ok := m[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// copyScores snapshots the score table. Outbound messages are encoded
// on each client's write goroutine, so they must not alias live state.
func (room *Room) copyScores() map[string]int {
	scores := make(map[string]int, len(room.scores))
	for name, score := range room.scores {
		scores[name] = score
	}
	return scores
}

func (room *Room) broadcastPlayerList() {
	room.broadcast(playerListMessage{
		Type:             "update-players",
		Players:          slices.Clone(room.players),
		Creator:          room.creator,
		CurrentAdmin:     room.admin,
		RejoiningPlayers: slices.Clone(room.disconnected),
	})
}

func (room *Room) broadcast(msg any) {
	for c := range room.clients {
		room.sendTo(c, msg)
	}
}

// sendTo drops clients whose send buffer is full: they are either gone
// or too slow to keep up, and closing their connection routes them
// through the normal disconnect path.
func (room *Room) sendTo(c *Client, msg any) {
	if !room.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(room.clients, c)
		c.close()
	}
}

func (room *Room) errorTo(c *Client, text string) {
	sendError(c, text)
}
